// Package metrics provides per-process counters for translation sessions.
//
// The Collector is a leaf package with no internal dependencies. The session
// controller records lifecycle and stream counters live; failure reasons are
// keyed by string to keep this package free of the session types.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted   int64 `json:"sessions_started"`
	SessionsCompleted int64 `json:"sessions_completed"`
	SessionsFailed    int64 `json:"sessions_failed"`
	SessionsCancelled int64 `json:"sessions_cancelled"`
	// FailuresByKind counts failed sessions by failure kind
	// (transport, stream, connection).
	FailuresByKind map[string]int64 `json:"failures_by_kind"`

	// Stream
	BytesReceived      int64 `json:"bytes_received"`
	FramesDecoded      int64 `json:"frames_decoded"`
	TextDeltas         int64 `json:"text_deltas"`
	MetaEvents         int64 `json:"meta_events"`
	DecodeWarnings     int64 `json:"decode_warnings"`
	FragmentsDiscarded int64 `json:"fragments_discarded"`
	StaleDropped       int64 `json:"stale_dropped"`

	// Sinks
	ExportSuccess  int64 `json:"export_success"`
	ExportFailure  int64 `json:"export_failure"`
	PublishSuccess int64 `json:"publish_success"`
	PublishFailure int64 `json:"publish_failure"`

	// Dimensions (informational, set at construction)
	Endpoint  string `json:"endpoint"`
	Formatter string `json:"formatter"`
}

// Collector accumulates counters for the lifetime of a controller.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsFailed    int64
	sessionsCancelled int64
	failuresByKind    map[string]int64

	bytesReceived      int64
	framesDecoded      int64
	textDeltas         int64
	metaEvents         int64
	decodeWarnings     int64
	fragmentsDiscarded int64
	staleDropped       int64

	exportSuccess  int64
	exportFailure  int64
	publishSuccess int64
	publishFailure int64

	endpoint  string
	formatter string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(endpoint, formatter string) *Collector {
	return &Collector{
		failuresByKind: make(map[string]int64),
		endpoint:       endpoint,
		formatter:      formatter,
	}
}

func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionStarted records a session entering Requesting.
func (c *Collector) IncSessionStarted() {
	if c == nil {
		return
	}
	c.add(&c.sessionsStarted, 1)
}

// IncSessionCompleted records a session that reached Done.
func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.add(&c.sessionsCompleted, 1)
}

// IncSessionFailed records a failed session under its failure kind.
func (c *Collector) IncSessionFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsFailed++
	c.failuresByKind[kind]++
	c.mu.Unlock()
}

// IncSessionCancelled records a superseded or closed session.
func (c *Collector) IncSessionCancelled() {
	if c == nil {
		return
	}
	c.add(&c.sessionsCancelled, 1)
}

// --- Stream ---

// AddBytesReceived records raw body bytes read from the transport.
func (c *Collector) AddBytesReceived(n int) {
	if c == nil {
		return
	}
	c.add(&c.bytesReceived, int64(n))
}

// IncFramesDecoded records a frame handed to the decoder.
func (c *Collector) IncFramesDecoded() {
	if c == nil {
		return
	}
	c.add(&c.framesDecoded, 1)
}

// IncTextDeltas records an applied text delta.
func (c *Collector) IncTextDeltas() {
	if c == nil {
		return
	}
	c.add(&c.textDeltas, 1)
}

// IncMetaEvents records a decoded meta event.
func (c *Collector) IncMetaEvents() {
	if c == nil {
		return
	}
	c.add(&c.metaEvents, 1)
}

// IncDecodeWarnings records a frame dropped by the decoder.
func (c *Collector) IncDecodeWarnings() {
	if c == nil {
		return
	}
	c.add(&c.decodeWarnings, 1)
}

// IncFragmentsDiscarded records a fragment dropped by the framer.
func (c *Collector) IncFragmentsDiscarded() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsDiscarded, 1)
}

// IncStaleDropped records a pump message from a session that is no longer live.
func (c *Collector) IncStaleDropped() {
	if c == nil {
		return
	}
	c.add(&c.staleDropped, 1)
}

// --- Sinks ---

// IncExportSuccess records a successful export of the final text.
func (c *Collector) IncExportSuccess() {
	if c == nil {
		return
	}
	c.add(&c.exportSuccess, 1)
}

// IncExportFailure records a failed export.
func (c *Collector) IncExportFailure() {
	if c == nil {
		return
	}
	c.add(&c.exportFailure, 1)
}

// IncPublishSuccess records a delivered session notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.add(&c.publishSuccess, 1)
}

// IncPublishFailure records a notification that exhausted its retries.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make(map[string]int64, len(c.failuresByKind))
	for k, v := range c.failuresByKind {
		failures[k] = v
	}

	return Snapshot{
		SessionsStarted:   c.sessionsStarted,
		SessionsCompleted: c.sessionsCompleted,
		SessionsFailed:    c.sessionsFailed,
		SessionsCancelled: c.sessionsCancelled,
		FailuresByKind:    failures,

		BytesReceived:      c.bytesReceived,
		FramesDecoded:      c.framesDecoded,
		TextDeltas:         c.textDeltas,
		MetaEvents:         c.metaEvents,
		DecodeWarnings:     c.decodeWarnings,
		FragmentsDiscarded: c.fragmentsDiscarded,
		StaleDropped:       c.staleDropped,

		ExportSuccess:  c.exportSuccess,
		ExportFailure:  c.exportFailure,
		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Endpoint:  c.endpoint,
		Formatter: c.formatter,
	}
}
