// Package adapter publishes session-finished notifications to downstream
// systems (webhook, Redis pub/sub).
//
// The Notifier bridges the session controller and an Adapter: it observes
// finished sessions and publishes in the background so that the owner loop
// never waits on the network.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/metrics"
	"github.com/ltwin/communication-translator/session"
	"github.com/ltwin/communication-translator/types"
)

// EventType is the event_type of every published event.
const EventType = "session_finished"

// SessionFinishedEvent is the payload published when a session ends.
// The translated text itself is not included, only its size.
type SessionFinishedEvent struct {
	EventType         string  `json:"event_type"` // always "session_finished"
	Version           string  `json:"version"`
	SessionID         string  `json:"session_id"`
	Mode              string  `json:"mode"`
	State             string  `json:"state"` // completed, failed, cancelled
	Failure           string  `json:"failure,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	DetectedDirection string  `json:"detected_direction,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	ContentLength     int     `json:"content_length"`
	OutputLength      int     `json:"output_length"`
	Deltas            int     `json:"deltas"`
	Timestamp         string  `json:"timestamp"` // ISO 8601
	DurationMs        int64   `json:"duration_ms"`
}

// NewSessionFinishedEvent builds the event for a finished session.
func NewSessionFinishedEvent(s session.Summary) *SessionFinishedEvent {
	ev := &SessionFinishedEvent{
		EventType:     EventType,
		Version:       types.Version,
		SessionID:     s.SessionID,
		Mode:          string(s.Mode),
		State:         s.State.String(),
		Failure:       s.Failure,
		Reason:        s.Reason,
		ContentLength: len([]rune(s.Content)),
		OutputLength:  len([]rune(s.Output)),
		Deltas:        s.Deltas,
		Timestamp:     s.EndedAt.UTC().Format(time.RFC3339),
		DurationMs:    s.Duration().Milliseconds(),
	}
	if s.Meta != nil {
		ev.DetectedDirection = string(s.Meta.DetectedDirection)
		ev.Confidence = s.Meta.Confidence
	}
	return ev
}

// Adapter publishes session-finished events to a downstream system.
type Adapter interface {
	// Publish sends an event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SessionFinishedEvent) error

	// Close releases adapter resources.
	Close() error
}

// DefaultNotifyTimeout bounds one background publish including retries.
const DefaultNotifyTimeout = 30 * time.Second

// Notifier publishes every finished session through an Adapter in the
// background. It implements session.Observer.
type Notifier struct {
	adapter   Adapter
	timeout   time.Duration
	logger    *log.Logger
	collector *metrics.Collector

	wg sync.WaitGroup
}

// NewNotifier creates a notifier. A timeout <= 0 uses DefaultNotifyTimeout;
// a nil logger discards failures.
func NewNotifier(a Adapter, timeout time.Duration, logger *log.Logger, collector *metrics.Collector) *Notifier {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Notifier{adapter: a, timeout: timeout, logger: logger, collector: collector}
}

// SessionFinished publishes the session in a new goroutine.
func (n *Notifier) SessionFinished(s session.Summary) {
	event := NewSessionFinishedEvent(s)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.adapter.Publish(ctx, event); err != nil {
			n.collector.IncPublishFailure()
			n.logger.Warn("session notification failed", map[string]any{
				"session_id": event.SessionID,
				"error":      err.Error(),
			})
			return
		}
		n.collector.IncPublishSuccess()
		n.logger.Debug("session notification published", map[string]any{
			"session_id": event.SessionID,
		})
	}()
}

// Close waits for in-flight publishes, then closes the adapter.
func (n *Notifier) Close() error {
	n.wg.Wait()
	return n.adapter.Close()
}

var _ session.Observer = (*Notifier)(nil)
