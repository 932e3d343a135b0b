package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ltwin/communication-translator/export"
	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/metrics"
	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/sse"
	"github.com/ltwin/communication-translator/types"
)

// Controller errors.
var (
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller is closed")
	// ErrNoSession is returned by Await when nothing was started.
	ErrNoSession = errors.New("no session started")
	// ErrNoExporter is returned by Copy when no exporter is configured.
	ErrNoExporter = errors.New("no exporter configured")
)

// Defaults for Options.
const (
	DefaultChunkSize = 4096
	DefaultInboxSize = 64
)

// Transport opens the translation stream for a request. Closing the
// returned body, or cancelling ctx, must tear the stream down.
type Transport interface {
	OpenStream(ctx context.Context, req types.TranslationRequest) (io.ReadCloser, error)
}

// Options configures a Controller.
type Options struct {
	// Transport opens translation streams (required).
	Transport Transport
	// Formatter renders the document. Nil means output.Plain.
	Formatter output.Formatter
	// Surface displays views. Nil discards them.
	Surface output.Surface
	// Listener receives UI-state callbacks. Nil discards them.
	Listener Listener
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
	// Collector records counters. Nil is allowed.
	Collector *metrics.Collector
	// Observers are notified of every finished session.
	Observers []Observer
	// Exporter receives the final text on Copy.
	Exporter export.Exporter
	// Mode is the initial direction mode. Empty means auto.
	Mode types.Mode
	// Theme is the initial theme. Empty means dark.
	Theme output.Theme
	// ChunkSize is the body read size (default 4096).
	ChunkSize int
	// InboxSize is the capacity of the message inbox (default 64).
	InboxSize int
}

// Controller owns the live session, the framer and the renderer.
//
// Dispatch, Start, Handle, Await and Close must be called from a single
// owner goroutine. Messages may be read by that goroutine only.
type Controller struct {
	transport Transport
	listener  Listener
	logger    *log.Logger
	collector *metrics.Collector
	observers []Observer
	exporter  export.Exporter
	chunkSize int

	renderer *output.Renderer
	framer   *sse.Framer
	inbox    chan Msg

	current       *Session
	mode          types.Mode
	theme         output.Theme
	translating   bool
	pendingCopies int
	closed        bool
}

// NewController creates a controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, errors.New("controller requires a transport")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Listener == nil {
		opts.Listener = Hooks{}
	}
	if opts.Mode == "" {
		opts.Mode = types.ModeAuto
	}
	if opts.Theme == "" {
		opts.Theme = output.ThemeDark
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}

	c := &Controller{
		transport: opts.Transport,
		listener:  opts.Listener,
		logger:    opts.Logger,
		collector: opts.Collector,
		observers: opts.Observers,
		exporter:  opts.Exporter,
		chunkSize: opts.ChunkSize,
		renderer:  output.NewRenderer(opts.Formatter, opts.Surface, opts.Logger),
		framer:    sse.NewFramer(),
		inbox:     make(chan Msg, opts.InboxSize),
		mode:      opts.Mode,
		theme:     opts.Theme,
	}
	c.framer.OnDiscard = c.onDiscard
	c.renderer.SetPlaceholder(c.mode.Placeholder())
	return c, nil
}

// Messages returns the inbox. The owner goroutine passes every message it
// receives to Handle.
func (c *Controller) Messages() <-chan Msg {
	return c.inbox
}

// State returns the live session state, Idle before the first session.
func (c *Controller) State() types.SessionState {
	if c.current == nil {
		return types.StateIdle
	}
	return c.current.state
}

// Current returns the live session, or nil.
func (c *Controller) Current() *Session {
	return c.current
}

// Translating reports whether a session is requesting or streaming.
func (c *Controller) Translating() bool {
	return c.translating
}

// Mode returns the direction mode used for the next submit.
func (c *Controller) Mode() types.Mode {
	return c.mode
}

// Theme returns the current theme.
func (c *Controller) Theme() output.Theme {
	return c.theme
}

// FinalText returns the accumulated output of the live session.
func (c *Controller) FinalText() string {
	return c.renderer.FinalText()
}

// View returns the current output view.
func (c *Controller) View() output.View {
	return c.renderer.View()
}

// Dispatch applies a UI command.
//
// Submit is ignored while a session is active. An invalid submission shows
// the validation message, leaves the session state alone and returns the
// *types.ValidationError.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	if c.closed {
		return ErrClosed
	}

	switch cmd := cmd.(type) {
	case Submit:
		if c.State().IsActive() {
			c.logger.Debug("submit ignored while translating", map[string]any{
				"session_id": c.current.id,
			})
			return nil
		}
		req, err := types.NewTranslationRequest(cmd.Content, c.mode)
		if err != nil {
			c.renderer.ShowError(types.UserMessage(err))
			c.listener.OnTranslating(false)
			return err
		}
		_, err = c.Start(ctx, req)
		return err

	case ChangeDirection:
		next := c.mode.Next()
		if cmd.Mode != nil {
			next = *cmd.Mode
		}
		c.mode = next
		c.renderer.SetPlaceholder(next.Placeholder())
		return nil

	case ToggleTheme:
		c.theme = c.theme.Toggle()
		c.renderer.SetTheme(c.theme)
		c.listener.OnTheme(c.theme)
		return nil

	case Copy:
		return c.copy(ctx)

	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

// Start begins a new session for req. An active session is superseded: it
// becomes Cancelled and its stream is torn down, and the output is cleared
// before the new request is sent.
func (c *Controller) Start(ctx context.Context, req types.TranslationRequest) (*Session, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if prev := c.current; prev != nil && prev.state.IsActive() {
		c.terminate(prev, types.StateCancelled, FailureNone, "superseded by a new request", nil)
	}
	c.renderer.Clear()
	c.framer.Reset()

	s := newSession(req, c.logger)
	if err := s.transition(types.StateRequesting); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	c.current = s

	c.collector.IncSessionStarted()
	s.log.Info("session started", map[string]any{
		"content_length": len([]rune(req.Content)),
		"auto_detect":    req.AutoDetect,
	})
	c.setTranslating(true)

	go c.pump(sctx, s.id, req)
	return s, nil
}

// Handle applies one inbox message. Messages from a session that is no
// longer live, or that already reached a terminal state, are dropped.
func (c *Controller) Handle(msg Msg) {
	if m, ok := msg.(copiedMsg); ok {
		c.handleCopied(m)
		return
	}

	s := c.current
	if s == nil || msg.sessionID() != s.id || !s.state.IsActive() {
		c.collector.IncStaleDropped()
		c.logger.Debug("dropped stale stream message", map[string]any{
			"session_id": msg.sessionID(),
			"message":    fmt.Sprintf("%T", msg),
		})
		return
	}

	switch m := msg.(type) {
	case openFailedMsg:
		c.terminate(s, types.StateFailed, FailureTransport, types.UserMessage(m.err), m.err)

	case openedMsg:
		if err := s.transition(types.StateStreaming); err != nil {
			s.log.Error("unexpected stream open", map[string]any{"error": err.Error()})
			return
		}
		s.log.Debug("stream opened", nil)
		c.renderer.Begin()

	case chunkMsg:
		s.bytes += int64(m.n)
		c.collector.AddBytesReceived(m.n)
		c.applyFrames(s, c.framer.Feed(m.data))

	case endMsg:
		// Frames that arrived before a read error still count.
		c.applyFrames(s, c.framer.Flush())
		if s.state.IsActive() {
			err := m.err
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			c.terminate(s, types.StateFailed, FailureConnection, types.ConnectionLostMessage, err)
		}
	}
}

// applyFrames decodes and applies frames in order. The first terminal event
// wins; later frames of the same stream are ignored.
func (c *Controller) applyFrames(s *Session, frames []string) {
	for _, frame := range frames {
		if !s.state.IsActive() {
			s.log.Debug("ignoring frame after terminal event", nil)
			return
		}
		c.collector.IncFramesDecoded()

		event, err := sse.Decode(frame)
		if err != nil {
			c.collector.IncDecodeWarnings()
			s.log.Warn("dropped undecodable frame", map[string]any{"error": err.Error()})
			continue
		}
		c.apply(s, event)
	}
}

func (c *Controller) apply(s *Session, event types.StreamEvent) {
	if s.state != types.StateStreaming {
		s.log.Warn("event before stream open", map[string]any{"event": event.Kind.String()})
		return
	}

	if event.Kind.IsTerminal() {
		s.log.Debug("terminal event", map[string]any{"event": event.Kind.String()})
	}

	switch event.Kind {
	case types.EventTextDelta:
		s.deltas++
		c.collector.IncTextDeltas()
		c.renderer.OnTextDelta(event.Text)

	case types.EventMeta:
		c.collector.IncMetaEvents()
		if c.renderer.OnMeta(*event.Meta) {
			m := *event.Meta
			s.meta = &m
			s.log.Info("direction detected", map[string]any{
				"detected_direction": string(m.DetectedDirection),
				"confidence":         m.Confidence,
			})
		}

	case types.EventDone:
		c.terminate(s, types.StateCompleted, FailureNone, "", nil)

	case types.EventError:
		c.terminate(s, types.StateFailed, FailureStream, event.Message, &types.StreamError{Message: event.Message})
	}
}

// terminate moves s to a terminal state and runs the terminal side effects.
func (c *Controller) terminate(s *Session, to types.SessionState, failure FailureKind, reason string, cause error) {
	from := s.state
	if err := s.transition(to); err != nil {
		s.log.Error("invalid terminal transition", map[string]any{"error": err.Error()})
		return
	}
	s.failure = failure
	s.reason = reason
	s.err = cause
	s.endedAt = time.Now()
	s.cancel()
	c.framer.Reset()

	if to == types.StateFailed {
		// A failed session shows only the error, never the partial body.
		c.renderer.ShowError(reason)
	} else {
		c.renderer.Finish()
	}

	fields := map[string]any{
		"from":        from.String(),
		"state":       to.String(),
		"deltas":      s.deltas,
		"bytes":       s.bytes,
		"duration_ms": s.Duration().Milliseconds(),
	}
	switch to {
	case types.StateCompleted:
		c.collector.IncSessionCompleted()
		s.log.Info("session completed", fields)
	case types.StateFailed:
		c.collector.IncSessionFailed(failure.String())
		fields["failure"] = failure.String()
		fields["reason"] = reason
		if cause != nil {
			fields["error"] = cause.Error()
		}
		s.log.Warn("session failed", fields)
	case types.StateCancelled:
		c.collector.IncSessionCancelled()
		fields["reason"] = reason
		s.log.Info("session cancelled", fields)
	}

	c.setTranslating(false)
	c.notify(c.summary(s))
}

func (c *Controller) summary(s *Session) Summary {
	return Summary{
		SessionID: s.id,
		Content:   s.request.Content,
		Mode:      s.request.Mode(),
		State:     s.state,
		Failure:   s.failure.String(),
		Reason:    s.reason,
		Meta:      s.meta,
		Output:    c.renderer.FinalText(),
		Deltas:    s.deltas,
		Bytes:     s.bytes,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
}

func (c *Controller) notify(sum Summary) {
	for _, o := range c.observers {
		o.SessionFinished(sum)
	}
}

func (c *Controller) setTranslating(v bool) {
	if c.translating == v {
		return
	}
	c.translating = v
	c.listener.OnTranslating(v)
}

func (c *Controller) onDiscard(fragment string) {
	c.collector.IncFragmentsDiscarded()
	logger := c.logger
	if c.current != nil {
		logger = c.current.log
	}
	logger.Warn("discarded unprefixed stream fragment", map[string]any{
		"length": len(fragment),
	})
}

// copy exports the final text in the background and reports the result
// through a copiedMsg.
func (c *Controller) copy(ctx context.Context) error {
	if c.exporter == nil {
		return ErrNoExporter
	}
	text := c.renderer.FinalText()
	if text == "" {
		return export.ErrEmpty
	}

	c.pendingCopies++
	exporter := c.exporter
	go func() {
		err := exporter.Export(ctx, text)
		select {
		case c.inbox <- copiedMsg{target: exporter.Target(), err: err}:
		case <-ctx.Done():
		}
	}()
	return nil
}

func (c *Controller) handleCopied(m copiedMsg) {
	c.pendingCopies--
	if m.err != nil {
		c.collector.IncExportFailure()
		c.logger.Warn("export failed", map[string]any{"target": m.target, "error": m.err.Error()})
	} else {
		c.collector.IncExportSuccess()
		c.logger.Info("exported output", map[string]any{"target": m.target})
	}
	c.listener.OnCopied(m.target, m.err)
}

// Await runs the owner loop until the live session is terminal and no
// export is pending. If ctx ends first the session is cancelled and ctx's
// error is returned.
func (c *Controller) Await(ctx context.Context) (*Session, error) {
	for {
		s := c.current
		if (s == nil || s.state.IsTerminal()) && c.pendingCopies == 0 {
			if s == nil {
				return nil, ErrNoSession
			}
			return s, nil
		}

		select {
		case <-ctx.Done():
			if s != nil && s.state.IsActive() {
				c.terminate(s, types.StateCancelled, FailureNone, "interrupted", ctx.Err())
			}
			return s, ctx.Err()
		case m := <-c.inbox:
			c.Handle(m)
		}
	}
}

// Close cancels the live session and rejects further commands.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	if s := c.current; s != nil && s.state.IsActive() {
		c.terminate(s, types.StateCancelled, FailureNone, "closed", nil)
	}
	c.closed = true
}
