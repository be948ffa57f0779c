package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/gonogo/trace"
)

// Event represents a trace event type that can be selectively enabled.
type Event int

const (
	// Session enables logging of session start/end.
	Session Event = iota
	// Block enables logging of block start/end.
	Block
	// Trial enables logging of every evaluated trial.
	Trial
	// CustomEvent enables logging of point events (screens, reversal, abort).
	CustomEvent

	eventCount // sentinel for iteration
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

type handler struct {
	cfg config
}

// New creates a new trace.Handler that logs session events via slog.
// By default, all events are enabled. Use WithEvents to enable only specific events.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger() *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return slog.Default()
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

type startTimeKey struct{}

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func startTimeFrom(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}

type blockLabelKey struct{}

func (h *handler) StartSession(ctx context.Context, data *trace.SessionData) context.Context {
	if h.enabled(Session) && data != nil {
		h.logger().InfoContext(ctx, "session started",
			slog.String("session_id", data.SessionID),
			slog.Int("participant", data.Participant),
			slog.String("condition", data.Condition),
		)
	}
	return withStartTime(ctx, time.Now())
}

func (h *handler) EndSession(ctx context.Context, err error) {
	if !h.enabled(Session) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "session ended", attrs...)
}

func (h *handler) StartBlock(ctx context.Context, data *trace.BlockData) context.Context {
	ctx = withStartTime(ctx, time.Now())
	if data == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, blockLabelKey{}, data.Label)
	if h.enabled(Block) {
		h.logger().InfoContext(ctx, "block started",
			slog.String("block", data.Label),
			slog.Int("half", data.Half),
			slog.String("go_category", data.GoCategory),
			slog.Int("trials", data.Trials),
		)
	}
	return ctx
}

func (h *handler) EndBlock(ctx context.Context, err error) {
	if !h.enabled(Block) {
		return
	}

	label, _ := ctx.Value(blockLabelKey{}).(string)
	attrs := []any{
		slog.String("block", label),
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "block ended", attrs...)
}

// StartTrial only records the start time; logging happens once the trial is
// evaluated.
func (h *handler) StartTrial(ctx context.Context, _ int, _ string) context.Context {
	return withStartTime(ctx, time.Now())
}

func (h *handler) EndTrial(ctx context.Context, data *trace.TrialData, err error) {
	if !h.enabled(Trial) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if data != nil {
		attrs = append(attrs,
			slog.Int("index", data.Index),
			slog.String("image", data.Image),
			slog.String("kind", data.Kind),
			slog.String("response", data.Response),
			slog.Bool("correct", data.Correct),
			slog.Duration("isi", data.ISI),
		)
		if data.ReactionTime != nil {
			attrs = append(attrs, slog.Duration("rt", *data.ReactionTime))
		}
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "trial", attrs...)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	if !h.enabled(CustomEvent) {
		return
	}

	h.logger().InfoContext(ctx, "event",
		slog.String("kind", kind),
		slog.Any("data", data),
	)
}

// Finish is a no-op for the logger handler. Persistence is the Recorder's responsibility.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
