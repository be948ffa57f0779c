package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository for persisting trace data.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithMetadata sets the metadata for the trace.
func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// WithTraceID sets a custom trace ID.
// If not set or set to an empty string, a UUID v7 is generated automatically.
func WithTraceID(id string) Option {
	return func(r *Recorder) {
		r.traceID = id
	}
}

// Recorder collects tracing data of a session into an in-memory Trace
// structure. It implements the Handler interface and provides access to the
// collected Trace via Trace().
type Recorder struct {
	trace    *Trace
	mu       sync.Mutex
	repo     Repository
	metadata TraceMetadata
	traceID  string
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// context key types
type handlerKey struct{}
type currentSpanKey struct{}

// WithHandler stores the Handler in the context.
func WithHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFrom retrieves the Handler from the context. Returns nil if not set.
func HandlerFrom(ctx context.Context) Handler {
	h, _ := ctx.Value(handlerKey{}).(Handler)
	return h
}

func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

func newSpanID() string {
	return uuid.New().String()
}

// StartSession starts the root session span.
func (r *Recorder) StartSession(ctx context.Context, data *SessionData) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	span := &Span{
		SpanID:    newSpanID(),
		Kind:      SpanKindSession,
		Name:      "session",
		StartedAt: now,
		Status:    SpanStatusOK,
		Session:   data,
	}

	traceID := r.traceID
	if traceID == "" && data != nil {
		traceID = data.SessionID
	}
	if traceID == "" {
		traceID = uuid.Must(uuid.NewV7()).String()
	}

	r.trace = &Trace{
		TraceID:   traceID,
		RootSpan:  span,
		Metadata:  r.metadata,
		StartedAt: now,
	}

	return withCurrentSpan(ctx, span)
}

// EndSession ends the root session span.
func (r *Recorder) EndSession(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindSession {
		return
	}

	now := closeSpan(span, err)
	if r.trace != nil {
		r.trace.EndedAt = now
	}
}

// StartBlock starts a block span as a child of the session span.
func (r *Recorder) StartBlock(ctx context.Context, data *BlockData) context.Context {
	name := "block"
	if data != nil {
		name = "block:" + data.Label
	}
	ctx, span := r.startChildSpan(ctx, SpanKindBlock, name)
	if span != nil {
		r.mu.Lock()
		span.Block = data
		r.mu.Unlock()
	}
	return ctx
}

// EndBlock ends the block span.
func (r *Recorder) EndBlock(ctx context.Context, err error) {
	r.endSpan(ctx, SpanKindBlock, err)
}

// StartTrial starts a trial span as a child of the block span.
func (r *Recorder) StartTrial(ctx context.Context, index int, image string) context.Context {
	ctx, span := r.startChildSpan(ctx, SpanKindTrial, image)
	if span != nil {
		r.mu.Lock()
		span.Trial = &TrialData{Index: index, Image: image}
		r.mu.Unlock()
	}
	return ctx
}

// EndTrial ends the trial span with the evaluated data.
func (r *Recorder) EndTrial(ctx context.Context, data *TrialData, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindTrial {
		return
	}
	if data != nil {
		span.Trial = data
	}
	closeSpan(span, err)
}

// AddEvent adds an event span as a child of the current span.
func (r *Recorder) AddEvent(ctx context.Context, kind string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return
	}

	now := time.Now()
	span := &Span{
		SpanID:    newSpanID(),
		ParentID:  parent.SpanID,
		Kind:      SpanKindEvent,
		Name:      kind,
		StartedAt: now,
		EndedAt:   now,
		Status:    SpanStatusOK,
		Event: &EventData{
			Kind: kind,
			Data: data,
		},
	}

	parent.Children = append(parent.Children, span)
}

// Finish completes the trace and persists it to the Repository.
func (r *Recorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	trace := r.trace
	repo := r.repo
	r.mu.Unlock()

	if trace == nil || repo == nil {
		return nil
	}

	return repo.Save(ctx, trace)
}

// Trace returns the current trace data. Returns nil if no session has started.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace
}

func (r *Recorder) startChildSpan(ctx context.Context, kind SpanKind, name string) (context.Context, *Span) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return ctx, nil
	}

	span := &Span{
		SpanID:    newSpanID(),
		ParentID:  parent.SpanID,
		Kind:      kind,
		Name:      name,
		StartedAt: time.Now(),
		Status:    SpanStatusOK,
	}

	parent.Children = append(parent.Children, span)
	return withCurrentSpan(ctx, span), span
}

func (r *Recorder) endSpan(ctx context.Context, kind SpanKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != kind {
		return
	}
	closeSpan(span, err)
}

func closeSpan(span *Span, err error) time.Time {
	now := time.Now()
	span.EndedAt = now
	span.Duration = now.Sub(span.StartedAt)

	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
	return now
}
