package trace

import (
	"context"
	"errors"
)

// multiHandler fans out trace events to multiple Handler implementations.
// Each handler keeps its own context chain, so two Recorders (or a Recorder
// and the OTel handler) never see each other's current span.
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
// Nil handlers are skipped.
func Multi(handlers ...Handler) Handler {
	m := &multiHandler{}
	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
	return m
}

type multiCtxKey struct{}

// contexts returns the per-handler contexts stored by the last Start* call,
// or ctx for every handler when none is stored yet.
func (m *multiHandler) contexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok && len(v) == len(m.handlers) {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

// start runs fn for every handler on its own parent context and stores the
// resulting children in a new context derived from base.
func (m *multiHandler) start(base context.Context, fn func(h Handler, ctx context.Context) context.Context) context.Context {
	parents := m.contexts(base)
	children := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = fn(h, parents[i])
	}
	return context.WithValue(base, multiCtxKey{}, children)
}

func (m *multiHandler) each(ctx context.Context, fn func(h Handler, ctx context.Context)) {
	ctxs := m.contexts(ctx)
	for i, h := range m.handlers {
		fn(h, ctxs[i])
	}
}

func (m *multiHandler) StartSession(ctx context.Context, data *SessionData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartSession(c, data)
	})
}

func (m *multiHandler) EndSession(ctx context.Context, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndSession(c, err) })
}

func (m *multiHandler) StartBlock(ctx context.Context, data *BlockData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartBlock(c, data)
	})
}

func (m *multiHandler) EndBlock(ctx context.Context, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndBlock(c, err) })
}

func (m *multiHandler) StartTrial(ctx context.Context, index int, image string) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartTrial(c, index, image)
	})
}

func (m *multiHandler) EndTrial(ctx context.Context, data *TrialData, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndTrial(c, data, err) })
}

func (m *multiHandler) AddEvent(ctx context.Context, kind string, data any) {
	m.each(ctx, func(h Handler, c context.Context) { h.AddEvent(c, kind, data) })
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.Finish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
