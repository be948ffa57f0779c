// Package otel provides an OpenTelemetry trace handler for gonogo.
//
// It bridges session, block and trial lifecycle events to OpenTelemetry
// spans, so a lab can ship session timing to any OTel-compatible backend.
//
// Basic usage with global TracerProvider:
//
//	exp := gonogo.NewExperiment(engine, source, recorder, prompter,
//	    gonogo.WithTraceHandler(otel.New()))
//
// With explicit TracerProvider:
//
//	otel.New(otel.WithTracerProvider(tp))
package otel

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/gonogo/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/m-mizutani/gonogo"
)

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
// If no TracerProvider is specified via options, the global TracerProvider is used.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func (h *handler) StartSession(ctx context.Context, data *trace.SessionData) context.Context {
	ctx, span := h.tracer.Start(ctx, "session",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			sessionIDAttr(data.SessionID),
			participantAttr(data.Participant),
			conditionAttr(data.Condition),
		)
	}
	return ctx
}

func (h *handler) EndSession(ctx context.Context, err error) {
	endSpan(ctx, err)
}

func (h *handler) StartBlock(ctx context.Context, data *trace.BlockData) context.Context {
	ctx, span := h.tracer.Start(ctx, "block",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			blockAttr(data.Label),
			goCategoryAttr(data.GoCategory),
		)
	}
	return ctx
}

func (h *handler) EndBlock(ctx context.Context, err error) {
	endSpan(ctx, err)
}

func (h *handler) StartTrial(ctx context.Context, _ int, image string) context.Context {
	ctx, _ = h.tracer.Start(ctx, "trial",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(imageAttr(image)),
	)
	return ctx
}

func (h *handler) EndTrial(ctx context.Context, data *trace.TrialData, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		span.SetAttributes(
			stimulusAttr(data.Kind),
			responseAttr(data.Response),
			correctAttr(data.Correct),
			isiAttr(data.ISI),
		)
		if data.ReactionTime != nil {
			span.SetAttributes(reactionTimeAttr(*data.ReactionTime))
		}
	}
	endSpan(ctx, err)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			span.AddEvent(kind, otelTrace.WithAttributes(eventDataAttr(string(b))))
			return
		}
	}
	span.AddEvent(kind)
}

func (h *handler) Finish(_ context.Context) error {
	// Spans are exported by the TracerProvider's SpanProcessor.
	return nil
}

func endSpan(ctx context.Context, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
