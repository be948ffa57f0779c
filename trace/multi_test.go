package trace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gonogo/trace"
	"github.com/m-mizutani/gt"
)

func TestMultiHandlerFanOut(t *testing.T) {
	rec1 := trace.New()
	rec2 := trace.New()
	multi := trace.Multi(rec1, nil, rec2)

	ctx := multi.StartSession(context.Background(), &trace.SessionData{SessionID: "s-1"})
	blockCtx := multi.StartBlock(ctx, &trace.BlockData{Label: "1"})
	trialCtx := multi.StartTrial(blockCtx, 1, "h01.png")
	multi.EndTrial(trialCtx, &trace.TrialData{Index: 1, Correct: true}, nil)
	multi.EndBlock(blockCtx, nil)
	multi.AddEvent(ctx, "condition_reversed", nil)
	multi.EndSession(ctx, nil)

	for _, rec := range []*trace.Recorder{rec1, rec2} {
		tr := rec.Trace()
		gt.Value(t, tr).NotNil()
		gt.Equal(t, len(tr.RootSpan.Children), 2) // block + event
		block := tr.RootSpan.Children[0]
		gt.Equal(t, block.Kind, trace.SpanKindBlock)
		gt.A(t, block.Children).Length(1)
		gt.True(t, block.Children[0].Trial.Correct)
	}

	// Each recorder has its own spans.
	gt.True(t, rec1.Trace().RootSpan != rec2.Trace().RootSpan)
}

type failingFinishHandler struct {
	trace.Recorder
}

func (f *failingFinishHandler) Finish(_ context.Context) error {
	return errors.New("finish failed")
}

func TestMultiHandlerFinishCollectsErrors(t *testing.T) {
	rec := trace.New()
	failing := &failingFinishHandler{}
	multi := trace.Multi(rec, failing)

	err := multi.Finish(context.Background())
	gt.Value(t, err).NotNil()
	gt.S(t, err.Error()).Contains("finish failed")
}

func TestMultiHandlerFinishNoErrors(t *testing.T) {
	multi := trace.Multi(trace.New(), trace.New())
	gt.NoError(t, multi.Finish(context.Background()))
}
