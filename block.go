package gonogo

import (
	"context"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/trace"
)

// BlockPlan describes one block of the session: its 1-based position, label,
// which half of the session it belongs to and the emotion that is Go in it.
type BlockPlan struct {
	Index      int
	Label      string
	Half       int
	GoCategory Emotion
}

// Block identifies the block a BlockRunner is running and who is running it.
type Block struct {
	Plan        BlockPlan
	Participant int
	Session     string
}

// BlockRunner runs the trials of a block in source order and appends every
// outcome to the recorder.
type BlockRunner struct {
	engine   *Engine
	recorder Recorder

	trialHook TrialHook
	blockHook BlockHook
}

// BlockOption configures a BlockRunner.
type BlockOption func(*BlockRunner)

// WithTrialHook sets a callback invoked after each trial is recorded. If the
// callback returns an error, the block stops immediately.
func WithTrialHook(hook TrialHook) BlockOption {
	return func(r *BlockRunner) {
		r.trialHook = hook
	}
}

// WithBlockHook sets a callback invoked before the first trial of a block.
func WithBlockHook(hook BlockHook) BlockOption {
	return func(r *BlockRunner) {
		r.blockHook = hook
	}
}

// NewBlockRunner creates a BlockRunner that sends outcomes to recorder.
func NewBlockRunner(engine *Engine, recorder Recorder, options ...BlockOption) *BlockRunner {
	r := &BlockRunner{
		engine:    engine,
		recorder:  recorder,
		trialHook: defaultTrialHook,
		blockHook: defaultBlockHook,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run executes trials once each, in order. It never retries or reorders. Any
// error, including ErrUserAbort, stops the block and is returned as is so the
// caller can skip all remaining blocks.
func (r *BlockRunner) Run(ctx context.Context, trials []TrialSpec, block Block) (err error) {
	if len(trials) == 0 {
		return goerr.Wrap(ErrEmptyTrialList, "no trials for block", goerr.V("block", block.Plan.Label))
	}

	if h := trace.HandlerFrom(ctx); h != nil {
		ctx = h.StartBlock(ctx, &trace.BlockData{
			Index:      block.Plan.Index,
			Label:      block.Plan.Label,
			Half:       block.Plan.Half,
			GoCategory: block.Plan.GoCategory.String(),
			Trials:     len(trials),
		})
		defer func() {
			h.EndBlock(ctx, err)
		}()
	}

	logger := LoggerFromContext(ctx).With("block", block.Plan.Label)
	logger.Info("block started",
		"trials", len(trials),
		"go_category", block.Plan.GoCategory,
	)

	if err := r.blockHook(ctx, block.Plan, trials); err != nil {
		return goerr.Wrap(err, "failed to call BlockHook")
	}

	correct := 0
	for i, spec := range trials {
		meta := TrialMeta{
			Participant: block.Participant,
			Session:     block.Session,
			Block:       block.Plan.Label,
			Index:       i + 1,
		}

		outcome, err := r.engine.RunTrial(ctx, spec, meta)
		if err != nil {
			return err
		}

		if err := r.recorder.Append(ctx, outcome); err != nil {
			return goerr.Wrap(err, "failed to record trial", goerr.V("index", meta.Index))
		}
		if outcome.Correct {
			correct++
		}

		if err := r.trialHook(ctx, outcome); err != nil {
			return goerr.Wrap(err, "failed to call TrialHook", goerr.V("index", meta.Index))
		}
	}

	logger.Info("block finished",
		"trials", len(trials),
		"correct", correct,
	)
	return nil
}

func blockLabel(index int) string {
	return strconv.Itoa(index)
}
