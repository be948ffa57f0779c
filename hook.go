package gonogo

import "context"

type (
	// TrialHook is called after each trial has been evaluated and recorded.
	// Returning an error stops the block.
	TrialHook func(ctx context.Context, outcome *TrialOutcome) error
	// BlockHook is called before a block starts running its trials.
	BlockHook func(ctx context.Context, plan BlockPlan, trials []TrialSpec) error
)

func defaultTrialHook(ctx context.Context, outcome *TrialOutcome) error {
	return nil
}

func defaultBlockHook(ctx context.Context, plan BlockPlan, trials []TrialSpec) error {
	return nil
}
