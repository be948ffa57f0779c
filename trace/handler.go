package trace

import "context"

// Handler is the interface for trace backends.
// Implementations receive lifecycle events of an experiment session and can
// record, export, or forward them. Trial events are emitted only before and
// after the timed window, never from inside it.
type Handler interface {
	// StartSession starts the root session span.
	StartSession(ctx context.Context, data *SessionData) context.Context
	// EndSession ends the root session span.
	EndSession(ctx context.Context, err error)

	// StartBlock starts a block span.
	StartBlock(ctx context.Context, data *BlockData) context.Context
	// EndBlock ends a block span.
	EndBlock(ctx context.Context, err error)

	// StartTrial starts a trial span.
	StartTrial(ctx context.Context, index int, image string) context.Context
	// EndTrial ends a trial span with the evaluated trial data.
	EndTrial(ctx context.Context, data *TrialData, err error)

	// AddEvent adds an event to the current span.
	AddEvent(ctx context.Context, kind string, data any)

	// Finish completes the trace and performs any final operations.
	Finish(ctx context.Context) error
}
