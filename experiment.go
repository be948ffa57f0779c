package gonogo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/trace"
)

const DefaultBlocksPerHalf = 3

// Participant identifies who runs the session.
type Participant struct {
	ID      int
	Session string
}

// ExampleSource is optionally implemented by a TrialSource that can pick an
// example image of an emotion for the instruction screens.
type ExampleSource interface {
	Example(ctx context.Context, emotion Emotion) (string, error)
}

// Experiment runs a full session: instructions, two halves of blocks with the
// Go category reversed once in between, the rating questionnaire, and the
// final flush of the recorder.
type Experiment struct {
	engine   *Engine
	source   TrialSource
	recorder Recorder
	prompter Prompter

	experimentConfig
}

type experimentConfig struct {
	blocksPerHalf int
	sessionID     string

	rater     Rater
	questions []Question

	trialHook    TrialHook
	blockHook    BlockHook
	traceHandler trace.Handler
	logger       *slog.Logger
}

// ExperimentOption configures an Experiment.
type ExperimentOption func(*experimentConfig)

// WithBlocksPerHalf sets the number of blocks before and after the reversal.
// Default is 3.
func WithBlocksPerHalf(n int) ExperimentOption {
	return func(c *experimentConfig) {
		c.blocksPerHalf = n
	}
}

// WithSessionID sets the session ID. Default is a new UUID v7.
func WithSessionID(id string) ExperimentOption {
	return func(c *experimentConfig) {
		c.sessionID = id
	}
}

// WithQuestions enables the post-task questionnaire, asked through rater.
func WithQuestions(rater Rater, questions ...Question) ExperimentOption {
	return func(c *experimentConfig) {
		c.rater = rater
		c.questions = append(c.questions, questions...)
	}
}

// WithExperimentTrialHook is passed to every BlockRunner as WithTrialHook.
func WithExperimentTrialHook(hook TrialHook) ExperimentOption {
	return func(c *experimentConfig) {
		c.trialHook = hook
	}
}

// WithExperimentBlockHook is passed to every BlockRunner as WithBlockHook.
func WithExperimentBlockHook(hook BlockHook) ExperimentOption {
	return func(c *experimentConfig) {
		c.blockHook = hook
	}
}

// WithTraceHandler sets the trace handler receiving session, block and trial
// events. Use trace.Multi to combine handlers.
func WithTraceHandler(h trace.Handler) ExperimentOption {
	return func(c *experimentConfig) {
		c.traceHandler = h
	}
}

// WithExperimentLogger sets the logger. Default is discard logger.
func WithExperimentLogger(logger *slog.Logger) ExperimentOption {
	return func(c *experimentConfig) {
		c.logger = logger
	}
}

// NewExperiment creates an Experiment.
func NewExperiment(engine *Engine, source TrialSource, recorder Recorder, prompter Prompter, options ...ExperimentOption) *Experiment {
	x := &Experiment{
		engine:   engine,
		source:   source,
		recorder: recorder,
		prompter: prompter,
		experimentConfig: experimentConfig{
			blocksPerHalf: DefaultBlocksPerHalf,
			trialHook:     defaultTrialHook,
			blockHook:     defaultBlockHook,
			logger:        slog.New(slog.DiscardHandler),
		},
	}
	for _, opt := range options {
		opt(&x.experimentConfig)
	}
	return x
}

// Run executes the session for p. The recorder is flushed exactly once,
// whether the session completes, fails, or is aborted. On abort no further
// screens are shown and the returned error wraps ErrUserAbort.
func (x *Experiment) Run(ctx context.Context, p Participant) (err error) {
	if x.blocksPerHalf <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "blocks per half must be positive", goerr.V("blocks_per_half", x.blocksPerHalf))
	}

	sessionID := x.sessionID
	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV7()).String()
	}

	condition := Assign(p.ID)
	logger := x.logger.With("session_id", sessionID, "participant", p.ID)
	ctx = ctxWithLogger(ctx, logger)

	logger.Info("session started",
		"session", p.Session,
		"condition", condition,
		"blocks_per_half", x.blocksPerHalf,
	)

	if h := x.traceHandler; h != nil {
		ctx = trace.WithHandler(ctx, h)
		ctx = h.StartSession(ctx, &trace.SessionData{
			SessionID:   sessionID,
			Participant: p.ID,
			Session:     p.Session,
			Condition:   condition.String(),
		})
	}

	defer func() {
		// Persisting must survive a cancelled context.
		flushCtx := context.WithoutCancel(ctx)
		if flushErr := x.recorder.Flush(flushCtx); flushErr != nil {
			flushErr = goerr.Wrap(flushErr, "failed to flush session records")
			if err == nil {
				err = flushErr
			} else {
				err = errors.Join(err, flushErr)
			}
		}

		if h := x.traceHandler; h != nil {
			h.EndSession(ctx, err)
			if finErr := h.Finish(flushCtx); finErr != nil {
				logger.Warn("failed to finish trace", "error", finErr)
			}
		}

		switch {
		case errors.Is(err, ErrUserAbort):
			logger.Warn("session aborted", "error", err)
		case err != nil:
			logger.Error("session failed", "error", err)
		default:
			logger.Info("session completed")
		}
	}()

	if err := x.show(ctx, WelcomeScreen(x.engine.responseKey)); err != nil {
		return err
	}

	runner := NewBlockRunner(x.engine, x.recorder,
		WithTrialHook(x.trialHook),
		WithBlockHook(x.blockHook),
	)

	current := condition
	for half := 1; half <= 2; half++ {
		if half == 2 {
			current = Reverse(current)
			logger.Info("condition reversed", "condition", current, "go_category", GoCategory(current))
			if h := x.traceHandler; h != nil {
				h.AddEvent(ctx, "condition_reversed", map[string]string{
					"condition":   current.String(),
					"go_category": GoCategory(current).String(),
				})
			}
		}

		screen := HalfScreen(half, 2, GoCategory(current))
		screen.Examples = x.examples(ctx, current)
		if err := x.show(ctx, screen); err != nil {
			return err
		}

		for b := 1; b <= x.blocksPerHalf; b++ {
			index := (half-1)*x.blocksPerHalf + b
			plan := BlockPlan{
				Index:      index,
				Label:      blockLabel(index),
				Half:       half,
				GoCategory: GoCategory(current),
			}

			trials, err := x.source.Trials(ctx, plan)
			if err != nil {
				return goerr.Wrap(err, "failed to load trials", goerr.V("block", plan.Label))
			}

			if err := runner.Run(ctx, trials, Block{Plan: plan, Participant: p.ID, Session: p.Session}); err != nil {
				return err
			}
		}
	}

	if err := x.askQuestions(ctx, p); err != nil {
		return err
	}

	return x.show(ctx, GoodbyeScreen())
}

func (x *Experiment) show(ctx context.Context, screen Screen) error {
	if h := x.traceHandler; h != nil {
		h.AddEvent(ctx, "screen", screen.Name)
	}
	if err := x.prompter.Show(ctx, screen); err != nil {
		return goerr.Wrap(err, "failed to show screen", goerr.V("screen", screen.Name))
	}
	return nil
}

func (x *Experiment) examples(ctx context.Context, c Condition) map[string]string {
	src, ok := x.source.(ExampleSource)
	if !ok {
		return nil
	}

	examples := map[string]string{}
	for caption, emotion := range map[string]Emotion{
		"Go-stimulus":    GoCategory(c),
		"No-Go-stimulus": NoGoCategory(c),
	} {
		image, err := src.Example(ctx, emotion)
		if err != nil {
			LoggerFromContext(ctx).Warn("no example image", "emotion", emotion, "error", err)
			return nil
		}
		examples[caption] = image
	}
	return examples
}

func (x *Experiment) askQuestions(ctx context.Context, p Participant) error {
	if x.rater == nil || len(x.questions) == 0 {
		return nil
	}

	if err := x.show(ctx, QuestionnaireScreen()); err != nil {
		return err
	}

	for _, q := range x.questions {
		rating, err := x.rater.Rate(ctx, q)
		if err != nil {
			return goerr.Wrap(err, "failed to collect rating", goerr.V("question_id", q.ID))
		}

		resp := QuestionnaireResponse{
			Participant: p.ID,
			QuestionID:  q.ID,
			Rating:      rating,
		}
		if err := resp.Validate(); err != nil {
			return err
		}
		if err := x.recorder.AppendQuestionnaire(ctx, resp); err != nil {
			return goerr.Wrap(err, "failed to record rating", goerr.V("question_id", q.ID))
		}
	}
	return nil
}
