package gonogo

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/trace"
)

const (
	DefaultStimulusDuration = 250 * time.Millisecond
	DefaultISIMin           = 200 * time.Millisecond
	DefaultISIMax           = 1000 * time.Millisecond
	DefaultFeedbackDuration = 1500 * time.Millisecond
	DefaultPollInterval     = time.Millisecond
)

const (
	FeedbackMissedGo   = "You should have responded"
	FeedbackFalseAlarm = "You should not have responded"
)

// ISISampler draws the inter-stimulus interval of one trial.
type ISISampler func() time.Duration

// UniformISI returns a sampler drawing uniformly from [min, max) with r.
func UniformISI(min, max time.Duration, r *rand.Rand) ISISampler {
	return func() time.Duration {
		return min + time.Duration(r.Float64()*float64(max-min))
	}
}

// Engine runs single Go/No-Go trials: it presents the stimulus, polls input in
// the same loop, evaluates the latched response and shows deferred feedback.
type Engine struct {
	display Display
	input   Input

	engineConfig
}

type engineConfig struct {
	stimulusDuration time.Duration
	isiMin           time.Duration
	isiMax           time.Duration
	feedbackDuration time.Duration
	pollInterval     time.Duration

	responseKey Key
	abortKey    Key

	feedbackMissedGo   string
	feedbackFalseAlarm string

	isiSampler   ISISampler
	seed         *int64
	clockFactory ClockFactory
	emotionRule  EmotionRule
	logger       *slog.Logger
}

// Option is the type for the options of the trial engine.
type Option func(*engineConfig)

// New creates a trial engine drawing on display and reading keys from input.
func New(display Display, input Input, options ...Option) *Engine {
	e := &Engine{
		display: display,
		input:   input,
		engineConfig: engineConfig{
			stimulusDuration: DefaultStimulusDuration,
			isiMin:           DefaultISIMin,
			isiMax:           DefaultISIMax,
			feedbackDuration: DefaultFeedbackDuration,
			pollInterval:     DefaultPollInterval,

			responseKey: KeySpace,
			abortKey:    KeyEscape,

			feedbackMissedGo:   FeedbackMissedGo,
			feedbackFalseAlarm: FeedbackFalseAlarm,

			clockFactory: NewClock,
			emotionRule:  DefaultCharRule.Rule(),
		},
	}

	for _, opt := range options {
		opt(&e.engineConfig)
	}

	if e.isiSampler == nil {
		src := rand.NewPCG(rand.Uint64(), rand.Uint64())
		if e.seed != nil {
			src = rand.NewPCG(uint64(*e.seed), uint64(*e.seed)^0x9e3779b97f4a7c15)
		}
		e.isiSampler = UniformISI(e.isiMin, e.isiMax, rand.New(src))
	}

	return e
}

// WithStimulusDuration sets how long the stimulus stays on screen. Default is 250ms.
func WithStimulusDuration(d time.Duration) Option {
	return func(c *engineConfig) {
		c.stimulusDuration = d
	}
}

// WithISIRange sets the bounds of the uniformly drawn inter-stimulus interval,
// [min, max). Default is [200ms, 1000ms). Ignored when WithISISampler is set.
func WithISIRange(min, max time.Duration) Option {
	return func(c *engineConfig) {
		c.isiMin = min
		c.isiMax = max
	}
}

// WithISISampler replaces the ISI random source, e.g. with a fixed value in tests.
func WithISISampler(sampler ISISampler) Option {
	return func(c *engineConfig) {
		c.isiSampler = sampler
	}
}

// WithSeed makes the ISI sequence reproducible across runs.
func WithSeed(seed int64) Option {
	return func(c *engineConfig) {
		c.seed = &seed
	}
}

// WithFeedbackDuration sets how long feedback stays on screen after an
// incorrect trial. Default is 1.5s.
func WithFeedbackDuration(d time.Duration) Option {
	return func(c *engineConfig) {
		c.feedbackDuration = d
	}
}

// WithFeedbackMessages overrides the texts shown after a missed Go trial and
// after a response on a No-Go trial.
func WithFeedbackMessages(missedGo, falseAlarm string) Option {
	return func(c *engineConfig) {
		c.feedbackMissedGo = missedGo
		c.feedbackFalseAlarm = falseAlarm
	}
}

// WithPollInterval sets the sleep between loop passes. Default is 1ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *engineConfig) {
		c.pollInterval = d
	}
}

// WithKeys sets the response key (default space) and the abort key (default escape).
func WithKeys(response, abort Key) Option {
	return func(c *engineConfig) {
		c.responseKey = response
		c.abortKey = abort
	}
}

// WithClockFactory sets the constructor of the per-trial clock.
func WithClockFactory(factory ClockFactory) Option {
	return func(c *engineConfig) {
		c.clockFactory = factory
	}
}

// WithEmotionRule sets how the emotion label is derived from the image.
func WithEmotionRule(rule EmotionRule) Option {
	return func(c *engineConfig) {
		c.emotionRule = rule
	}
}

// WithLogger sets the logger of the engine. Default is the logger in the
// context, which is a discard logger unless the experiment attached one.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

func (c *engineConfig) validate() error {
	switch {
	case c.stimulusDuration <= 0:
		return goerr.Wrap(ErrInvalidConfig, "stimulus duration must be positive", goerr.V("stimulus", c.stimulusDuration))
	case c.isiMin < 0 || c.isiMax <= c.isiMin:
		return goerr.Wrap(ErrInvalidConfig, "invalid ISI range", goerr.V("min", c.isiMin), goerr.V("max", c.isiMax))
	case c.feedbackDuration < 0:
		return goerr.Wrap(ErrInvalidConfig, "feedback duration must not be negative", goerr.V("feedback", c.feedbackDuration))
	case c.pollInterval < 0:
		return goerr.Wrap(ErrInvalidConfig, "poll interval must not be negative", goerr.V("poll", c.pollInterval))
	case c.responseKey == "" || c.abortKey == "" || c.responseKey == c.abortKey:
		return goerr.Wrap(ErrInvalidConfig, "response and abort keys must be distinct", goerr.V("response", c.responseKey), goerr.V("abort", c.abortKey))
	case c.clockFactory == nil || c.emotionRule == nil || c.isiSampler == nil:
		return goerr.Wrap(ErrInvalidConfig, "clock factory, emotion rule and ISI sampler are required")
	}
	return nil
}

// RunTrial executes one trial and returns its outcome. It returns an error
// wrapping ErrUserAbort when the abort key is pressed (or ctx is cancelled);
// in that case no outcome is produced.
func (e *Engine) RunTrial(ctx context.Context, spec TrialSpec, meta TrialMeta) (outcome *TrialOutcome, err error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	logger := e.logger
	if logger == nil {
		logger = LoggerFromContext(ctx)
	}

	if h := trace.HandlerFrom(ctx); h != nil {
		ctx = h.StartTrial(ctx, meta.Index, spec.Image)
		defer func() {
			h.EndTrial(ctx, outcome.traceData(), err)
		}()
	}

	emotion, err := e.emotionRule(spec.Image)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive emotion", goerr.V("image", spec.Image))
	}
	if err := e.display.Prepare(ctx, spec.Image); err != nil {
		return nil, goerr.Wrap(err, "failed to prepare stimulus", goerr.V("image", spec.Image), goerr.V("block", meta.Block))
	}

	isi := e.isiSampler()
	total := e.stimulusDuration + isi
	state := newTrialState(e.responseKey, e.abortKey, total)

	logger.Debug("trial started",
		"spec", spec,
		"index", meta.Index,
		"isi", isi,
		"total", total,
	)

	clock := e.clockFactory()
	clock.Start()
	origin := clock.Origin()

	frames := 0
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, goerr.Wrap(ErrUserAbort, "trial interrupted", goerr.V("cause", ctxErr.Error()), goerr.V("image", spec.Image))
		}

		elapsed := clock.Elapsed()
		phase := PhaseAt(elapsed, e.stimulusDuration, total)
		if phase == PhaseEvaluating {
			break
		}

		if phase == PhasePresenting {
			e.display.RenderStimulus(spec.Image)
		} else {
			e.display.RenderBlank()
		}
		if err := e.display.Present(); err != nil {
			return nil, goerr.Wrap(err, "failed to present frame", goerr.V("image", spec.Image), goerr.V("elapsed", elapsed))
		}
		frames++

		state.observe(e.input.Poll(origin))
		if state.aborted {
			return nil, goerr.Wrap(ErrUserAbort, "abort key pressed", goerr.V("image", spec.Image), goerr.V("at", state.abortAt))
		}

		clock.Sleep(e.pollInterval)
	}

	// Drain what arrived between the last poll and the end of the window.
	state.observe(e.input.Poll(origin))
	if state.aborted {
		return nil, goerr.Wrap(ErrUserAbort, "abort key pressed", goerr.V("image", spec.Image), goerr.V("at", state.abortAt))
	}
	if frames == 0 {
		return nil, goerr.Wrap(ErrTimingOverrun, "no frame presented", goerr.V("image", spec.Image), goerr.V("total", total))
	}

	outcome = &TrialOutcome{
		Participant: meta.Participant,
		Session:     meta.Session,
		Block:       meta.Block,
		Index:       meta.Index,
		Image:       spec.Image,
		ISI:         isi,
		Kind:        spec.Kind,
		Emotion:     emotion,
		Response:    ResponseNone,
		Frames:      frames,
	}
	if state.responded {
		rt := state.rt
		outcome.Response = ResponseSpacePressed
		outcome.ReactionTime = &rt
	}
	outcome.Correct = Evaluate(spec.Kind, outcome.Response)
	if !outcome.Correct {
		outcome.Feedback = e.feedbackMessage(spec.Kind)
	}

	if outcome.Feedback != "" {
		e.display.RenderFeedback(outcome.Feedback)
		if err := e.display.Present(); err != nil {
			return nil, goerr.Wrap(err, "failed to present feedback", goerr.V("image", spec.Image))
		}
		clock.Sleep(e.feedbackDuration)
	}

	logger.Debug("trial evaluated", "outcome", outcome)
	return outcome, nil
}

func (e *Engine) feedbackMessage(kind StimulusKind) string {
	if kind == StimulusGo {
		return e.feedbackMissedGo
	}
	return e.feedbackFalseAlarm
}

// Evaluate applies the Go/No-Go truth table: a response is correct on Go
// trials and withholding is correct on No-Go trials.
func Evaluate(kind StimulusKind, resp Response) bool {
	responded := resp == ResponseSpacePressed
	if kind == StimulusGo {
		return responded
	}
	return !responded
}

func (x *TrialOutcome) traceData() *trace.TrialData {
	if x == nil {
		return nil
	}
	return &trace.TrialData{
		Index:        x.Index,
		Image:        x.Image,
		Kind:         x.Kind.String(),
		Emotion:      x.Emotion.String(),
		ISI:          x.ISI,
		Response:     x.Response.String(),
		Correct:      x.Correct,
		ReactionTime: x.ReactionTime,
		Frames:       x.Frames,
		Feedback:     x.Feedback,
	}
}
