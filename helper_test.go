package gonogo_test

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/internal"
	"github.com/m-mizutani/gonogo/record"
)

// fakeClock only moves when Sleep is called (or by skew on Start).
type fakeClock struct {
	now    time.Time
	origin time.Time
	starts int
	skew   time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Start() {
	c.starts++
	c.origin = c.now
	c.now = c.now.Add(c.skew)
}

func (c *fakeClock) Origin() time.Time { return c.origin }

func (c *fakeClock) Elapsed() time.Duration { return c.now.Sub(c.origin) }

func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func (c *fakeClock) factory() gonogo.ClockFactory {
	return func() gonogo.Clock { return c }
}

// fakeInput replays a per-trial script of key events. An event is delivered
// by the first Poll at or after its timestamp.
type fakeInput struct {
	clock     *fakeClock
	script    map[int][]gonogo.KeyEvent
	delivered map[int]int
}

func newFakeInput(clock *fakeClock) *fakeInput {
	return &fakeInput{
		clock:     clock,
		script:    map[int][]gonogo.KeyEvent{},
		delivered: map[int]int{},
	}
}

// press schedules key in the given 1-based trial.
func (in *fakeInput) press(trial int, key gonogo.Key, at time.Duration) {
	in.script[trial] = append(in.script[trial], gonogo.KeyEvent{Key: key, At: at})
}

func (in *fakeInput) Poll(origin time.Time) []gonogo.KeyEvent {
	trial := in.clock.starts
	events := in.script[trial]
	elapsed := in.clock.now.Sub(origin)

	var out []gonogo.KeyEvent
	for in.delivered[trial] < len(events) && events[in.delivered[trial]].At <= elapsed {
		out = append(out, events[in.delivered[trial]])
		in.delivered[trial]++
	}
	return out
}

type frameRecord struct {
	kind string
	at   time.Duration
}

type fakeDisplay struct {
	clock    *fakeClock
	missing  map[string]bool
	staged   frameRecord
	frames   []frameRecord
	feedback []string
}

func newFakeDisplay(clock *fakeClock) *fakeDisplay {
	return &fakeDisplay{clock: clock, missing: map[string]bool{}}
}

func (d *fakeDisplay) Prepare(ctx context.Context, image string) error {
	if d.missing[image] {
		return goerr.Wrap(gonogo.ErrMissingAsset, "not found", goerr.V("image", image))
	}
	return nil
}

func (d *fakeDisplay) RenderStimulus(image string) {
	d.staged = frameRecord{kind: "stimulus", at: d.clock.Elapsed()}
}

func (d *fakeDisplay) RenderBlank() {
	d.staged = frameRecord{kind: "blank", at: d.clock.Elapsed()}
}

func (d *fakeDisplay) RenderFeedback(msg string) {
	d.staged = frameRecord{kind: "feedback", at: d.clock.Elapsed()}
	d.feedback = append(d.feedback, msg)
}

func (d *fakeDisplay) Present() error {
	d.frames = append(d.frames, d.staged)
	return nil
}

func (d *fakeDisplay) count(kind string) int {
	n := 0
	for _, f := range d.frames {
		if f.kind == kind {
			n++
		}
	}
	return n
}

func constISI(d time.Duration) gonogo.ISISampler {
	return func() time.Duration { return d }
}

type harness struct {
	clock   *fakeClock
	input   *fakeInput
	display *fakeDisplay
	engine  *gonogo.Engine
}

func newHarness(opts ...gonogo.Option) *harness {
	clock := newFakeClock()
	h := &harness{
		clock:   clock,
		input:   newFakeInput(clock),
		display: newFakeDisplay(clock),
	}
	opts = append([]gonogo.Option{
		gonogo.WithClockFactory(clock.factory()),
		gonogo.WithISISampler(constISI(400 * time.Millisecond)),
		gonogo.WithLogger(internal.TestLogger()),
	}, opts...)
	h.engine = gonogo.New(h.display, h.input, opts...)
	return h
}

// fakeSource returns the same two trials, one Go and one No-Go, for every
// block, picking images by the block's Go category.
type fakeSource struct {
	plans []gonogo.BlockPlan
	err   error
}

func (s *fakeSource) Trials(ctx context.Context, plan gonogo.BlockPlan) ([]gonogo.TrialSpec, error) {
	s.plans = append(s.plans, plan)
	if s.err != nil {
		return nil, s.err
	}
	goImage, noGoImage := "h01.png", "s01.png"
	if plan.GoCategory == gonogo.EmotionSad {
		goImage, noGoImage = noGoImage, goImage
	}
	return []gonogo.TrialSpec{
		{Image: goImage, Kind: gonogo.StimulusGo, Block: plan.Label},
		{Image: noGoImage, Kind: gonogo.StimulusNoGo, Block: plan.Label},
	}, nil
}

type fakePrompter struct {
	screens []gonogo.Screen
}

func (p *fakePrompter) Show(ctx context.Context, screen gonogo.Screen) error {
	p.screens = append(p.screens, screen)
	return nil
}

func (p *fakePrompter) names() []string {
	var names []string
	for _, s := range p.screens {
		names = append(names, s.Name)
	}
	return names
}

type fakeRater struct {
	ratings []int
	asked   []string
}

func (r *fakeRater) Rate(ctx context.Context, q gonogo.Question) (int, error) {
	r.asked = append(r.asked, q.ID)
	v := r.ratings[0]
	r.ratings = r.ratings[1:]
	return v, nil
}

// countingRepository counts saves of the session records.
type countingRepository struct {
	saves   int
	session *record.Session
}

func (r *countingRepository) Save(ctx context.Context, session *record.Session) error {
	r.saves++
	r.session = session
	return nil
}
