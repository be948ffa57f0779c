package gonogo

import (
	"context"
	"time"
)

// Key identifies a keyboard key as reported by the Input device.
type Key string

const (
	KeySpace    Key = "space"
	KeyEscape   Key = "escape"
	KeyContinue Key = "f"
)

// KeyEvent is a key press with its timestamp relative to the origin passed to
// Input.Poll. Presses that happened before the origin have a negative At.
type KeyEvent struct {
	Key Key
	At  time.Duration
}

// Display draws frames. Render* calls only stage the next frame; Present flips
// it to the screen.
type Display interface {
	// Prepare loads the image so the timed loop never waits on I/O. It returns
	// ErrMissingAsset when the image cannot be located.
	Prepare(ctx context.Context, image string) error
	RenderStimulus(image string)
	RenderBlank()
	RenderFeedback(msg string)
	Present() error
}

// Input is a keyboard queue. Poll drains every event received since the
// previous Poll; nothing is dropped between calls.
type Input interface {
	Poll(origin time.Time) []KeyEvent
}

// Screen is a fixed-text screen shown outside the timed path.
type Screen struct {
	Name string
	Text string
	// Examples are optional image paths shown under the text, keyed by caption.
	Examples map[string]string
}

// Prompter shows a Screen and blocks until the continue key is pressed.
type Prompter interface {
	Show(ctx context.Context, screen Screen) error
}

// Question is one item of the rating questionnaire.
type Question struct {
	ID   string
	Text string
}

// Rater collects one rating on the RatingMin..RatingMax scale.
type Rater interface {
	Rate(ctx context.Context, q Question) (int, error)
}

// TrialSource supplies the already shuffled trial list of a block.
type TrialSource interface {
	Trials(ctx context.Context, plan BlockPlan) ([]TrialSpec, error)
}

// Recorder is the append-only session log. Flush persists everything that was
// appended and may only happen once.
type Recorder interface {
	Append(ctx context.Context, outcome *TrialOutcome) error
	AppendQuestionnaire(ctx context.Context, resp QuestionnaireResponse) error
	Flush(ctx context.Context) error
}
