package gonogo

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// StimulusKind tells whether a trial requires a response (Go) or requires the
// participant to withhold it (No-Go).
type StimulusKind int

const (
	StimulusGo StimulusKind = iota
	StimulusNoGo
)

// String returns the label used in the output records.
func (x StimulusKind) String() string {
	return []string{"Go", "No-Go"}[x]
}

// ParseStimulusKind converts the stimulus field of a trial list row ("go" or
// "nogo") into a StimulusKind. Case and surrounding spaces are ignored, and
// "no-go" / "no_go" are accepted as aliases.
func ParseStimulusKind(s string) (StimulusKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go":
		return StimulusGo, nil
	case "nogo", "no-go", "no_go":
		return StimulusNoGo, nil
	}
	return 0, goerr.Wrap(ErrInvalidStimulus, "unknown stimulus kind", goerr.V("stimulus", s))
}

// Emotion is the facial expression shown by a stimulus image.
type Emotion int

const (
	EmotionHappy Emotion = iota
	EmotionSad
)

func (x Emotion) String() string {
	return []string{"Happy", "Sad"}[x]
}

// Opposite returns the other emotion category.
func (x Emotion) Opposite() Emotion {
	if x == EmotionHappy {
		return EmotionSad
	}
	return EmotionHappy
}

// Response is the participant's reaction within a trial window.
type Response int

const (
	ResponseNone Response = iota
	ResponseSpacePressed
)

func (x Response) String() string {
	return []string{"None", "SpacePressed"}[x]
}

// TrialSpec is one row of a block's trial list. It is never modified by the
// engine.
type TrialSpec struct {
	Image string
	Kind  StimulusKind
	Block string
}

// LogValue implements slog.LogValuer.
func (x TrialSpec) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("image", x.Image),
		slog.String("kind", x.Kind.String()),
		slog.String("block", x.Block),
	)
}

// TrialMeta carries the identity fields that are copied into every outcome.
type TrialMeta struct {
	Participant int
	Session     string
	Block       string
	Index       int
}

// TrialOutcome is the record produced by exactly one trial. ReactionTime is
// non-nil iff Response is ResponseSpacePressed, and is measured from stimulus
// onset.
type TrialOutcome struct {
	Participant  int
	Session      string
	Block        string
	Index        int
	Image        string
	ISI          time.Duration
	Kind         StimulusKind
	Emotion      Emotion
	Response     Response
	Correct      bool
	ReactionTime *time.Duration

	// Frames is the number of frames presented during the timed window.
	Frames int
	// Feedback is the message shown after the window, empty when none.
	Feedback string
}

// ISISeconds returns the inter-stimulus interval in seconds.
func (x *TrialOutcome) ISISeconds() float64 {
	return x.ISI.Seconds()
}

// ReactionTimeSeconds returns the reaction time in seconds and false when the
// participant did not respond.
func (x *TrialOutcome) ReactionTimeSeconds() (float64, bool) {
	if x.ReactionTime == nil {
		return 0, false
	}
	return x.ReactionTime.Seconds(), true
}

// LogValue implements slog.LogValuer.
func (x *TrialOutcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("block", x.Block),
		slog.Int("index", x.Index),
		slog.String("image", x.Image),
		slog.Duration("isi", x.ISI),
		slog.String("kind", x.Kind.String()),
		slog.String("emotion", x.Emotion.String()),
		slog.String("response", x.Response.String()),
		slog.Bool("correct", x.Correct),
	}
	if x.ReactionTime != nil {
		attrs = append(attrs, slog.Duration("rt", *x.ReactionTime))
	}
	return slog.GroupValue(attrs...)
}

const (
	RatingMin = 1
	RatingMax = 5
)

// QuestionnaireResponse is one answer of the post-task rating questionnaire.
type QuestionnaireResponse struct {
	Participant int    `json:"participant"`
	QuestionID  string `json:"question_id"`
	Rating      int    `json:"rating"`
}

// Validate checks that the rating lies on the fixed ordinal scale.
func (x QuestionnaireResponse) Validate() error {
	if x.QuestionID == "" {
		return goerr.Wrap(ErrInvalidRating, "question ID is empty")
	}
	if x.Rating < RatingMin || x.Rating > RatingMax {
		return goerr.Wrap(ErrInvalidRating, "rating out of scale",
			goerr.V("question_id", x.QuestionID),
			goerr.V("rating", x.Rating),
		)
	}
	return nil
}
