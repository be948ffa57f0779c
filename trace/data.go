package trace

import "time"

// SessionData identifies the participant run traced by the root span.
type SessionData struct {
	SessionID   string `json:"session_id"`
	Participant int    `json:"participant"`
	Session     string `json:"session,omitempty"`
	Condition   string `json:"condition"`
}

// BlockData describes one block of trials.
type BlockData struct {
	Index      int    `json:"index"`
	Label      string `json:"label"`
	Half       int    `json:"half"`
	GoCategory string `json:"go_category"`
	Trials     int    `json:"trials"`
}

// TrialData is the trace view of a trial (simplified from gonogo.TrialOutcome).
type TrialData struct {
	Index        int            `json:"index"`
	Image        string         `json:"image"`
	Kind         string         `json:"kind"`
	Emotion      string         `json:"emotion,omitempty"`
	ISI          time.Duration  `json:"isi"`
	Response     string         `json:"response,omitempty"`
	Correct      bool           `json:"correct"`
	ReactionTime *time.Duration `json:"reaction_time,omitempty"`
	Frames       int            `json:"frames"`
	Feedback     string         `json:"feedback,omitempty"`
}

// EventData holds data of a point-in-time event such as a screen shown or the
// condition being reversed.
type EventData struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}
