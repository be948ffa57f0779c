package gonogo

import "errors"

var (
	// ErrUserAbort is returned when the abort key is observed. It is a
	// termination path rather than a failure: callers flush and exit.
	ErrUserAbort = errors.New("aborted by user")

	ErrMissingAsset    = errors.New("stimulus asset not found")
	ErrTimingOverrun   = errors.New("trial window closed before first frame")
	ErrUnknownEmotion  = errors.New("cannot derive emotion from image")
	ErrInvalidStimulus = errors.New("invalid stimulus kind")
	ErrInvalidRating   = errors.New("invalid questionnaire rating")
	ErrRecorderFlushed = errors.New("recorder already flushed")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEmptyTrialList  = errors.New("trial list is empty")
)
