package gonogo

import (
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// EmotionRule derives the emotion label of a stimulus from its image
// identifier. It never looks at the stimulus kind, so both halves of a session
// label the same image identically.
type EmotionRule func(image string) (Emotion, error)

// CharRule reads one designated character of the file name (without directory
// and extension). A negative Index counts from the end of the name. Matching
// is case-insensitive.
type CharRule struct {
	Index int
	Happy byte
	Sad   byte
}

// DefaultCharRule reads the first character: "h..." is happy, "s..." is sad.
var DefaultCharRule = CharRule{Index: 0, Happy: 'h', Sad: 's'}

// Rule returns the EmotionRule form of the CharRule.
func (x CharRule) Rule() EmotionRule {
	return x.Derive
}

// Derive returns the emotion encoded in image.
func (x CharRule) Derive(image string) (Emotion, error) {
	base := filepath.Base(image)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	idx := x.Index
	if idx < 0 {
		idx = len(stem) + idx
	}
	if idx < 0 || idx >= len(stem) {
		return 0, goerr.Wrap(ErrUnknownEmotion, "designated character out of range",
			goerr.V("image", image),
			goerr.V("index", x.Index),
		)
	}

	c := lower(stem[idx])
	switch c {
	case lower(x.Happy):
		return EmotionHappy, nil
	case lower(x.Sad):
		return EmotionSad, nil
	}
	return 0, goerr.Wrap(ErrUnknownEmotion, "unexpected emotion code",
		goerr.V("image", image),
		goerr.V("code", string(c)),
	)
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
