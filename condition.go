package gonogo

// Condition is the counterbalancing assignment of a participant. It decides
// which emotion category is the Go stimulus in the current half of the session.
type Condition int

const (
	// ConditionA makes happy faces the Go stimulus first (even participant IDs).
	ConditionA Condition = iota
	// ConditionB makes sad faces the Go stimulus first (odd participant IDs).
	ConditionB
)

func (x Condition) String() string {
	return []string{"A", "B"}[x]
}

// Assign maps a participant ID to its condition by parity.
func Assign(participantID int) Condition {
	if participantID%2 == 0 {
		return ConditionA
	}
	return ConditionB
}

// Reverse swaps the polarity. Reverse(Reverse(c)) == c.
func Reverse(c Condition) Condition {
	if c == ConditionA {
		return ConditionB
	}
	return ConditionA
}

// Reverse is the method form of Reverse.
func (x Condition) Reverse() Condition {
	return Reverse(x)
}

// GoCategory returns the emotion that requires a response under c.
func GoCategory(c Condition) Emotion {
	if c == ConditionA {
		return EmotionHappy
	}
	return EmotionSad
}

// NoGoCategory returns the emotion that requires withholding under c.
func NoGoCategory(c Condition) Emotion {
	return GoCategory(c).Opposite()
}
