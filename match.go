package pegc

// MatchResult is the static classification of an expression: whether
// it always, sometimes or never succeeds regardless of the input.
type MatchResult int

const (
	MatchNever     MatchResult = -1
	MatchSometimes MatchResult = 0
	MatchAlways    MatchResult = 1
)

func (m MatchResult) String() string {
	switch m {
	case MatchNever:
		return "never"
	case MatchAlways:
		return "always"
	default:
		return "sometimes"
	}
}

// Negate swaps always and never.  Sometimes stays sometimes.
func (m MatchResult) Negate() MatchResult {
	return -m
}
