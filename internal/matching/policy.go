package matching

// Policy holds every weight used by the scorer.
type Policy struct {
	// ExactTitle is the similarity base when titles are equal ignoring case.
	ExactTitle float64
	// SubstringFactor scales the length ratio when one title contains the other.
	SubstringFactor float64
	// ExactBonus is added when titles are equal ignoring case.
	ExactBonus float64
	// NormalizedExactBonus is added when titles are equal after dropping
	// punctuation and spacing.
	NormalizedExactBonus float64
	// PositionWindow candidates at the head of the list earn
	// PositionStep * (PositionWindow - pos).
	PositionWindow int
	PositionStep   float64
	YearExact      float64
	YearAdjacent   float64
	// EpisodeShow rewards a show when the reference has an episode marker.
	EpisodeShow float64
	// PlainMovie rewards a movie when the reference has no episode marker.
	PlainMovie float64
	// ExtraTokenPenalty is subtracted per candidate token absent from the reference.
	ExtraTokenPenalty float64
}

// DefaultPolicy returns the tuned weights.
func DefaultPolicy() Policy {
	return Policy{
		ExactTitle:           1.0,
		SubstringFactor:      0.5,
		ExactBonus:           1.0,
		NormalizedExactBonus: 0.6,
		PositionWindow:       5,
		PositionStep:         0.05,
		YearExact:            0.2,
		YearAdjacent:         0.1,
		EpisodeShow:          0.5,
		PlainMovie:           0.3,
		ExtraTokenPenalty:    0.1,
	}
}
