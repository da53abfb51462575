package matching

import (
	"fmt"

	"mediatrack/internal/media"
	"mediatrack/internal/services"
)

// ErrNoCandidates is returned when there is nothing to choose from.
var ErrNoCandidates = fmt.Errorf("no candidates to match: %w", services.ErrNotFound)

// Candidate is one search hit returned by an external catalog.
type Candidate struct {
	Title       string    `json:"title"`
	PublishYear *int      `json:"publish_year,omitempty"`
	Lot         media.Lot `json:"lot"`
	// Identifier is unique within the catalog and lot.
	Identifier string `json:"identifier"`
}

// Query is the reference being resolved. OriginalTitle may carry season,
// episode, or year noise.
type Query struct {
	OriginalTitle string `json:"original_title"`
	PublishYear   *int   `json:"publish_year,omitempty"`
}

// Scored pairs a candidate with its score and input position.
type Scored struct {
	Candidate
	Position  int       `json:"position"`
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Year returns a pointer to year for populating optional year fields.
func Year(year int) *int {
	return &year
}
