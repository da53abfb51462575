package tmdb

import (
	"strconv"

	"mediatrack/internal/matching"
	"mediatrack/internal/media"
)

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	MediaType    string  `json:"media_type"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Configuration is the subset of /configuration mediatrack keeps.
type Configuration struct {
	Images struct {
		SecureBaseURL string   `json:"secure_base_url"`
		PosterSizes   []string `json:"poster_sizes"`
	} `json:"images"`
	ChangeKeys []string `json:"change_keys"`
}

// DisplayTitle returns the movie title or the show name.
func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year parses the year from the release or first air date. It returns nil
// when neither date carries a year.
func (r Result) Year() *int {
	for _, date := range []string{r.ReleaseDate, r.FirstAirDate} {
		if len(date) < 4 {
			continue
		}
		year, err := strconv.Atoi(date[:4])
		if err != nil || year <= 0 {
			continue
		}
		return &year
	}
	return nil
}

// Lot maps the result to a media lot. fallback applies when the result has
// no media type of its own, as with movie and TV searches.
func (r Result) Lot(fallback media.Lot) media.Lot {
	switch r.MediaType {
	case "movie":
		return media.LotMovie
	case "tv":
		return media.LotShow
	case "":
		return fallback
	default:
		return media.LotUnknown
	}
}

// Candidates converts the response into match candidates in TMDB order.
// fallback is the lot of the searched endpoint; pass LotUnknown for multi
// search. People and untitled results are skipped.
func (r *Response) Candidates(fallback media.Lot) []matching.Candidate {
	if r == nil {
		return nil
	}
	out := make([]matching.Candidate, 0, len(r.Results))
	for _, result := range r.Results {
		lot := result.Lot(fallback)
		title := result.DisplayTitle()
		if lot == media.LotUnknown || title == "" {
			continue
		}
		out = append(out, matching.Candidate{
			Title:       title,
			PublishYear: result.Year(),
			Lot:         lot,
			Identifier:  strconv.FormatInt(result.ID, 10),
		})
	}
	return out
}

// HasMore reports whether later pages exist.
func (r *Response) HasMore() bool {
	return r != nil && r.Page > 0 && r.Page < r.TotalPages
}
