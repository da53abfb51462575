package appcache

import (
	"time"

	"mediatrack/internal/cachekey"
	"mediatrack/internal/matching"
	"mediatrack/internal/media"
)

// Global singletons.
var (
	// CoreDetails embeds the process version, so it is version checked.
	CoreDetails = cachekey.Define[cachekey.Global, CoreDetailsValue](
		"core_details", cachekey.Policy{TTL: cachekey.Medium, Versioned: true})
	TmdbSettings = cachekey.Define[cachekey.Global, TmdbSettingsValue](
		"tmdb_settings", cachekey.Policy{TTL: cachekey.Long})
	IgdbSettings = cachekey.Define[cachekey.Global, IgdbSettingsValue](
		"igdb_settings", cachekey.Policy{TTL: cachekey.Long})
	ListennotesSettings = cachekey.Define[cachekey.Global, ListennotesSettingsValue](
		"listennotes_settings", cachekey.Policy{TTL: cachekey.Long})
)

// Per-user variants.
var (
	MetadataSearch = cachekey.Define[cachekey.UserInput[MetadataSearchInput], MetadataSearchValue](
		"metadata_search", cachekey.Policy{TTL: cachekey.Short})
	PeopleSearch = cachekey.Define[cachekey.UserInput[PeopleSearchInput], PeopleSearchValue](
		"people_search", cachekey.Policy{TTL: cachekey.Short})
	MetadataGroupSearch = cachekey.Define[cachekey.UserInput[MetadataGroupSearchInput], MetadataGroupSearchValue](
		"metadata_group_search", cachekey.Policy{TTL: cachekey.Short})
	MetadataRecentlyConsumed = cachekey.Define[cachekey.UserInput[MetadataRecentlyConsumedInput], bool](
		"metadata_recently_consumed", cachekey.Policy{TTL: cachekey.Short})
	UserCollectionsList = cachekey.Define[cachekey.User, UserCollectionsListValue](
		"user_collections_list", cachekey.Policy{TTL: cachekey.Medium})
	UserAnalyticsParameters = cachekey.Define[cachekey.UserInput[DateRange], UserAnalyticsParametersValue](
		"user_analytics_parameters", cachekey.Policy{TTL: cachekey.Medium})
	ProgressUpdateCache = cachekey.Define[cachekey.UserInput[ProgressUpdateInput], ProgressUpdateValue](
		"progress_update_cache", cachekey.Policy{TTL: cachekey.ProgressWindow})
)

// CoreDetailsValue describes the running server.
type CoreDetailsValue struct {
	Version        string    `json:"version"`
	PageSize       int       `json:"page_size"`
	TMDBEnabled    bool      `json:"tmdb_enabled"`
	ProgressWindow string    `json:"progress_window"`
	SupportedLots  []string  `json:"supported_lots"`
	ComputedAt     time.Time `json:"computed_at"`
}

// TmdbSettingsValue is a snapshot of the TMDB /configuration endpoint.
type TmdbSettingsValue struct {
	ImageBaseURL string   `json:"image_base_url"`
	PosterSizes  []string `json:"poster_sizes"`
	ChangeKeys   []string `json:"change_keys,omitempty"`
}

// IgdbSettingsValue holds IGDB access details.
type IgdbSettingsValue struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ListennotesSettingsValue maps Listen Notes genre ids to names.
type ListennotesSettingsValue struct {
	Genres map[int]string `json:"genres"`
}

// MetadataSearchInput identifies one page of a catalog search.
type MetadataSearchInput struct {
	Query  string    `json:"query"`
	Lot    media.Lot `json:"lot"`
	Source string    `json:"source"`
	Page   int       `json:"page"`
	// Year is zero when unknown.
	Year int `json:"year,omitempty"`
}

// MetadataSearchValue is one page of catalog search results.
type MetadataSearchValue struct {
	Items   []matching.Candidate `json:"items"`
	Total   int                  `json:"total"`
	HasMore bool                 `json:"has_more"`
}

// PeopleSearchInput identifies one page of a people search.
type PeopleSearchInput struct {
	Query  string `json:"query"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// PersonResult is a person returned by a catalog.
type PersonResult struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// PeopleSearchValue is one page of people search results.
type PeopleSearchValue struct {
	Items []PersonResult `json:"items"`
	Total int            `json:"total"`
}

// MetadataGroupSearchInput identifies a search for collections or franchises.
type MetadataGroupSearchInput struct {
	Query  string    `json:"query"`
	Lot    media.Lot `json:"lot"`
	Source string    `json:"source"`
	Page   int       `json:"page"`
}

// GroupResult is a collection or franchise returned by a catalog.
type GroupResult struct {
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	Lot        media.Lot `json:"lot"`
	Parts      int       `json:"parts"`
}

// MetadataGroupSearchValue is one page of group search results.
type MetadataGroupSearchValue struct {
	Items []GroupResult `json:"items"`
	Total int           `json:"total"`
}

// MetadataRecentlyConsumedInput marks an item the user just consumed.
type MetadataRecentlyConsumedInput struct {
	EntityID string    `json:"entity_id"`
	Lot      media.Lot `json:"lot"`
}

// Collection is a user collection summary.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	IsDefault   bool   `json:"is_default"`
	Description string `json:"description,omitempty"`
}

// UserCollectionsListValue lists a user's collections.
type UserCollectionsListValue struct {
	Collections []Collection `json:"collections"`
}

// DateRange bounds an analytics query. Dates are YYYY-MM-DD; empty means open.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// UserAnalyticsParametersValue lists the filter options available to a user.
type UserAnalyticsParametersValue struct {
	Lots       []media.Lot `json:"lots"`
	EarliestAt time.Time   `json:"earliest_at"`
	LatestAt   time.Time   `json:"latest_at"`
}

// ProgressUpdateInput identifies a progress update for coalescing.
type ProgressUpdateInput struct {
	MetadataID string `json:"metadata_id"`
	Progress   int    `json:"progress"`
	// Season and Episode are zero for items without episodes.
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
}

// ProgressUpdateValue records when the coalesced update was accepted.
type ProgressUpdateValue struct {
	RecordedAt time.Time `json:"recorded_at"`
}
