package models

// SourceEntry is one structured entry parsed from the external reference
// source's multi-id response. It is the crawler's and enrichment stage's
// view of upstream data before it becomes a CatalogEntry.
type SourceEntry struct {
	ExternalID  string   `json:"external_id"`
	Title       string   `json:"title"`
	ImageURL    string   `json:"image_url,omitempty"`
	Description string   `json:"description,omitempty"`
	YearMade    int      `json:"year_made,omitempty"`
	MinPlayers  int      `json:"min_players,omitempty"`
	MaxPlayers  int      `json:"max_players,omitempty"`
	PlaytimeMin int      `json:"playtime_min,omitempty"` // minutes
	Weight      float64  `json:"weight,omitempty"`       // 1.0-5.0 complexity rating
	Mechanics   []string `json:"mechanics,omitempty"`
	Designers   []string `json:"designers,omitempty"`
	IsExpansion bool     `json:"is_expansion,omitempty"`
}
