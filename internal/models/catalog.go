// -----------------------------------------------------------------------
// Catalog entities - Reference catalog populated by imports and the crawler
// -----------------------------------------------------------------------

package models

import "time"

// CatalogEntry is one game in the reference catalog, keyed by external id
// when one is known. Entries are upsert targets: imports and crawler runs
// may both write the same entry and the write must be idempotent.
type CatalogEntry struct {
	ID         string `json:"id" badgerhold:"key"`
	ExternalID string `json:"external_id,omitempty" badgerhold:"index"`
	Title      string `json:"title"`
	// TitleKey is the normalized title used for identity matching when no
	// external id is present.
	TitleKey string `json:"title_key" badgerhold:"index"`

	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	YearMade    int    `json:"year_made,omitempty"`

	MinPlayers int    `json:"min_players,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
	Playtime   string `json:"playtime,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`

	MechanicIDs []string `json:"mechanic_ids,omitempty"`
	DesignerIDs []string `json:"designer_ids,omitempty"`

	IsExpansion  bool   `json:"is_expansion,omitempty"`
	ParentGameID string `json:"parent_game_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mechanic is an auxiliary reference entity linked many-to-many from catalog
// entries, keyed by its normalized name.
type Mechanic struct {
	ID   string `json:"id" badgerhold:"key"`
	Name string `json:"name"`
}

// Designer is an auxiliary reference entity for game contributors.
type Designer struct {
	ID   string `json:"id" badgerhold:"key"`
	Name string `json:"name"`
}

// PlayRecord is a stored play session linked to a catalog entry.
type PlayRecord struct {
	ID      string    `json:"id" badgerhold:"key"`
	GameID  string    `json:"game_id" badgerhold:"index"`
	Date    string    `json:"date,omitempty"`
	Players []string  `json:"players,omitempty"`
	Result  string    `json:"result,omitempty"`
	Created time.Time `json:"created"`
}

// PlayKey identifies an overlapping play for duplicate detection: same game,
// same date, same player set.
func (p *PlayRecord) PlayKey() string {
	key := p.GameID + "|" + p.Date
	for _, player := range p.Players {
		key += "|" + player
	}
	return key
}
