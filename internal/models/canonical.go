// -----------------------------------------------------------------------
// Canonical records - Normalized representation of importable rows,
// independent of the source format that produced them
// -----------------------------------------------------------------------

package models

import "strings"

// CanonicalGameRecord is one normalized importable game. Produced by the
// parser, consumed by the import coordinator. Immutable once produced.
type CanonicalGameRecord struct {
	// GeneratedID is assigned by the parser and used for expansion linking
	// within a single parse pass. It is not a storage key.
	GeneratedID string `json:"generated_id"`

	Title      string `json:"title"`
	ExternalID string `json:"external_id,omitempty"` // dedup key when present
	ImageURL   string `json:"image_url,omitempty"`

	MinPlayers int    `json:"min_players,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
	Playtime   string `json:"playtime,omitempty"`   // bucketed, e.g. "45-60 Minutes"
	Difficulty string `json:"difficulty,omitempty"` // bucketed, e.g. "4 - Medium Heavy"

	Mechanics []string `json:"mechanics,omitempty"`

	IsExpansion  bool   `json:"is_expansion,omitempty"`
	ParentTitle  string `json:"parent_title,omitempty"`
	ParentGameID string `json:"parent_game_id,omitempty"` // resolved link, empty when parent unknown
}

// CanonicalPlayRecord is one normalized play session bundled with a game
// export. Consumed by the play-history importer after the referenced game
// exists.
type CanonicalPlayRecord struct {
	ExternalID string   `json:"external_id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Date       string   `json:"date,omitempty"`
	Players    []string `json:"players,omitempty"`
	Result     string   `json:"result,omitempty"`
}

// NormalizeTitle produces the canonical identity form of a title: lowercased
// with runs of whitespace collapsed to single spaces. Used wherever a game is
// matched by title instead of external id.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
