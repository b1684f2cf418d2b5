package parser

import "strings"

// Canonical column names produced by header normalization.
const (
	colTitle       = "title"
	colExternalID  = "external_id"
	colImageURL    = "image_url"
	colMinPlayers  = "min_players"
	colMaxPlayers  = "max_players"
	colPlayers     = "players"
	colPlaytime    = "playtime"
	colWeight      = "weight"
	colMechanics   = "mechanics"
	colIsExpansion = "is_expansion"
	colParentTitle = "parent_title"
	colOwned       = "owned"
)

// headerAliases maps known column spellings onto one canonical column.
var headerAliases = map[string]string{
	"title":     colTitle,
	"name":      colTitle,
	"game":      colTitle,
	"game_name": colTitle,
	"objectname": colTitle,

	"bgg_id":      colExternalID,
	"bggid":       colExternalID,
	"objectid":    colExternalID,
	"object_id":   colExternalID,
	"external_id": colExternalID,

	"image":     colImageURL,
	"image_url": colImageURL,
	"thumbnail": colImageURL,

	"min_players": colMinPlayers,
	"minplayers":  colMinPlayers,
	"max_players": colMaxPlayers,
	"maxplayers":  colMaxPlayers,
	"players":     colPlayers,

	"playtime":         colPlaytime,
	"play_time":        colPlaytime,
	"playing_time":     colPlaytime,
	"playingtime":      colPlaytime,
	"minutes":          colPlaytime,
	"playtime_minutes": colPlaytime,

	"weight":        colWeight,
	"avgweight":     colWeight,
	"avg_weight":    colWeight,
	"average_weight": colWeight,
	"complexity":    colWeight,

	"mechanics":  colMechanics,
	"mechanic":   colMechanics,
	"mechanisms": colMechanics,

	"expansion":    colIsExpansion,
	"is_expansion": colIsExpansion,

	"parent":       colParentTitle,
	"parent_game":  colParentTitle,
	"parent_title": colParentTitle,
	"base_game":    colParentTitle,
	"expands":      colParentTitle,

	"own":   colOwned,
	"owned": colOwned,
}

// NormalizeHeader lowercases a header cell, converts whitespace to
// underscores, and collapses known aliases onto the canonical column name.
func NormalizeHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.Join(strings.Fields(normalized), "_")
	if canonical, ok := headerAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// mapHeaders returns canonical column name -> index for one header row.
// When two source columns collapse to the same canonical name, the first
// one wins.
func mapHeaders(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, cell := range header {
		name := NormalizeHeader(cell)
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	return columns
}

// cellAt returns the row value for a canonical column, or ""
func cellAt(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
