package parser

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/meeple/internal/models"
)

// taggedExport is the shape of the tagged JSON export format: a bundle of
// games plus optional play sessions.
type taggedExport struct {
	Games []taggedGame `json:"games"`
	Plays []taggedPlay `json:"plays"`
}

type taggedGame struct {
	Name        string   `json:"name"`
	BggID       string   `json:"bggId"`
	Image       string   `json:"image"`
	MinPlayers  int      `json:"minPlayers"`
	MaxPlayers  int      `json:"maxPlayers"`
	PlaytimeMin int      `json:"playtimeMinutes"`
	Weight      float64  `json:"weight"`
	Mechanics   []string `json:"mechanics"`
	Expansion   bool     `json:"expansion"`
	ParentName  string   `json:"parentName"`
}

type taggedPlay struct {
	BggID   string   `json:"bggId"`
	Game    string   `json:"game"`
	Date    string   `json:"date"`
	Players []string `json:"players"`
	Result  string   `json:"result"`
}

// parseTaggedJSON decodes the tagged export, producing canonical game
// records and a separate pending-plays list matched after import.
func parseTaggedJSON(content []byte) ([]models.CanonicalGameRecord, []models.CanonicalPlayRecord, error) {
	var export taggedExport
	if err := json.Unmarshal(content, &export); err != nil {
		return nil, nil, fmt.Errorf("invalid tagged JSON export: %w", err)
	}

	games := make([]models.CanonicalGameRecord, 0, len(export.Games))
	for _, g := range export.Games {
		record := models.CanonicalGameRecord{
			GeneratedID: uuid.New().String(),
			Title:       g.Name,
			ExternalID:  g.BggID,
			ImageURL:    g.Image,
			MinPlayers:  g.MinPlayers,
			MaxPlayers:  g.MaxPlayers,
			Mechanics:   g.Mechanics,
			IsExpansion: g.Expansion,
			ParentTitle: g.ParentName,
		}
		if g.PlaytimeMin > 0 {
			record.Playtime = PlaytimeBucket(g.PlaytimeMin)
		}
		if g.Weight > 0 {
			record.Difficulty = DifficultyBucket(g.Weight)
		}
		games = append(games, record)
	}

	linkExpansions(games)

	plays := make([]models.CanonicalPlayRecord, 0, len(export.Plays))
	for _, p := range export.Plays {
		plays = append(plays, models.CanonicalPlayRecord{
			ExternalID: p.BggID,
			Title:      p.Game,
			Date:       p.Date,
			Players:    p.Players,
			Result:     p.Result,
		})
	}

	return games, plays, nil
}
