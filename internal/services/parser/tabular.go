package parser

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/meeple/internal/models"
)

// parseTabular converts tokenized CSV rows into canonical game records.
// ownedOnly applies the vendor-export filter: those exports enumerate a
// user's entire own/want list, but only owned items should import.
func parseTabular(rows [][]string, ownedOnly bool) ([]models.CanonicalGameRecord, int, error) {
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no rows found")
	}

	columns := mapHeaders(rows[0])
	if _, ok := columns[colTitle]; !ok {
		return nil, 0, fmt.Errorf("no title column found in header")
	}

	var (
		games   []models.CanonicalGameRecord
		skipped int
	)

	for _, row := range rows[1:] {
		if ownedOnly {
			if owned := cellAt(row, columns, colOwned); owned != "" && !CoerceBool(owned) {
				skipped++
				continue
			}
		}

		record := models.CanonicalGameRecord{
			GeneratedID: uuid.New().String(),
			Title:       cellAt(row, columns, colTitle),
			ExternalID:  cellAt(row, columns, colExternalID),
			ImageURL:    cellAt(row, columns, colImageURL),
			Mechanics:   splitList(cellAt(row, columns, colMechanics)),
			IsExpansion: CoerceBool(cellAt(row, columns, colIsExpansion)),
			ParentTitle: cellAt(row, columns, colParentTitle),
		}

		record.MinPlayers = parseIntField(cellAt(row, columns, colMinPlayers))
		record.MaxPlayers = parseIntField(cellAt(row, columns, colMaxPlayers))
		if record.MinPlayers == 0 && record.MaxPlayers == 0 {
			record.MinPlayers, record.MaxPlayers = parsePlayerRange(cellAt(row, columns, colPlayers))
		}

		if minutes := parseIntField(cellAt(row, columns, colPlaytime)); minutes > 0 {
			record.Playtime = PlaytimeBucket(minutes)
		}
		if weight := parseFloatField(cellAt(row, columns, colWeight)); weight > 0 {
			record.Difficulty = DifficultyBucket(weight)
		}

		games = append(games, record)
	}

	linkExpansions(games)

	return games, skipped, nil
}

// linkExpansions builds a title -> generated-id map over all parsed rows in
// one pass, then resolves the parent link for any row flagged as an
// expansion whose parent title matches (case-insensitive). Unresolved
// parents leave the link empty rather than failing the row.
func linkExpansions(games []models.CanonicalGameRecord) {
	byTitle := make(map[string]string, len(games))
	for i := range games {
		key := models.NormalizeTitle(games[i].Title)
		if key == "" {
			continue
		}
		if _, exists := byTitle[key]; !exists {
			byTitle[key] = games[i].GeneratedID
		}
	}

	for i := range games {
		if !games[i].IsExpansion || games[i].ParentTitle == "" {
			continue
		}
		if parentID, ok := byTitle[models.NormalizeTitle(games[i].ParentTitle)]; ok {
			games[i].ParentGameID = parentID
		}
	}
}
