package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestService() *Service {
	return NewService(arbor.NewLogger())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		expected Format
	}{
		{"JSON by content", `{"games":[]}`, "export.txt", FormatTaggedJSON},
		{"JSON by extension", `{"games":[]}`, "export.json", FormatTaggedJSON},
		{"Tab delimited", "title\tplayers\nCatan\t3-4", "games.txt", FormatSpreadsheet},
		{"TSV extension", "title,players", "games.tsv", FormatSpreadsheet},
		{"Vendor header objectname", "objectname,objectid,own,want\nCatan,13,1,0", "collection.csv", FormatVendorCSV},
		{"Vendor header own and want", "name,own,want\nCatan,1,0", "collection.csv", FormatVendorCSV},
		{"Generic CSV", "title,players\nCatan,3-4", "games.csv", FormatGenericCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat([]byte(tt.content), tt.filename))
		})
	}
}

func TestParse_GenericCSV(t *testing.T) {
	svc := newTestService()

	content := "title,bgg_id,players,playtime,weight\n" +
		"Wingspan,266192,1-5,50,2.44\n" +
		"Catan,13,3-4,90,2.3\n"

	result, err := svc.Parse([]byte(content), "games.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatGenericCSV, result.Format)
	require.Len(t, result.Games, 2)

	wingspan := result.Games[0]
	assert.Equal(t, "Wingspan", wingspan.Title)
	assert.Equal(t, "266192", wingspan.ExternalID)
	assert.Equal(t, 1, wingspan.MinPlayers)
	assert.Equal(t, 5, wingspan.MaxPlayers)
	assert.Equal(t, "45-60 Minutes", wingspan.Playtime)
	assert.Equal(t, "2 - Medium Light", wingspan.Difficulty)

	catan := result.Games[1]
	assert.Equal(t, "Catan", catan.Title)
	assert.Equal(t, "13", catan.ExternalID)
	assert.Equal(t, "60-90 Minutes", catan.Playtime)
}

func TestParse_VendorCSV(t *testing.T) {
	svc := newTestService()

	t.Run("Owned filter", func(t *testing.T) {
		content := "objectname,objectid,own,want\n" +
			"Catan,13,1,0\n" +
			"Gloomhaven,174430,0,1\n" +
			"Wingspan,266192,1,0\n"

		result, err := svc.Parse([]byte(content), "collection.csv")
		require.NoError(t, err)
		assert.Equal(t, FormatVendorCSV, result.Format)
		require.Len(t, result.Games, 2)
		assert.Equal(t, 1, result.Skipped)

		// Every data row is accounted for as either a game or a skip
		assert.Equal(t, 3, len(result.Games)+result.Skipped)
	})

	t.Run("Header aliases map to canonical columns", func(t *testing.T) {
		content := "objectname,objectid,own\nCatan,13,1\n"
		result, err := svc.Parse([]byte(content), "collection.csv")
		require.NoError(t, err)
		require.Len(t, result.Games, 1)
		assert.Equal(t, "Catan", result.Games[0].Title)
		assert.Equal(t, "13", result.Games[0].ExternalID)
	})
}

func TestParse_Spreadsheet(t *testing.T) {
	svc := newTestService()

	content := "title\tbgg_id\tplaytime\nWingspan\t266192\t50\n"
	result, err := svc.Parse([]byte(content), "games.txt")
	require.NoError(t, err)
	assert.Equal(t, FormatSpreadsheet, result.Format)
	require.Len(t, result.Games, 1)
	assert.Equal(t, "Wingspan", result.Games[0].Title)
	assert.Equal(t, "45-60 Minutes", result.Games[0].Playtime)
}

func TestParse_TaggedJSON(t *testing.T) {
	svc := newTestService()

	content := `{
		"games": [
			{"name": "Catan", "bggId": "13", "minPlayers": 3, "maxPlayers": 4, "playtimeMinutes": 90, "weight": 2.3},
			{"name": "Seafarers", "bggId": "325", "expansion": true, "parentName": "Catan"},
			{"name": "Wingspan", "bggId": "266192", "minPlayers": 1, "maxPlayers": 5, "playtimeMinutes": 50, "weight": 2.44},
			{"name": "Root", "bggId": "237182", "minPlayers": 2, "maxPlayers": 4, "playtimeMinutes": 90, "weight": 3.8},
			{"name": "Gloomhaven", "bggId": "174430", "minPlayers": 1, "maxPlayers": 4, "playtimeMinutes": 120, "weight": 3.9},
			{"name": "Carcassonne", "bggId": "822", "minPlayers": 2, "maxPlayers": 5, "playtimeMinutes": 35, "weight": 1.9},
			{"name": "Azul", "bggId": "230802", "minPlayers": 2, "maxPlayers": 4, "playtimeMinutes": 40, "weight": 1.8},
			{"name": "Pandemic", "bggId": "30549", "minPlayers": 2, "maxPlayers": 4, "playtimeMinutes": 45, "weight": 2.4},
			{"name": "Brass: Birmingham", "bggId": "224517", "minPlayers": 2, "maxPlayers": 4, "playtimeMinutes": 120, "weight": 3.9},
			{"name": "Wingspan: European Expansion", "bggId": "290448", "expansion": true, "parentName": "Wingspan"}
		],
		"plays": [
			{"bggId": "13", "game": "Catan", "date": "2026-08-01", "players": ["ann", "ben"], "result": "ann"},
			{"bggId": "266192", "game": "Wingspan", "date": "2026-08-05", "players": ["ann", "cam"], "result": "cam"},
			{"bggId": "822", "game": "Carcassonne", "date": "2026-08-09", "players": ["ben", "cam"]},
			{"game": "Azul", "date": "2026-08-12", "players": ["ann"]}
		]
	}`

	result, err := svc.Parse([]byte(content), "export.json")
	require.NoError(t, err)
	assert.Equal(t, FormatTaggedJSON, result.Format)
	require.Len(t, result.Games, 10)
	require.Len(t, result.Plays, 4)

	catan := result.Games[0]
	seafarers := result.Games[1]
	assert.True(t, seafarers.IsExpansion)
	assert.Equal(t, catan.GeneratedID, seafarers.ParentGameID)

	wingspan := result.Games[2]
	euro := result.Games[9]
	assert.True(t, euro.IsExpansion)
	assert.Equal(t, wingspan.GeneratedID, euro.ParentGameID)
	assert.Equal(t, "45-60 Minutes", wingspan.Playtime)
	assert.Equal(t, "2 - Medium Light", wingspan.Difficulty)

	play := result.Plays[0]
	assert.Equal(t, "13", play.ExternalID)
	assert.Equal(t, []string{"ann", "ben"}, play.Players)

	// Plays without an external id still carry the title for matching
	assert.Empty(t, result.Plays[3].ExternalID)
	assert.Equal(t, "Azul", result.Plays[3].Title)
}

func TestParse_ExpansionLinking(t *testing.T) {
	svc := newTestService()

	t.Run("Unresolved parent stays empty", func(t *testing.T) {
		content := "title,expansion,parent_title\nSeafarers,true,Catan\n"
		result, err := svc.Parse([]byte(content), "games.csv")
		require.NoError(t, err)
		require.Len(t, result.Games, 1)
		assert.Empty(t, result.Games[0].ParentGameID)
	})

	t.Run("Case-insensitive parent match", func(t *testing.T) {
		content := "title,expansion,parent_title\nCatan,false,\nSeafarers,true,CATAN\n"
		result, err := svc.Parse([]byte(content), "games.csv")
		require.NoError(t, err)
		require.Len(t, result.Games, 2)
		assert.Equal(t, result.Games[0].GeneratedID, result.Games[1].ParentGameID)
	})
}

func TestParse_Errors(t *testing.T) {
	svc := newTestService()

	t.Run("Empty upload", func(t *testing.T) {
		_, err := svc.Parse(nil, "games.csv")
		assert.Error(t, err)
	})

	t.Run("No title column", func(t *testing.T) {
		_, err := svc.Parse([]byte("players,playtime\n3-4,90\n"), "games.csv")
		assert.Error(t, err)
	})
}
