package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleThingXML = `<?xml version="1.0" encoding="utf-8"?>
<items>
  <item type="boardgame" id="13">
    <thumbnail>https://example.com/catan-thumb.jpg</thumbnail>
    <image>https://example.com/catan.jpg</image>
    <name type="primary" sortindex="1" value="CATAN"/>
    <name type="alternate" sortindex="1" value="The Settlers of Catan"/>
    <description>Trade, build and settle. &amp;quot;Classic&amp;quot; resource game.</description>
    <yearpublished value="1995"/>
    <minplayers value="3"/>
    <maxplayers value="4"/>
    <playingtime value="120"/>
    <link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
    <link type="boardgamemechanic" id="2008" value="Trading"/>
    <link type="boardgamedesigner" id="11" value="Klaus Teuber"/>
    <link type="boardgamecategory" id="1026" value="Negotiation"/>
    <statistics>
      <ratings>
        <averageweight value="2.3"/>
      </ratings>
    </statistics>
  </item>
  <item type="boardgameexpansion" id="325">
    <name type="primary" sortindex="1" value="CATAN: Seafarers"/>
    <yearpublished value="1997"/>
    <minplayers value="3"/>
    <maxplayers value="4"/>
    <playingtime value="90"/>
  </item>
  <item type="boardgame" id="99">
    <name type="alternate" sortindex="1" value="No Primary Name"/>
  </item>
</items>`

func TestParseThingResponse(t *testing.T) {
	entries, err := parseThingResponse([]byte(sampleThingXML))
	require.NoError(t, err)
	// The item without a primary name is dropped
	require.Len(t, entries, 2)

	catan := entries[0]
	assert.Equal(t, "13", catan.ExternalID)
	assert.Equal(t, "CATAN", catan.Title)
	assert.Equal(t, "https://example.com/catan.jpg", catan.ImageURL)
	assert.Equal(t, 1995, catan.YearMade)
	assert.Equal(t, 3, catan.MinPlayers)
	assert.Equal(t, 4, catan.MaxPlayers)
	assert.Equal(t, 120, catan.PlaytimeMin)
	assert.InDelta(t, 2.3, catan.Weight, 0.001)
	assert.Equal(t, []string{"Dice Rolling", "Trading"}, catan.Mechanics)
	assert.Equal(t, []string{"Klaus Teuber"}, catan.Designers)
	assert.False(t, catan.IsExpansion)
	// HTML entities in descriptions are unescaped
	assert.Contains(t, catan.Description, `"Classic"`)

	seafarers := entries[1]
	assert.Equal(t, "325", seafarers.ExternalID)
	assert.True(t, seafarers.IsExpansion)
}

func TestParseThingResponse_InvalidXML(t *testing.T) {
	_, err := parseThingResponse([]byte("not xml at all"))
	assert.Error(t, err)
}
