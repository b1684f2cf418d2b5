package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	t.Run("Plain rows", func(t *testing.T) {
		rows := ParseCSV("a,b,c\nd,e,f\n")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"a", "b", "c"}, rows[0])
		assert.Equal(t, []string{"d", "e", "f"}, rows[1])
	})

	t.Run("Quoted field with comma", func(t *testing.T) {
		rows := ParseCSV(`title,notes
Catan,"great, if long"`)
		require.Len(t, rows, 2)
		assert.Equal(t, "great, if long", rows[1][1])
	})

	t.Run("Quoted field with embedded newline", func(t *testing.T) {
		rows := ParseCSV("title,notes\nCatan,\"a, b\nc\"\n")
		require.Len(t, rows, 2)
		assert.Equal(t, "a, b\nc", rows[1][1])
	})

	t.Run("Doubled quote escaping", func(t *testing.T) {
		rows := ParseCSV(`title
"The ""Best"" Game"`)
		require.Len(t, rows, 2)
		assert.Equal(t, `The "Best" Game`, rows[1][0])
	})

	t.Run("CRLF line endings", func(t *testing.T) {
		rows := ParseCSV("a,b\r\nc,d\r\n")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"c", "d"}, rows[1])
	})

	t.Run("Empty rows dropped", func(t *testing.T) {
		rows := ParseCSV("a,b\n\n\nc,d\n,,\n")
		require.Len(t, rows, 2)
	})

	t.Run("Final record without trailing newline", func(t *testing.T) {
		rows := ParseCSV("a,b\nc,d")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"c", "d"}, rows[1])
	})
}
