package parser

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Format tags the closed set of supported upload formats.
type Format string

const (
	FormatSpreadsheet Format = "spreadsheet"
	FormatTaggedJSON  Format = "tagged-json-export"
	FormatVendorCSV   Format = "vendor-csv"
	FormatGenericCSV  Format = "generic-csv"
)

// DetectFormat is a pure function over content signature and extension.
// Spreadsheet content is converted to CSV text by the caller and re-enters
// detection through the vendor/generic path.
func DetectFormat(content []byte, filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))

	trimmed := strings.TrimSpace(string(content))
	if ext == ".json" || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return FormatTaggedJSON
		}
	}

	if ext == ".tsv" || ext == ".xls" || ext == ".xlsx" || looksTabDelimited(trimmed) {
		return FormatSpreadsheet
	}

	if isVendorHeader(firstLine(trimmed)) {
		return FormatVendorCSV
	}

	return FormatGenericCSV
}

// looksTabDelimited reports whether the first line is tab-separated with no
// commas, the signature of a spreadsheet "save as text" export.
func looksTabDelimited(content string) bool {
	line := firstLine(content)
	return strings.Contains(line, "\t") && !strings.Contains(line, ",")
}

// isVendorHeader recognizes the vendor collection export by its distinctive
// column names (objectname/objectid plus ownership flags).
func isVendorHeader(header string) bool {
	lower := strings.ToLower(header)
	if strings.Contains(lower, "objectname") || strings.Contains(lower, "objectid") {
		return true
	}
	return strings.Contains(lower, ",own") && strings.Contains(lower, ",want")
}

func firstLine(content string) string {
	if idx := strings.IndexAny(content, "\r\n"); idx >= 0 {
		return content[:idx]
	}
	return content
}

// SpreadsheetToCSV converts tab-delimited spreadsheet text into CSV text.
// Cells containing commas, quotes or newlines are quoted per CSV rules so
// the converted text re-enters the normal CSV path unchanged in meaning.
func SpreadsheetToCSV(content string) string {
	var b strings.Builder
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		cells := strings.Split(line, "\t")
		for j, cell := range cells {
			if j > 0 {
				b.WriteByte(',')
			}
			if strings.ContainsAny(cell, ",\"\n") {
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
				b.WriteByte('"')
			} else {
				b.WriteString(cell)
			}
		}
	}
	return b.String()
}
