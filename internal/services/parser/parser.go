package parser

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
)

// ParseResult carries the canonical output of one parse pass.
type ParseResult struct {
	Format  Format
	Games   []models.CanonicalGameRecord
	Plays   []models.CanonicalPlayRecord
	Skipped int
}

// Service turns arbitrary uploaded content into canonical game records and
// an optional list of canonical play records. Each format variant implements
// one "parse to canonical rows" contract, selected by the pure detection
// function.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new parser service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Parse detects the format and dispatches to the matching variant.
func (s *Service) Parse(content []byte, filename string) (*ParseResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty upload")
	}

	format := DetectFormat(content, filename)
	s.logger.Debug().
		Str("format", string(format)).
		Str("filename", filename).
		Int("bytes", len(content)).
		Msg("Detected upload format")

	switch format {
	case FormatTaggedJSON:
		games, plays, err := parseTaggedJSON(content)
		if err != nil {
			return nil, err
		}
		return &ParseResult{Format: format, Games: games, Plays: plays}, nil

	case FormatSpreadsheet:
		// Convert to CSV text and re-enter the vendor/generic path
		csvText := SpreadsheetToCSV(string(content))
		result, err := s.parseCSVContent(csvText)
		if err != nil {
			return nil, err
		}
		result.Format = format
		return result, nil

	case FormatVendorCSV:
		rows := ParseCSV(string(content))
		games, skipped, err := parseTabular(rows, true)
		if err != nil {
			return nil, err
		}
		return &ParseResult{Format: format, Games: games, Skipped: skipped}, nil

	case FormatGenericCSV:
		rows := ParseCSV(string(content))
		games, skipped, err := parseTabular(rows, false)
		if err != nil {
			return nil, err
		}
		return &ParseResult{Format: format, Games: games, Skipped: skipped}, nil

	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// parseCSVContent runs converted spreadsheet text through vendor/generic
// detection and parsing.
func (s *Service) parseCSVContent(content string) (*ParseResult, error) {
	rows := ParseCSV(content)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows found")
	}

	ownedOnly := isVendorHeader(joinHeader(rows[0]))
	format := FormatGenericCSV
	if ownedOnly {
		format = FormatVendorCSV
	}

	games, skipped, err := parseTabular(rows, ownedOnly)
	if err != nil {
		return nil, err
	}
	return &ParseResult{Format: format, Games: games, Skipped: skipped}, nil
}

func joinHeader(header []string) string {
	out := ""
	for i, cell := range header {
		if i > 0 {
			out += ","
		}
		out += cell
	}
	return out
}
