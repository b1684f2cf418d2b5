// -----------------------------------------------------------------------
// Crawler State - Singleton cursor and counters for the catalog sweep
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// CrawlerStateID is the fixed key of the singleton crawler state record.
const CrawlerStateID = "catalog-crawler"

// CrawlerState tracks the catalog crawler's position in the external id
// space plus cumulative counters. Mutated only by crawler runs and the
// explicit control operations; read by status queries.
type CrawlerState struct {
	ID string `json:"id" badgerhold:"key"`

	// NextExternalID is the sweep cursor. It only ever increases, except
	// through an explicit reset.
	NextExternalID int  `json:"next_external_id"`
	IsEnabled      bool `json:"is_enabled"`

	TotalProcessed int `json:"total_processed"`
	TotalAdded     int `json:"total_added"`
	TotalSkipped   int `json:"total_skipped"`
	TotalErrors    int `json:"total_errors"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// NewCrawlerState creates the initial singleton state starting at id 1.
func NewCrawlerState() *CrawlerState {
	return &CrawlerState{
		ID:             CrawlerStateID,
		NextExternalID: 1,
		IsEnabled:      false,
	}
}

// Advance moves the cursor forward. The cursor is monotonic: a non-positive
// advance is rejected.
func (s *CrawlerState) Advance(by int) error {
	if by <= 0 {
		return fmt.Errorf("cursor advance must be positive, got %d", by)
	}
	s.NextExternalID += by
	return nil
}

// CrawlRunSummary reports the outcome of a single crawler invocation.
type CrawlRunSummary struct {
	Ran        bool   `json:"ran"`
	Batches    int    `json:"batches"`
	Processed  int    `json:"processed"`
	Added      int    `json:"added"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	NextCursor int    `json:"next_cursor"`
	LastError  string `json:"last_error,omitempty"`
}
