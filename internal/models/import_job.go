// -----------------------------------------------------------------------
// Import Job - Persisted state for one asynchronous collection import
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an import job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ImportPhase describes which stage of the pipeline a job is currently in
type ImportPhase string

const (
	PhaseParsing   ImportPhase = "parsing"
	PhaseImporting ImportPhase = "importing"
	PhaseEnriching ImportPhase = "enriching"
	PhasePlays     ImportPhase = "plays"
	PhaseDone      ImportPhase = "done"
)

// ImportJob is the persisted record for one bulk import. It is created when
// the job starts, mutated incrementally as items process, and becomes
// immutable once it reaches a terminal status. The pipeline never deletes it.
type ImportJob struct {
	ID              string      `json:"id" badgerhold:"key"`
	Status          JobStatus   `json:"status"`
	Phase           ImportPhase `json:"phase"`
	TotalItems      int         `json:"total_items"`
	ProcessedItems  int         `json:"processed_items"`
	SuccessfulItems int         `json:"successful_items"`
	FailedItems     int         `json:"failed_items"`
	CurrentGame     string      `json:"current_game,omitempty"`
	Error           string      `json:"error,omitempty"`

	Result *ImportResult `json:"result,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewImportJob creates a pending import job
func NewImportJob(total int) *ImportJob {
	return &ImportJob{
		ID:         uuid.New().String(),
		Status:     JobStatusPending,
		Phase:      PhaseParsing,
		TotalItems: total,
		CreatedAt:  time.Now(),
	}
}

// MarkStarted transitions the job to running
func (j *ImportJob) MarkStarted() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted transitions the job to its terminal completed state
func (j *ImportJob) MarkCompleted(result *ImportResult) {
	j.Status = JobStatusCompleted
	j.Phase = PhaseDone
	j.Result = result
	j.CurrentGame = ""
	now := time.Now()
	j.CompletedAt = &now
}

// MarkFailed transitions the job to its terminal failed state
func (j *ImportJob) MarkFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.Phase = PhaseDone
	j.Error = errorMsg
	j.CurrentGame = ""
	now := time.Now()
	j.CompletedAt = &now
}

// IsTerminal returns true once the job can no longer change
func (j *ImportJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// RecordItem applies one processed item to the job counters.
// Counters only move forward: processed never exceeds total, and
// successful+failed never exceeds processed.
func (j *ImportJob) RecordItem(succeeded bool, currentGame string) error {
	if j.ProcessedItems >= j.TotalItems {
		return fmt.Errorf("processed items would exceed total (%d)", j.TotalItems)
	}
	j.ProcessedItems++
	if succeeded {
		j.SuccessfulItems++
	} else {
		j.FailedItems++
	}
	j.CurrentGame = currentGame
	return nil
}
