// -----------------------------------------------------------------------
// Progress frames - Typed events streamed to import clients
// -----------------------------------------------------------------------

package models

// FrameType is the closed set of event types carried on an import stream.
type FrameType string

const (
	FrameStart    FrameType = "start"
	FrameProgress FrameType = "progress"
	FrameComplete FrameType = "complete"
)

// ProgressFrame is one chunk on the import event stream. Progress frames
// carry authoritative counter values: consumers replace their local state
// with these, never increment, so duplicate or reordered frames are safe.
type ProgressFrame struct {
	Type  FrameType `json:"type"`
	JobID string    `json:"jobId"`

	// start + progress
	Total int `json:"total,omitempty"`

	// progress
	Current     int         `json:"current,omitempty"`
	Imported    int         `json:"imported,omitempty"`
	Failed      int         `json:"failed,omitempty"`
	CurrentGame string      `json:"currentGame,omitempty"`
	Phase       ImportPhase `json:"phase,omitempty"`

	// complete
	Result *ImportResult `json:"result,omitempty"`
}

// StartFrame builds the initial frame carrying the job id and total.
func StartFrame(jobID string, total int) ProgressFrame {
	return ProgressFrame{Type: FrameStart, JobID: jobID, Total: total}
}

// ProgressFrameFromJob snapshots a job's counters into a progress frame.
func ProgressFrameFromJob(job *ImportJob) ProgressFrame {
	return ProgressFrame{
		Type:        FrameProgress,
		JobID:       job.ID,
		Current:     job.ProcessedItems,
		Total:       job.TotalItems,
		Imported:    job.SuccessfulItems,
		Failed:      job.FailedItems,
		CurrentGame: job.CurrentGame,
		Phase:       job.Phase,
	}
}

// CompleteFrame builds the terminal frame with the final result.
func CompleteFrame(jobID string, result *ImportResult) ProgressFrame {
	return ProgressFrame{Type: FrameComplete, JobID: jobID, Result: result}
}
