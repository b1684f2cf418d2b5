package models

// FailureReason classifies why a single record did not import. Classified
// failures accumulate per item and never abort the batch.
type FailureReason string

const (
	FailureAlreadyExists FailureReason = "already_exists"
	FailureMissingTitle  FailureReason = "missing_title"
	FailureCreateFailed  FailureReason = "create_failed"
	FailureNotFound      FailureReason = "not_found"
	FailureException     FailureReason = "exception"
)

// SampleCap bounds the error and not-found samples carried in an
// ImportResult. Overflow beyond the cap is reported as a count only.
const SampleCap = 10

// ImportResult is computed once, at job completion, and persisted on the job.
type ImportResult struct {
	Success  bool `json:"success"`
	Imported int  `json:"imported"`
	Failed   int  `json:"failed"`

	// FailureBreakdown is a histogram of per-item failure reasons.
	FailureBreakdown map[FailureReason]int `json:"failure_breakdown,omitempty"`

	// Errors holds up to SampleCap raw error strings; ErrorOverflow counts
	// the rest. NotFoundTitles is the capped list of titles the enrichment
	// source had no match for, kept for manual follow-up.
	Errors           []string `json:"errors,omitempty"`
	ErrorOverflow    int      `json:"error_overflow,omitempty"`
	NotFoundTitles   []string `json:"not_found_titles,omitempty"`
	NotFoundOverflow int      `json:"not_found_overflow,omitempty"`

	// UnmatchedPlays lists play records that could not be matched to any
	// imported game. Distinct from the failure count by design.
	UnmatchedPlays []CanonicalPlayRecord `json:"unmatched_plays,omitempty"`
	PlaysImported  int                   `json:"plays_imported,omitempty"`
	PlaysSkipped   int                   `json:"plays_skipped,omitempty"`
}

// NewImportResult creates an empty result ready for accumulation
func NewImportResult() *ImportResult {
	return &ImportResult{
		FailureBreakdown: make(map[FailureReason]int),
	}
}

// RecordFailure adds one classified failure, sampling the raw error
func (r *ImportResult) RecordFailure(reason FailureReason, errMsg string) {
	r.Failed++
	r.FailureBreakdown[reason]++
	if errMsg != "" {
		if len(r.Errors) < SampleCap {
			r.Errors = append(r.Errors, errMsg)
		} else {
			r.ErrorOverflow++
		}
	}
}

// RecordNotFound tracks a title the enrichment source could not resolve
func (r *ImportResult) RecordNotFound(title string) {
	if len(r.NotFoundTitles) < SampleCap {
		r.NotFoundTitles = append(r.NotFoundTitles, title)
	} else {
		r.NotFoundOverflow++
	}
}
