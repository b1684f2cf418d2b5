package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportResult_RecordFailure(t *testing.T) {
	result := NewImportResult()

	result.RecordFailure(FailureAlreadyExists, "")
	result.RecordFailure(FailureCreateFailed, "catan: disk full")

	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.FailureBreakdown[FailureAlreadyExists])
	assert.Equal(t, 1, result.FailureBreakdown[FailureCreateFailed])
	// Blank error strings are not sampled
	assert.Len(t, result.Errors, 1)
}

func TestImportResult_ErrorSampleCap(t *testing.T) {
	result := NewImportResult()

	for i := 0; i < SampleCap+5; i++ {
		result.RecordFailure(FailureException, fmt.Sprintf("error %d", i))
	}

	assert.Len(t, result.Errors, SampleCap)
	assert.Equal(t, 5, result.ErrorOverflow)
	assert.Equal(t, SampleCap+5, result.Failed)
}

func TestImportResult_NotFoundCap(t *testing.T) {
	result := NewImportResult()

	for i := 0; i < SampleCap+3; i++ {
		result.RecordNotFound(fmt.Sprintf("game %d", i))
	}

	assert.Len(t, result.NotFoundTitles, SampleCap)
	assert.Equal(t, 3, result.NotFoundOverflow)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "catan", NormalizeTitle("  Catan "))
	assert.Equal(t, "the castles of burgundy", NormalizeTitle("The  Castles\tof   Burgundy"))
	assert.Equal(t, "", NormalizeTitle("   "))
}
