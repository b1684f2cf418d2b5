package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportJob_Lifecycle(t *testing.T) {
	job := NewImportJob(3)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.TotalItems)
	assert.False(t, job.IsTerminal())

	job.MarkStarted()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.MarkCompleted(NewImportResult())
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, PhaseDone, job.Phase)
	assert.True(t, job.IsTerminal())
	require.NotNil(t, job.CompletedAt)
}

func TestImportJob_RecordItem(t *testing.T) {
	t.Run("Counters move forward", func(t *testing.T) {
		job := NewImportJob(2)
		job.MarkStarted()

		require.NoError(t, job.RecordItem(true, "Catan"))
		assert.Equal(t, 1, job.ProcessedItems)
		assert.Equal(t, 1, job.SuccessfulItems)
		assert.Equal(t, "Catan", job.CurrentGame)

		require.NoError(t, job.RecordItem(false, "Wingspan"))
		assert.Equal(t, 2, job.ProcessedItems)
		assert.Equal(t, 1, job.FailedItems)
	})

	t.Run("Processed never exceeds total", func(t *testing.T) {
		job := NewImportJob(1)
		job.MarkStarted()

		require.NoError(t, job.RecordItem(true, "Catan"))
		err := job.RecordItem(true, "Wingspan")
		assert.Error(t, err)
		assert.Equal(t, 1, job.ProcessedItems)
	})

	t.Run("Successful plus failed never exceeds processed", func(t *testing.T) {
		job := NewImportJob(10)
		job.MarkStarted()

		for i := 0; i < 7; i++ {
			require.NoError(t, job.RecordItem(i%2 == 0, "game"))
		}
		assert.LessOrEqual(t, job.SuccessfulItems+job.FailedItems, job.ProcessedItems)
		assert.LessOrEqual(t, job.ProcessedItems, job.TotalItems)
	})
}

func TestImportJob_MarkFailed(t *testing.T) {
	job := NewImportJob(5)
	job.MarkStarted()
	job.MarkFailed("parse exploded")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "parse exploded", job.Error)
	assert.Empty(t, job.CurrentGame)
	assert.True(t, job.IsTerminal())
}
