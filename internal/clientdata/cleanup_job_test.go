package clientdata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Store(ctx, "exchangerate", "stale", 1, -time.Hour))
	require.NoError(t, repo.Store(ctx, "exchangerate", "fresh", 1, time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())
	assert.Equal(t, int64(1), job.LastDeleted())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM exchangerate").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJobRun_EmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
	assert.Zero(t, job.LastDeleted())
}
