package clientdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE exchangerate (pair TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE recognition (hash TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// :memory: is per-connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

type rates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func TestStoreAndLoad(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	in := rates{Base: "USD", Rates: map[string]float64{"EUR": 0.92}}
	require.NoError(t, repo.Store(ctx, "exchangerate", "USD", in, TTLExchangeRate))

	var out rates
	found, fresh, err := repo.Load(ctx, "exchangerate", "USD", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, in, out)
}

func TestGetIfFresh_ExpiredReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, "exchangerate", "USD", map[string]float64{"EUR": 1}, -time.Minute))

	data, err := repo.GetIfFresh(ctx, "exchangerate", "USD")
	require.NoError(t, err)
	assert.Nil(t, data)

	// stale data is still available as a fallback
	data, err = repo.Get(ctx, "exchangerate", "USD")
	require.NoError(t, err)
	assert.NotNil(t, data)

	var out map[string]float64
	found, fresh, err := repo.Load(ctx, "exchangerate", "USD", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, fresh)
}

func TestGet_MissingKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)

	data, err := repo.Get(context.Background(), "recognition", "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	assert.Error(t, repo.Store(ctx, "accounts; DROP TABLE x", "k", 1, time.Hour))
	_, err := repo.Get(ctx, "unknown", "k")
	assert.Error(t, err)
	_, err = repo.DeleteExpired(ctx, "unknown")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, "recognition", "abc", []string{"x"}, TTLRecognition))
	require.NoError(t, repo.Delete(ctx, "recognition", "abc"))

	data, err := repo.Get(ctx, "recognition", "abc")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, "exchangerate", "old", 1, -time.Hour))
	require.NoError(t, repo.Store(ctx, "exchangerate", "new", 1, time.Hour))
	require.NoError(t, repo.Store(ctx, "recognition", "old", 1, -time.Hour))

	results, err := repo.DeleteAllExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["exchangerate"])
	assert.Equal(t, int64(1), results["recognition"])

	data, err := repo.Get(ctx, "exchangerate", "new")
	require.NoError(t, err)
	assert.NotNil(t, data)
}
