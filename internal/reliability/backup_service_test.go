package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, _ string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ObjectInfo, 0, len(m.objects))
	for key, data := range m.objects {
		out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, key string, body io.Reader) error {
	return m.Called(ctx, key, body).Error(0)
}

func (m *mockStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	objects, _ := args.Get(0).([]ObjectInfo)
	return objects, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func backupKey(ts time.Time) string {
	return backupPrefix + ts.Format(backupTimeLayout) + backupSuffix
}

func TestCreateAndUpload_ArchivesEverySnapshot(t *testing.T) {
	ledger := testhelpers.NewTestDB(t, "ledger")
	config := testhelpers.NewTestDB(t, "config")
	store := newMemoryStore()

	svc := NewBackupService(store, []Snapshotter{ledger, config}, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 4, 30, 0, 0, time.UTC) }

	info, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "finance-backup-2024-03-05-043000.tar.gz", info.Key)
	require.Equal(t, []string{info.Key}, store.keys())
	assert.Equal(t, int64(len(store.objects[info.Key])), info.SizeBytes)

	files := readArchive(t, store.objects[info.Key])
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, "config.db")
	require.Contains(t, files, metadataFilename)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFilename], &metadata))
	require.Len(t, metadata.Databases, 2)
	assert.Equal(t, metadataVersion, metadata.Version)
	assert.Equal(t, "ledger", metadata.Databases[0].Name)

	sum := sha256.Sum256(files["ledger.db"])
	assert.Equal(t, fmt.Sprintf("sha256:%x", sum), metadata.Databases[0].Checksum)
	assert.Equal(t, int64(len(files["ledger.db"])), metadata.Databases[0].SizeBytes)
}

func TestCreateAndUpload_UploadFailure(t *testing.T) {
	ledger := testhelpers.NewTestDB(t, "ledger")
	store := &mockStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := NewBackupService(store, []Snapshotter{ledger}, t.TempDir(), zerolog.Nop())
	_, err := svc.CreateAndUpload(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	store.AssertExpectations(t)
}

func TestListBackups_SortsAndSkipsForeignKeys(t *testing.T) {
	base := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.objects[backupKey(base)] = []byte("a")
	store.objects[backupKey(base.AddDate(0, 0, 2))] = []byte("bb")
	store.objects[backupKey(base.AddDate(0, 0, 1))] = []byte("c")
	store.objects["finance-backup-notes.txt"] = []byte("x")

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, base.AddDate(0, 0, 2), backups[0].Timestamp)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, base, backups[2].Timestamp)
}

func TestPrune_KeepsNewest(t *testing.T) {
	base := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for i := 0; i < 6; i++ {
		store.objects[backupKey(base.AddDate(0, 0, i))] = []byte("x")
	}

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	deleted, err := svc.Prune(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{
		backupKey(base.AddDate(0, 0, 2)),
		backupKey(base.AddDate(0, 0, 3)),
		backupKey(base.AddDate(0, 0, 4)),
		backupKey(base.AddDate(0, 0, 5)),
	}, store.keys())
}

func TestPrune_RetentionFloor(t *testing.T) {
	base := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for i := 0; i < 5; i++ {
		store.objects[backupKey(base.AddDate(0, 0, i))] = []byte("x")
	}

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	deleted, err := svc.Prune(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Len(t, store.keys(), MinBackupsToKeep)
}

func TestPrune_DeleteErrorsAreJoined(t *testing.T) {
	base := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	var objects []ObjectInfo
	for i := 0; i < 4; i++ {
		objects = append(objects, ObjectInfo{Key: backupKey(base.AddDate(0, 0, i))})
	}
	store := &mockStore{}
	store.On("List", mock.Anything, backupPrefix).Return(objects, nil)
	store.On("Delete", mock.Anything, backupKey(base)).Return(assert.AnError)

	svc := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	deleted, err := svc.Prune(context.Background(), 3)
	assert.Equal(t, 0, deleted)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBackupJob_EmitsCompletion(t *testing.T) {
	ledger := testhelpers.NewTestDB(t, "ledger")
	store := newMemoryStore()
	svc := NewBackupService(store, []Snapshotter{ledger}, t.TempDir(), zerolog.Nop())

	bus := events.NewBus(zerolog.Nop())
	var got []*events.Event
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) { got = append(got, e) })

	job := NewBackupJob(svc, 14, bus, zerolog.Nop())
	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())

	require.Len(t, got, 1)
	data, ok := got[0].Data.(*events.BackupCompletedData)
	require.True(t, ok)
	assert.Equal(t, store.keys()[0], data.Key)
	assert.Positive(t, data.SizeBytes)
	assert.Zero(t, data.Pruned)
}

func TestBackupJob_FailureEmitsError(t *testing.T) {
	ledger := testhelpers.NewTestDB(t, "ledger")
	store := &mockStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	svc := NewBackupService(store, []Snapshotter{ledger}, t.TempDir(), zerolog.Nop())

	bus := events.NewBus(zerolog.Nop())
	var got []*events.Event
	bus.Subscribe(events.ErrorOccurred, func(e *events.Event) { got = append(got, e) })

	err := NewBackupJob(svc, 14, bus, zerolog.Nop()).Run()
	assert.Error(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "backup", got[0].Data.(*events.ErrorEventData).Job)
}
