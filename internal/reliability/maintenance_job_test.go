package reliability

import (
	"context"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
)

func fixedUsage(free uint64) DiskUsageFunc {
	return func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: free, UsedPercent: 90}, nil
	}
}

func TestMaintenanceJob_Run(t *testing.T) {
	ledger := testhelpers.NewTestDB(t, "ledger")

	tests := []struct {
		name    string
		free    uint64
		wantErr bool
	}{
		{name: "plenty", free: 50 << 30},
		{name: "low", free: 1 << 30},
		{name: "critical", free: 100 << 20, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewMaintenanceJob(t.TempDir(), []*database.DB{ledger, nil}, zerolog.Nop())
			job.usage = fixedUsage(tt.free)

			err := job.Run()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMaintenanceJob_RealDisk(t *testing.T) {
	job := NewMaintenanceJob(t.TempDir(), nil, zerolog.Nop())
	assert.Equal(t, "maintenance", job.Name())

	_, err := job.usage(context.Background(), job.dataDir)
	assert.NoError(t, err)
}
