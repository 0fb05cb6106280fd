package events

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDataTypes(t *testing.T) {
	assert.Equal(t, LedgerChanged, (&LedgerChangedData{}).EventType())
	assert.Equal(t, RecurringProcessed, (&RecurringProcessedData{}).EventType())
	assert.Equal(t, SettingsChanged, (&SettingsChangedData{}).EventType())
	assert.Equal(t, BackupCompleted, (&BackupCompletedData{}).EventType())
	assert.Equal(t, ErrorOccurred, (&ErrorEventData{}).EventType())
}

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []*Event
	bus.Subscribe(LedgerChanged, func(e *Event) { got = append(got, e) })
	bus.Subscribe(BackupCompleted, func(e *Event) { t.Fatal("wrong type delivered") })

	bus.Emit("u1", "transactions", &LedgerChangedData{Entity: "transaction", Action: "created", IDs: []string{"t1"}})

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, LedgerChanged, got[0].Type)
	data, ok := got[0].Data.(*LedgerChangedData)
	require.True(t, ok)
	assert.Equal(t, []string{"t1"}, data.IDs)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	calls := 0
	id := bus.Subscribe(LedgerChanged, func(*Event) { calls++ })
	assert.Equal(t, 1, bus.SubscriberCount(LedgerChanged))

	bus.Unsubscribe(id)
	bus.Emit("u1", "x", &LedgerChangedData{})
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, bus.SubscriberCount(LedgerChanged))
}

func TestBus_ConcurrentEmit(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var mu sync.Mutex
	count := 0
	bus.Subscribe(LedgerChanged, func(*Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit("u", "m", &LedgerChangedData{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Emit("u", "m", &LedgerChangedData{}) })
}
