// Package events provides in-process publish/subscribe of domain events.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	LedgerChanged      EventType = "ledger_changed"
	RecurringProcessed EventType = "recurring_processed"
	SettingsChanged    EventType = "settings_changed"
	BackupCompleted    EventType = "backup_completed"
	ErrorOccurred      EventType = "error_occurred"
)

// AllEventTypes lists every type a stream may subscribe to.
var AllEventTypes = []EventType{
	LedgerChanged,
	RecurringProcessed,
	SettingsChanged,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event. UserID is empty for system-wide events.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	UserID    string    `json:"user_id,omitempty"`
}

// Handler receives events. Handlers run synchronously on the emitting goroutine
// and must not block.
type Handler func(*Event)

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

// Bus fans events out to subscribers
type Bus struct {
	mu       sync.RWMutex
	nextID   SubscriptionID
	handlers map[EventType]map[SubscriptionID]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType]map[SubscriptionID]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for eventType
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[SubscriptionID]Handler)
	}
	b.handlers[eventType][b.nextID] = handler
	return b.nextID
}

// Unsubscribe removes a subscription from every event type
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.handlers {
		delete(subs, id)
	}
}

// Emit publishes an event to all subscribers of its type. A nil bus drops it.
func (b *Bus) Emit(userID, module string, data EventData) {
	if b == nil {
		return
	}
	event := &Event{
		Timestamp: time.Now(),
		Data:      data,
		Type:      data.EventType(),
		Module:    module,
		UserID:    userID,
	}

	if b.log.Debug().Enabled() {
		payload, _ := json.Marshal(data)
		b.log.Debug().
			Str("event_type", string(event.Type)).
			Str("module", module).
			RawJSON("data", payload).
			Msg("Event emitted")
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type]))
	for _, h := range b.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// SubscriberCount returns the number of subscriptions for eventType
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
