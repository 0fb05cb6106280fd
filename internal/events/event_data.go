package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// LedgerChangedData is emitted after any committed ledger mutation
type LedgerChangedData struct {
	Entity string   `json:"entity"` // account, transaction, investment, project, recurring_rule, category
	Action string   `json:"action"` // created, updated, deleted, ...
	IDs    []string `json:"ids"`
}

// EventType returns the event type for LedgerChangedData
func (d *LedgerChangedData) EventType() EventType {
	return LedgerChanged
}

// RecurringProcessedData summarizes one recurring-rule processing run
type RecurringProcessedData struct {
	RulesFired          int `json:"rules_fired"`
	TransactionsCreated int `json:"transactions_created"`
}

// EventType returns the event type for RecurringProcessedData
func (d *RecurringProcessedData) EventType() EventType {
	return RecurringProcessed
}

// SettingsChangedData lists the preference keys a user changed
type SettingsChangedData struct {
	Keys []string `json:"keys"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// BackupCompletedData describes an uploaded backup archive
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Pruned    int    `json:"pruned"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData carries a failure from a background job
type ErrorEventData struct {
	Error string `json:"error"`
	Job   string `json:"job,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
