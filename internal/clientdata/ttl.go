package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLExchangeRate = time.Hour           // Currency exchange rates
	TTLRecognition  = 30 * 24 * time.Hour // Recognizer output for an identical document
)
