package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which OperationTimer warns.
const SlowOperationThreshold = 2 * time.Second

// OperationTimer logs how long an operation took. Call the returned func
// when it finishes:
//
//	defer utils.OperationTimer("build_series", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		elapsed := time.Since(start)
		event := log.Debug()
		if elapsed > SlowOperationThreshold {
			event = log.Warn()
		}
		event.Str("operation", operation).
			Dur("elapsed", elapsed).
			Bool("slow", elapsed > SlowOperationThreshold).
			Msg("Operation timed")
	}
}
