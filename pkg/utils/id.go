package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateJobID generates a job ID with a timestamp prefix and a short
// random suffix, e.g. "job-20240101-150405-1a2b3c4d".
func GenerateJobID() string {
	timestamp := time.Now().Format("20060102-150405")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("job-%s-%s", timestamp, suffix)
}

// GenerateRequestID generates an opaque request-scoped ID.
func GenerateRequestID() string {
	return uuid.NewString()
}
