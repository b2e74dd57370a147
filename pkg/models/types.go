package models

import "time"

// JobStatus represents the lifecycle state of a hybrid job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "CREATED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ParseJobStatus parses a status string, returning "" for unknown values.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobStatusCreated, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return JobStatus(s)
	}
	return ""
}

// JobSpec describes the work a hybrid job performs: which device to run the
// circuit on and how the classical optimization loop is configured.
type JobSpec struct {
	// Device is a registry name such as "local/statevector".
	Device string `json:"device,omitempty"`
	// Steps is the number of gradient-descent iterations. Zero or
	// omitted falls back to the daemon default.
	Steps int `json:"steps,omitempty"`
	// Stepsize is the gradient-descent learning rate. Must be positive.
	Stepsize float64 `json:"stepsize,omitempty"`
	// InitialParams overrides the default starting parameter vector.
	InitialParams []float64 `json:"initial_params,omitempty"`
	// CallbackURL, if set, receives a completion notification.
	CallbackURL string `json:"callback_url,omitempty"`
	// CallbackSecret is sent as a bearer token with the notification.
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// JobResult holds the outcome of a completed hybrid job.
type JobResult struct {
	// Params is the final parameter vector after the last iteration.
	Params []float64 `json:"params"`
	// Expval is the expectation value observed at the final parameters.
	Expval float64 `json:"expval"`
	// Iterations is the number of optimization steps actually executed.
	Iterations int `json:"iterations"`
}

// Job is the public view of a hybrid job record.
type Job struct {
	ID              string     `json:"id"`
	Status          JobStatus  `json:"status"`
	Spec            JobSpec    `json:"spec"`
	CreatedAtUnixMs int64      `json:"created_at_unix_ms"`
	StartedAtUnixMs int64      `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64      `json:"ended_at_unix_ms,omitempty"`
	Error           string     `json:"error,omitempty"`
	Result          *JobResult `json:"result,omitempty"`
}

// MetricPoint is a single observation of a named metric.
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Iteration int               `json:"iteration"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation summarizes a series of metric values.
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}
