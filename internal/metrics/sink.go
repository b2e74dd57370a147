package metrics

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// Sink accepts per-iteration metric records from the optimization driver.
// Implementations must be safe for use from the driver goroutine; the
// driver does not depend on storage or display behavior beyond the call.
type Sink interface {
	Record(name string, iteration int, value float64)
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) Record(string, int, float64) {}

// LogSink writes metric records as single lines in the form
//
//	Metrics - timestamp=<unix seconds>; <name>=<value>; iteration_number=<i>;
//
// which is the local printing behavior of the managed-job metric logger.
type LogSink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLogSink creates a log sink writing to w.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{w: w, now: time.Now}
}

// Record writes one metric line.
func (s *LogSink) Record(name string, iteration int, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := float64(s.now().UnixNano()) / 1e9
	fmt.Fprintf(s.w, "Metrics - timestamp=%.6f; %s=%s; iteration_number=%d;\n",
		ts, name, strconv.FormatFloat(value, 'g', -1, 64), iteration)
}

// MultiSink fans a record out to several sinks in order.
type MultiSink []Sink

// Record forwards the record to every sink.
func (m MultiSink) Record(name string, iteration int, value float64) {
	for _, s := range m {
		s.Record(name, iteration, value)
	}
}
