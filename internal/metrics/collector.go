package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// Collector collects time-series metric records for a single job. It is
// safe for concurrent use; the HTTP server reads while the driver writes.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	endTime   time.Time
	labels    map[string]string
	series    map[string][]models.MetricPoint
}

// NewCollector creates a collector. The labels are attached to every
// recorded point (e.g. job_id, device).
func NewCollector(labels map[string]string) *Collector {
	return &Collector{
		startTime: time.Now(),
		labels:    copyLabels(labels),
		series:    make(map[string][]models.MetricPoint),
	}
}

// Start marks the start of metric collection.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
}

// Stop marks the end of metric collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Record appends a metric point at the current time. It implements the
// Sink interface so a collector can be injected into the driver directly.
func (c *Collector) Record(name string, iteration int, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series[name] = append(c.series[name], models.MetricPoint{
		Timestamp: time.Now(),
		Name:      name,
		Iteration: iteration,
		Value:     value,
		Labels:    c.labels,
	})
}

// Series returns a copy of all points for a metric, in record order.
func (c *Collector) Series(name string) []models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	points := c.series[name]
	if points == nil {
		return nil
	}
	out := make([]models.MetricPoint, len(points))
	copy(out, points)
	return out
}

// Names returns all metric names recorded so far.
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregation computes summary statistics for a metric, or nil when the
// metric has no points.
func (c *Collector) Aggregation(name string) *models.Aggregation {
	c.mu.RLock()
	points := c.series[name]
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	c.mu.RUnlock()

	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return &models.Aggregation{
		Count: int64(len(values)),
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  utils.Mean(values),
		P50:   percentile(values, 0.50),
		P95:   percentile(values, 0.95),
		P99:   percentile(values, 0.99),
	}
}

// Duration returns the elapsed collection time. Zero end time means the
// collector is still running.
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.endTime.IsZero() {
		return time.Since(c.startTime)
	}
	return c.endTime.Sub(c.startTime)
}

// percentile computes the percentile value from a sorted slice by linear
// interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
