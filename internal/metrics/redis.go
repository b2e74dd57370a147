package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hybridq/hybrid-core/pkg/logger"
)

// RedisSink ships metric records to a remote Redis store, the stand-in
// for a managed metrics backend. Records for one job and metric land in a
// single list so a dashboard can read the series in order.
type RedisSink struct {
	client *redis.Client
	jobID  string
	ttl    time.Duration
	now    func() time.Time
}

// redisPoint is the JSON shape stored per record.
type redisPoint struct {
	Timestamp int64   `json:"timestamp_unix_ms"`
	Name      string  `json:"name"`
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
}

// NewRedisSink creates a sink for one job's metrics.
func NewRedisSink(client *redis.Client, jobID string, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSink{client: client, jobID: jobID, ttl: ttl, now: time.Now}
}

// keyFor returns the list key for a metric name.
func (s *RedisSink) keyFor(name string) string {
	return fmt.Sprintf("hybridq:metrics:%s:%s", s.jobID, name)
}

// Record appends the record to the job's metric list and refreshes the
// TTL. Transport failures are logged and dropped; metric shipping is
// best-effort and must not fail the optimization loop.
func (s *RedisSink) Record(name string, iteration int, value float64) {
	data, err := json.Marshal(redisPoint{
		Timestamp: s.now().UnixMilli(),
		Name:      name,
		Iteration: iteration,
		Value:     value,
	})
	if err != nil {
		logger.Error("failed to encode metric point", "job_id", s.jobID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := s.keyFor(name)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		logger.Error("failed to ship metric point", "job_id", s.jobID, "key", key, "error", err)
		return
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		logger.Warn("failed to set metric TTL", "job_id", s.jobID, "key", key, "error", err)
	}
}
