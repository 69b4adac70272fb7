package event

import "sync"

// RetryStats counts retry activity for one event type.
type RetryStats struct {
	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// Snapshot is a point-in-time copy of the collector state, shaped for the
// monitoring endpoint.
type Snapshot struct {
	ProcessedEvents    map[string]int64            `json:"processed_events"`
	FailedEvents       map[string]int64            `json:"failed_events"`
	AvgProcessingTimes map[string]float64          `json:"avg_processing_times"`
	HandlerErrors      map[string]map[string]int64 `json:"handler_errors"`
	RetryStats         map[string]RetryStats       `json:"retry_stats"`
}

// Collector accumulates in-process event metrics. All counters are
// monotonically increasing between resets.
type Collector struct {
	mu            sync.Mutex
	processed     map[string]int64
	failed        map[string]int64
	durations     map[string][]float64
	handlerErrors map[string]map[string]int64
	retries       map[string]*RetryStats
}

func NewCollector() *Collector {
	c := &Collector{}
	c.reset()
	return c
}

func (c *Collector) reset() {
	c.processed = make(map[string]int64)
	c.failed = make(map[string]int64)
	c.durations = make(map[string][]float64)
	c.handlerErrors = make(map[string]map[string]int64)
	c.retries = make(map[string]*RetryStats)
}

func (c *Collector) RecordProcessed(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed[eventType]++
}

func (c *Collector) RecordFailed(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[eventType]++
}

func (c *Collector) RecordDuration(eventType string, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations[eventType] = append(c.durations[eventType], seconds)
}

func (c *Collector) RecordHandlerError(eventType, handler string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlerErrors[eventType] == nil {
		c.handlerErrors[eventType] = make(map[string]int64)
	}
	c.handlerErrors[eventType][handler]++
}

func (c *Collector) RecordRetryAttempt(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryStats(eventType).Attempts++
}

func (c *Collector) RecordRetrySuccess(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryStats(eventType).Successes++
}

func (c *Collector) RecordRetryFailure(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryStats(eventType).Failures++
}

// retryStats must be called with c.mu held.
func (c *Collector) retryStats(eventType string) *RetryStats {
	rs, ok := c.retries[eventType]
	if !ok {
		rs = &RetryStats{}
		c.retries[eventType] = rs
	}
	return rs
}

// Snapshot copies all counters. Average processing time is the mean of the
// recorded durations; event types with no recorded durations are absent.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ProcessedEvents:    make(map[string]int64, len(c.processed)),
		FailedEvents:       make(map[string]int64, len(c.failed)),
		AvgProcessingTimes: make(map[string]float64, len(c.durations)),
		HandlerErrors:      make(map[string]map[string]int64, len(c.handlerErrors)),
		RetryStats:         make(map[string]RetryStats, len(c.retries)),
	}
	for k, v := range c.processed {
		snap.ProcessedEvents[k] = v
	}
	for k, v := range c.failed {
		snap.FailedEvents[k] = v
	}
	for k, ds := range c.durations {
		if len(ds) == 0 {
			continue
		}
		var sum float64
		for _, d := range ds {
			sum += d
		}
		snap.AvgProcessingTimes[k] = sum / float64(len(ds))
	}
	for k, hs := range c.handlerErrors {
		m := make(map[string]int64, len(hs))
		for h, n := range hs {
			m[h] = n
		}
		snap.HandlerErrors[k] = m
	}
	for k, rs := range c.retries {
		snap.RetryStats[k] = *rs
	}
	return snap
}

// Reset zeroes every counter atomically from the caller's perspective.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
