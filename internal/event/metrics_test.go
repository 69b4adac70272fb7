package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector()

	c.RecordProcessed(KindReminderCreated)
	c.RecordProcessed(KindReminderCreated)
	c.RecordFailed(KindUserCreated)
	c.RecordDuration(KindReminderCreated, 0.1)
	c.RecordDuration(KindReminderCreated, 0.3)
	c.RecordHandlerError(KindReminderCreated, "audit_logger")
	c.RecordRetryAttempt(KindReminderCreated)
	c.RecordRetryAttempt(KindReminderCreated)
	c.RecordRetrySuccess(KindReminderCreated)

	snap := c.Snapshot()

	assert.Equal(t, int64(2), snap.ProcessedEvents[KindReminderCreated])
	assert.Equal(t, int64(1), snap.FailedEvents[KindUserCreated])
	assert.InDelta(t, 0.2, snap.AvgProcessingTimes[KindReminderCreated], 1e-9)
	assert.Equal(t, int64(1), snap.HandlerErrors[KindReminderCreated]["audit_logger"])
	assert.Equal(t, int64(2), snap.RetryStats[KindReminderCreated].Attempts)
	assert.Equal(t, int64(1), snap.RetryStats[KindReminderCreated].Successes)
	assert.Equal(t, int64(0), snap.RetryStats[KindReminderCreated].Failures)
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.RecordProcessed(KindUserCreated)

	snap := c.Snapshot()
	snap.ProcessedEvents[KindUserCreated] = 100
	snap.HandlerErrors[KindUserCreated] = map[string]int64{"x": 1}

	again := c.Snapshot()
	assert.Equal(t, int64(1), again.ProcessedEvents[KindUserCreated])
	assert.Empty(t, again.HandlerErrors)
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.RecordProcessed(KindReminderDue)
	c.RecordFailed(KindReminderDue)
	c.RecordRetryFailure(KindReminderDue)

	c.Reset()

	snap := c.Snapshot()
	assert.Empty(t, snap.ProcessedEvents)
	assert.Empty(t, snap.FailedEvents)
	assert.Empty(t, snap.RetryStats)

	// Reset on an empty collector is a no-op, not an error.
	c.Reset()
	assert.Empty(t, c.Snapshot().ProcessedEvents)
}
