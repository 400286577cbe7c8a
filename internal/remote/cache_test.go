package remote

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champlabs/schoolsync/internal/models"
)

type countingMetrics struct {
	hits   int
	misses int
}

func (m *countingMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestReadCacheDisabledRecordsNothing(t *testing.T) {
	recorder := &countingMetrics{}
	c := NewReadCache(nil, time.Minute, recorder, nil)

	var out []models.Student
	ok := c.get(context.Background(), c.key(models.CollectionStudents, "all"), &out)

	assert.False(t, ok)
	assert.Zero(t, recorder.hits)
	assert.Zero(t, recorder.misses)
}

func TestReadCacheFailureCountsAsMiss(t *testing.T) {
	recorder := &countingMetrics{}
	// Port 1 is never listening, so the dial fails immediately.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewReadCache(client, time.Minute, recorder, nil)

	var out []models.Student
	ok := c.get(context.Background(), c.key(models.CollectionStudents, "all"), &out)

	require.False(t, ok)
	assert.Zero(t, recorder.hits)
	assert.Equal(t, 1, recorder.misses)
}

func TestReadCacheObserveTolerantOfNilRecorder(t *testing.T) {
	c := NewReadCache(nil, time.Minute, nil, nil)
	assert.NotPanics(t, func() {
		c.observe(true)
		c.observe(false)
	})
}
