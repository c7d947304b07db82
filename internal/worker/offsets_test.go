package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/order-alert/internal/kafka"
)

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "orders-stream", Partition: partition, Offset: offset}
}

type commitLog struct{ offsets []int64 }

func (c *commitLog) commit(m kafka.Message) error {
	c.offsets = append(c.offsets, m.Offset)
	return nil
}

func TestOffsetTracker_CommitsContiguousPrefixOnly(t *testing.T) {
	tr := newOffsetTracker()
	for i := int64(0); i < 4; i++ {
		tr.track(msg(0, i))
	}
	log := &commitLog{}

	require.NoError(t, tr.complete(msg(0, 2), log.commit))
	require.NoError(t, tr.complete(msg(0, 1), log.commit))
	assert.Empty(t, log.offsets, "offset 0 still in flight")

	require.NoError(t, tr.complete(msg(0, 0), log.commit))
	assert.Equal(t, []int64{2}, log.offsets)

	require.NoError(t, tr.complete(msg(0, 3), log.commit))
	assert.Equal(t, []int64{2, 3}, log.offsets)
}

func TestOffsetTracker_PartitionsAreIndependent(t *testing.T) {
	tr := newOffsetTracker()
	tr.track(msg(0, 10))
	tr.track(msg(1, 4))
	tr.track(msg(0, 11))

	log := &commitLog{}
	require.NoError(t, tr.complete(msg(0, 11), log.commit))
	require.NoError(t, tr.complete(msg(1, 4), log.commit))
	assert.Equal(t, []int64{4}, log.offsets)

	require.NoError(t, tr.complete(msg(0, 10), log.commit))
	assert.Equal(t, []int64{4, 11}, log.offsets)
}

func TestOffsetTracker_RewindResets(t *testing.T) {
	tr := newOffsetTracker()
	tr.track(msg(0, 5))
	tr.track(msg(0, 6))
	tr.track(msg(0, 3)) // redelivered from an older position

	log := &commitLog{}
	require.NoError(t, tr.complete(msg(0, 3), log.commit))
	assert.Equal(t, []int64{3}, log.offsets)

	require.NoError(t, tr.complete(msg(0, 2), log.commit))
	assert.Equal(t, []int64{3}, log.offsets, "stale completion is ignored")
}

func TestOffsetTracker_CommitErrorIsReturned(t *testing.T) {
	tr := newOffsetTracker()
	tr.track(msg(0, 0))
	tr.track(msg(0, 1))

	boom := errors.New("coordinator unavailable")
	err := tr.complete(msg(0, 0), func(kafka.Message) error { return boom })
	assert.ErrorIs(t, err, boom)

	// the next commit carries the later offset, which covers the failed one
	log := &commitLog{}
	require.NoError(t, tr.complete(msg(0, 1), log.commit))
	assert.Equal(t, []int64{1}, log.offsets)
}
