package worker

import (
	"sync"

	"github.com/jmehdipour/order-alert/internal/kafka"
)

// offsetTracker turns out-of-order completions into in-order commits. For each
// partition it remembers the fetched offsets and releases the highest one whose
// predecessors have all completed.
type offsetTracker struct {
	mu    sync.Mutex
	parts map[partitionKey]*partitionOffsets
}

type partitionKey struct {
	topic     string
	partition int
}

type partitionOffsets struct {
	mu      sync.Mutex // held across the commit so the position only moves forward
	pending []int64    // fetched, in fetch order
	done    map[int64]kafka.Message
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: make(map[partitionKey]*partitionOffsets)}
}

func (t *offsetTracker) get(m kafka.Message) *partitionOffsets {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := partitionKey{topic: m.Topic, partition: m.Partition}
	p, ok := t.parts[k]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]kafka.Message)}
		t.parts[k] = p
	}
	return p
}

// track registers a fetched message. It must be called in fetch order.
func (t *offsetTracker) track(m kafka.Message) {
	p := t.get(m)
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.pending); n > 0 && m.Offset <= p.pending[n-1] {
		// rewound after a rebalance: the old bookkeeping no longer applies
		p.pending = p.pending[:0]
		clear(p.done)
	}
	p.pending = append(p.pending, m.Offset)
}

// complete marks m handled and, when the contiguous prefix advanced, hands the
// last message of that prefix to commit.
func (t *offsetTracker) complete(m kafka.Message, commit func(kafka.Message) error) error {
	p := t.get(m)
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 || m.Offset < p.pending[0] {
		return nil // stale: dropped by a rewind
	}
	p.done[m.Offset] = m

	var (
		last     kafka.Message
		advanced bool
	)
	for len(p.pending) > 0 {
		dm, ok := p.done[p.pending[0]]
		if !ok {
			break
		}
		delete(p.done, p.pending[0])
		p.pending = p.pending[1:]
		last, advanced = dm, true
	}

	if !advanced {
		return nil
	}
	return commit(last)
}
