// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

// RestartGapUsec is how far a timestamp must fall behind the last accepted
// one to be taken as an estimator restart rather than a reordered sample.
const RestartGapUsec = 1_000_000

// Queue is a FIFO of pose samples. It is not safe for concurrent use on its
// own; the bridge guards it together with the attitude cache under one lock.
type Queue struct {
	data     []Sample
	capacity int
	last     uint64
	havePush bool
	dropped  uint64
	restarts uint64
}

// NewQueue returns a queue holding at most capacity samples. A capacity of
// zero or less means unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{capacity: capacity}
}

// Push appends s. Samples must arrive with strictly increasing timestamps,
// otherwise ErrOutOfOrder is returned and s is discarded. A jump back of
// RestartGapUsec or more means the estimator clock restarted: samples still
// pending from the old clock are dropped and s starts a new sequence. When
// the queue is full the oldest sample is dropped so the producer never waits.
func (q *Queue) Push(s Sample) error {
	if q.havePush && s.TimeUsec <= q.last {
		if q.last-s.TimeUsec < RestartGapUsec {
			return ErrOutOfOrder
		}
		q.dropped += uint64(len(q.data))
		q.data = nil
		q.restarts++
	}
	if q.capacity > 0 && len(q.data) >= q.capacity {
		q.data = q.data[1:]
		q.dropped++
	}
	q.data = append(q.data, s)
	q.last = s.TimeUsec
	q.havePush = true
	return nil
}

// Pop removes and returns the oldest sample.
func (q *Queue) Pop() (Sample, bool) {
	if len(q.data) == 0 {
		return Sample{}, false
	}
	s := q.data[0]
	q.data[0] = Sample{}
	q.data = q.data[1:]
	return s, true
}

// Len reports the number of pending samples.
func (q *Queue) Len() int {
	return len(q.data)
}

// Dropped reports how many samples were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped
}

// Restarts reports how many estimator clock restarts Push has seen.
func (q *Queue) Restarts() uint64 {
	return q.restarts
}
