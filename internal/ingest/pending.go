package ingest

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// maxPendingAttempts bounds how many times a deferred log is retried
// before it is dropped and recorded as a permanent index gap.
const maxPendingAttempts = 64

// pendingEntry is a log that could not be applied yet because its parent
// hash (category or provider) hasn't been indexed.
type pendingEntry struct {
	log      types.Log
	attempts int
}

// pendingQueue holds deferred logs keyed by the hash they're waiting on.
type pendingQueue struct {
	byParent map[string][]*pendingEntry
	dropped  int
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{byParent: make(map[string][]*pendingEntry)}
}

func (q *pendingQueue) enqueue(waitOn string, log types.Log) {
	q.byParent[waitOn] = append(q.byParent[waitOn], &pendingEntry{log: log})
}

// take removes and returns every entry waiting on hash, for the caller to
// retry. Entries that exceed maxPendingAttempts are dropped here rather
// than returned.
func (q *pendingQueue) take(hash string) []*pendingEntry {
	entries := q.byParent[hash]
	delete(q.byParent, hash)
	var live []*pendingEntry
	for _, e := range entries {
		if e.attempts > maxPendingAttempts {
			q.dropped++
			continue
		}
		live = append(live, e)
	}
	return live
}

// requeue puts an entry back under hash with an incremented attempt
// counter, after a retry attempt still failed.
func (q *pendingQueue) requeue(hash string, e *pendingEntry) {
	e.attempts++
	if e.attempts > maxPendingAttempts {
		q.dropped++
		return
	}
	q.byParent[hash] = append(q.byParent[hash], e)
}

// Len reports the number of logs currently deferred, across all parents.
func (q *pendingQueue) Len() int {
	n := 0
	for _, v := range q.byParent {
		n += len(v)
	}
	return n
}

// Dropped reports how many deferred logs were abandoned as permanent
// index gaps after exceeding maxPendingAttempts.
func (q *pendingQueue) Dropped() int {
	return q.dropped
}
