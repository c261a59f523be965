package bridge

import "scriptterm/internal/protocol"

// job is one unit of exclusive work: either a run or a deferred script load.
type job struct {
	run  *protocol.Run
	load *protocol.LoadScript
}

// jobQueue is a FIFO owned by the dispatcher goroutine.
type jobQueue struct {
	items []job
}

func (q *jobQueue) push(j job) { q.items = append(q.items, j) }

func (q *jobQueue) pop() (job, bool) {
	if len(q.items) == 0 {
		return job{}, false
	}
	j := q.items[0]
	q.items[0] = job{}
	q.items = q.items[1:]
	return j, true
}

func (q *jobQueue) len() int { return len(q.items) }
