package alarm

import (
	"container/heap"
	"time"

	"paydue/schedule"
)

type pendingAlert struct {
	id      int64
	at      time.Time
	payload schedule.Payload
	pos     int // position in the heap, maintained by Swap
}

// alertQueue is a min-heap of pending alerts ordered by fire time, indexed by
// alert identifier so replace and cancel hit the exact entry.
type alertQueue struct {
	ordered []*pendingAlert
	byID    map[int64]*pendingAlert
}

func newAlertQueue() *alertQueue {
	q := &alertQueue{byID: make(map[int64]*pendingAlert)}
	heap.Init(q)
	return q
}

func (q alertQueue) Len() int {
	return len(q.ordered)
}

func (q alertQueue) Less(i, j int) bool {
	return q.ordered[i].at.Before(q.ordered[j].at)
}

func (q alertQueue) Swap(i, j int) {
	q.ordered[j], q.ordered[i] = q.ordered[i], q.ordered[j]
	q.ordered[i].pos = i
	q.ordered[j].pos = j
}

func (q *alertQueue) Push(x any) {
	a, ok := x.(*pendingAlert)
	if !ok {
		return
	}

	a.pos = len(q.ordered)
	q.ordered = append(q.ordered, a)
	q.byID[a.id] = a
}

func (q *alertQueue) Pop() any {
	if len(q.ordered) == 0 {
		return nil
	}

	n := len(q.ordered)
	popped := q.ordered[n-1]
	q.ordered = q.ordered[:n-1]
	delete(q.byID, popped.id)

	return popped
}

// Replace schedules the alert, displacing any pending alert under the same
// identifier.
func (q *alertQueue) Replace(a *pendingAlert) {
	q.Delete(a.id)
	heap.Push(q, a)
}

// Delete removes the pending alert with the given identifier. Unknown
// identifiers are a no-op.
func (q *alertQueue) Delete(id int64) {
	a, ok := q.byID[id]
	if !ok {
		return
	}
	heap.Remove(q, a.pos)
}

func (q *alertQueue) Peek() *pendingAlert {
	if len(q.ordered) == 0 {
		return nil
	}
	return q.ordered[0]
}
