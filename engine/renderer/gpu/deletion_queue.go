package gpu

import (
	"github.com/spaghettifunk/anima-framegraph/engine/containers"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

// DeletionQueue collects destroy callbacks per frame and runs them once the
// frame that pushed them can no longer be in flight.
type DeletionQueue struct {
	framesInFlight int
	current        []func()
	frames         *containers.RingQueue[[]func()]
}

func NewDeletionQueue(framesInFlight int) *DeletionQueue {
	if framesInFlight < 0 {
		framesInFlight = 0
	}
	return &DeletionQueue{
		framesInFlight: framesInFlight,
		frames:         containers.NewRingQueue[[]func()](framesInFlight + 1),
	}
}

// Push schedules fn to run when the current frame retires.
func (q *DeletionQueue) Push(fn func()) {
	q.current = append(q.current, fn)
}

// Flush closes the current frame and runs the callbacks of the frame that
// was closed framesInFlight flushes ago.
func (q *DeletionQueue) Flush() {
	if err := q.frames.Enqueue(q.current); err != nil {
		core.LogError("deletion queue: %s", err.Error())
	}
	q.current = nil
	for q.frames.Len() > q.framesInFlight {
		bucket, err := q.frames.Dequeue()
		if err != nil {
			return
		}
		run(bucket)
	}
}

// FlushAll runs every pending callback, used at shutdown.
func (q *DeletionQueue) FlushAll() {
	for !q.frames.IsEmpty() {
		bucket, _ := q.frames.Dequeue()
		run(bucket)
	}
	run(q.current)
	q.current = nil
}

// Pending returns the number of callbacks not yet run.
func (q *DeletionQueue) Pending() int {
	n := len(q.current)
	for i := 0; i < q.frames.Len(); i++ {
		bucket, _ := q.frames.Dequeue()
		n += len(bucket)
		_ = q.frames.Enqueue(bucket)
	}
	return n
}

func run(bucket []func()) {
	for _, fn := range bucket {
		fn()
	}
}
