package channel

import (
	"sync"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

const defaultMaxBacklog = 1024

// outQueue is the per-subscriber delivery queue: a mutex-guarded backlog
// with a pump goroutine moving messages into the output channel, so hub
// fan-out never blocks on a slow reader while per-subscriber FIFO order is
// preserved. A backlog past the cap drops the newest message with a
// warning; delivery is best-effort.
type outQueue struct {
	mu      sync.Mutex
	backlog []model.Message
	notify  chan struct{}
	out     chan model.Message
	done    chan struct{}
	once    sync.Once
	max     int
}

func newOutQueue(outBuffer, maxBacklog int) *outQueue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	if maxBacklog <= 0 {
		maxBacklog = defaultMaxBacklog
	}
	q := &outQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan model.Message, outBuffer),
		done:   make(chan struct{}),
		max:    maxBacklog,
	}
	go q.pump()
	return q
}

// push appends a message and nudges the pump.
func (q *outQueue) push(m model.Message) {
	q.mu.Lock()
	if len(q.backlog) >= q.max {
		q.mu.Unlock()
		obs.Logger.Warn("subscriber backlog full, message dropped", "max_backlog", q.max)
		return
	}
	q.backlog = append(q.backlog, m)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pump drains the backlog into the output channel one message at a time,
// so a slow reader backs pressure into the backlog instead of blocking a
// hub fan-out.
func (q *outQueue) pump() {
	for {
		m, ok := q.pop()
		if !ok {
			select {
			case <-q.done:
				return
			case <-q.notify:
			}
			continue
		}
		select {
		case q.out <- m:
		case <-q.done:
			return
		}
	}
}

func (q *outQueue) pop() (model.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backlog) == 0 {
		return model.Message{}, false
	}
	m := q.backlog[0]
	q.backlog = q.backlog[1:]
	return m, true
}

// Out exposes the ordered output channel.
func (q *outQueue) Out() <-chan model.Message { return q.out }

// Close stops the pump. Idempotent.
func (q *outQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Done reports queue shutdown to readers.
func (q *outQueue) Done() <-chan struct{} { return q.done }
