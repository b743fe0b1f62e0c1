package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

func TestOutQueuePreservesFIFO(t *testing.T) {
	q := newOutQueue(4, 0)
	t.Cleanup(q.Close)

	const n = 200
	for i := 1; i <= n; i++ {
		q.push(model.Message{Seq: uint64(i)})
	}
	for i := 1; i <= n; i++ {
		select {
		case m := <-q.Out():
			require.Equal(t, uint64(i), m.Seq)
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d never arrived", i)
		}
	}
}

func TestOutQueueAbsorbsBurstBeyondOutBuffer(t *testing.T) {
	// out buffer of 1 forces nearly everything through the backlog
	q := newOutQueue(1, 0)
	t.Cleanup(q.Close)

	for i := 1; i <= 50; i++ {
		q.push(model.Message{Seq: uint64(i)})
	}
	time.Sleep(20 * time.Millisecond) // slow reader
	for i := 1; i <= 50; i++ {
		select {
		case m := <-q.Out():
			require.Equal(t, uint64(i), m.Seq)
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d never arrived", i)
		}
	}
}

func TestOutQueueDropsPastMaxBacklog(t *testing.T) {
	q := newOutQueue(1, 4)
	// nobody reads, so the backlog fills and the overflow is dropped
	for i := 0; i < 64; i++ {
		q.push(model.Message{Seq: uint64(i)})
	}
	q.mu.Lock()
	backlog := len(q.backlog)
	q.mu.Unlock()
	assert.LessOrEqual(t, backlog, 4)
	q.Close()
}

func TestOutQueueCloseIsIdempotentAndStopsPump(t *testing.T) {
	q := newOutQueue(4, 0)
	q.Close()
	q.Close()

	select {
	case <-q.Done():
	default:
		t.Fatal("done channel must be closed")
	}
	// pushing after close must not panic
	q.push(model.Message{Seq: 1})
}
