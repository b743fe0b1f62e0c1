package channel

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

// registry binds loopback URLs to hubs for the lifetime of the process,
// the way the original mock push server binds to its address.
var registry = struct {
	mu   sync.Mutex
	hubs map[string]*Hub
}{hubs: make(map[string]*Hub)}

// SnapshotFunc supplies the full current state for init messages sent to
// newly attached subscribers.
type SnapshotFunc func() (products []model.Product, categories []model.Category)

// Hub is the "server" end of the loopback channel. It greets every new
// attachment with an init snapshot, answers ping with pong, and fans
// broadcast messages out to all other attached connections in FIFO order.
type Hub struct {
	url      string
	snapshot SnapshotFunc

	mu     sync.Mutex
	conns  map[*loopConn]struct{}
	closed bool
}

// NewHub registers a hub under the given loopback URL. A nil snapshot
// disables init messages. Registering an already-bound URL fails.
func NewHub(url string, snapshot SnapshotFunc) (*Hub, error) {
	h := &Hub{url: url, snapshot: snapshot, conns: make(map[*loopConn]struct{})}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.hubs[url]; ok {
		return nil, fmt.Errorf("channel: loopback url %q already bound", url)
	}
	registry.hubs[url] = h
	return h, nil
}

// Close unbinds the URL and closes every attached connection.
func (h *Hub) Close() error {
	registry.mu.Lock()
	if registry.hubs[h.url] == h {
		delete(registry.hubs, h.url)
	}
	registry.mu.Unlock()

	h.mu.Lock()
	h.closed = true
	conns := make([]*loopConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*loopConn]struct{})
	h.mu.Unlock()
	for _, c := range conns {
		c.shutdown()
	}
	return nil
}

// Dial attaches to the hub bound at url. It is the Dialer for loopback
// deployments.
func Dial(_ context.Context, url string) (Conn, error) {
	registry.mu.Lock()
	h, ok := registry.hubs[url]
	registry.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("channel: no loopback hub bound at %q", url)
	}
	return h.attach()
}

func (h *Hub) attach() (*loopConn, error) {
	c := &loopConn{hub: h, q: newOutQueue(64, 0)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("channel: hub %q is closed", h.url)
	}
	if h.snapshot != nil {
		products, categories := h.snapshot()
		c.q.push(model.Message{Type: model.TypeInit, Products: products, Categories: categories})
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	return c, nil
}

// receive handles one inbound message from an attached connection.
// Fan-out runs under the hub lock so concurrent publishers cannot
// interleave partially; per-subscriber queues keep delivery FIFO.
func (h *Hub) receive(from *loopConn, m model.Message) {
	switch m.Type {
	case model.TypePing:
		from.q.push(model.Message{Type: model.TypePong})
	case model.TypeBroadcast:
		h.mu.Lock()
		for c := range h.conns {
			if c == from {
				continue
			}
			c.q.push(m)
		}
		h.mu.Unlock()
	default:
		// pong and init originate on the server side only
	}
}

func (h *Hub) detach(c *loopConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// loopConn is one attached loopback connection.
type loopConn struct {
	hub  *Hub
	q    *outQueue
	once sync.Once
}

func (c *loopConn) Send(m model.Message) error {
	select {
	case <-c.q.Done():
		return net.ErrClosed
	default:
	}
	c.hub.receive(c, m)
	return nil
}

func (c *loopConn) Recv() (model.Message, error) {
	select {
	case m := <-c.q.Out():
		return m, nil
	case <-c.q.Done():
		// drain what was already pumped before shutdown
		select {
		case m := <-c.q.Out():
			return m, nil
		default:
			return model.Message{}, net.ErrClosed
		}
	}
}

func (c *loopConn) Close() error {
	c.once.Do(func() {
		c.hub.detach(c)
		c.q.Close()
	})
	return nil
}

// shutdown closes the conn without detaching; the hub already dropped it.
func (c *loopConn) shutdown() {
	c.once.Do(func() { c.q.Close() })
}
