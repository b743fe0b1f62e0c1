// Package channel implements the broadcast channel connecting the store's
// "server" and "client" roles: an in-process loopback hub that simulates a
// push server, a fire-and-forget publisher, a subscriber connector with
// reconnect and heartbeat policy, and a Redis-backed transport variant.
package channel

import (
	"context"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

// Conn is one attached channel connection. Recv blocks until a message
// arrives and must unblock with an error once Close is called. Close is
// idempotent.
type Conn interface {
	Send(msg model.Message) error
	Recv() (model.Message, error)
	Close() error
}

// Dialer opens a connection to a channel endpoint.
type Dialer func(ctx context.Context, url string) (Conn, error)
