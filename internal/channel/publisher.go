package channel

import (
	"context"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

// Publisher implements the store's fan-out contract over a Dialer. Each
// publish opens a fresh connection, emits one message and tears the
// connection down; publishing is connectionless from the writer's
// perspective. Failures are logged and swallowed: the mutation has
// already been applied synchronously by the store, so the broadcast is
// best-effort fan-out only.
type Publisher struct {
	url  string
	dial Dialer
}

// NewPublisher builds a fire-and-forget publisher for the given endpoint.
// A nil dialer defaults to the loopback Dial.
func NewPublisher(url string, dial Dialer) *Publisher {
	if dial == nil {
		dial = Dial
	}
	return &Publisher{url: url, dial: dial}
}

// Publish sends one message and discards the connection.
func (p *Publisher) Publish(msg model.Message) {
	conn, err := p.dial(context.Background(), p.url)
	if err != nil {
		obs.Logger.Warn("broadcast publish skipped", "url", p.url, "error", err)
		return
	}
	defer conn.Close()
	if err := conn.Send(msg); err != nil {
		obs.Logger.Warn("broadcast send failed", "url", p.url, "error", err)
	}
}
