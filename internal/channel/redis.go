package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

// RedisDialer adapts Redis pub/sub to the Conn contract so a deployment
// can point the channel at a real broker instead of the loopback hub.
// Sending a ping maps to a Redis PING with a locally synthesized pong;
// there is no init snapshot over this transport.
func RedisDialer(client *redis.Client, topic string) Dialer {
	return func(ctx context.Context, _ string) (Conn, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("channel: redis ping: %w", err)
		}
		ps := client.Subscribe(ctx, topic)
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("channel: redis subscribe %q: %w", topic, err)
		}
		rc := &redisConn{
			client: client,
			topic:  topic,
			ps:     ps,
			msgs:   make(chan model.Message, 64),
			closed: make(chan struct{}),
		}
		go rc.readLoop()
		return rc, nil
	}
}

type redisConn struct {
	client *redis.Client
	topic  string
	ps     *redis.PubSub
	msgs   chan model.Message
	closed chan struct{}
	once   sync.Once
}

func (c *redisConn) readLoop() {
	for rm := range c.ps.Channel() {
		var m model.Message
		if err := json.Unmarshal([]byte(rm.Payload), &m); err != nil {
			obs.Logger.Warn("redis message discarded", "topic", c.topic, "error", err)
			continue
		}
		select {
		case c.msgs <- m:
		case <-c.closed:
			return
		}
	}
}

func (c *redisConn) Send(m model.Message) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	if m.Type == model.TypePing {
		if err := c.client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("channel: redis ping: %w", err)
		}
		select {
		case c.msgs <- model.Message{Type: model.TypePong}:
		default:
		}
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("channel: marshal message: %w", err)
	}
	if err := c.client.Publish(context.Background(), c.topic, b).Err(); err != nil {
		return fmt.Errorf("channel: redis publish: %w", err)
	}
	return nil
}

func (c *redisConn) Recv() (model.Message, error) {
	select {
	case m := <-c.msgs:
		return m, nil
	case <-c.closed:
		return model.Message{}, net.ErrClosed
	}
}

func (c *redisConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.ps.Close()
	})
	return err
}

// RedisPublisher is the fire-and-forget writer side for the Redis
// transport. Same failure policy as the loopback Publisher: log and move
// on, the local mutation already holds.
type RedisPublisher struct {
	client *redis.Client
	topic  string
}

// NewRedisPublisher builds a publisher on the given topic.
func NewRedisPublisher(client *redis.Client, topic string) *RedisPublisher {
	return &RedisPublisher{client: client, topic: topic}
}

// Publish sends one message to the topic.
func (p *RedisPublisher) Publish(msg model.Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		obs.Logger.Error("broadcast marshal failed", "error", err)
		return
	}
	if err := p.client.Publish(context.Background(), p.topic, b).Err(); err != nil {
		obs.Logger.Warn("broadcast publish failed", "topic", p.topic, "error", err)
	}
}
