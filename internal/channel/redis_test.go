package channel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

func redisClientT(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisDialerRoundTrip(t *testing.T) {
	client := redisClientT(t)
	dial := RedisDialer(client, "inventory")

	sub, err := dial(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	pub := NewRedisPublisher(client, "inventory")
	pub.Publish(model.Message{Type: model.TypeBroadcast, Action: model.ActionProductCreated, Seq: 3})

	m := recvT(t, sub)
	assert.Equal(t, model.TypeBroadcast, m.Type)
	assert.Equal(t, model.ActionProductCreated, m.Action)
	assert.Equal(t, uint64(3), m.Seq)
}

func TestRedisPingSynthesizesPong(t *testing.T) {
	client := redisClientT(t)
	conn, err := RedisDialer(client, "inventory")(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Send(model.Message{Type: model.TypePing}))
	assert.Equal(t, model.TypePong, recvT(t, conn).Type)
}

func TestRedisConnClose(t *testing.T) {
	client := redisClientT(t)
	conn, err := RedisDialer(client, "inventory")(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close must be idempotent")

	_, err = conn.Recv()
	require.ErrorIs(t, err, net.ErrClosed)
	require.ErrorIs(t, conn.Send(model.Message{Type: model.TypePing}), net.ErrClosed)
}

func TestRedisDialerFailsWhenBrokerIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := RedisDialer(client, "inventory")(context.Background(), "")
	require.Error(t, err)
}

func TestRedisTransportDrivesConnector(t *testing.T) {
	client := redisClientT(t)
	received := make(chan model.Message, 8)
	c := NewConnector(ConnectorConfig{
		URL:               "redis",
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  time.Second,
	}, RedisDialer(client, "inventory"), func(m model.Message) { received <- m })
	c.Start()
	t.Cleanup(c.Close)

	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)

	NewRedisPublisher(client, "inventory").Publish(model.Message{
		Type:   model.TypeBroadcast,
		Action: model.ActionCategoryDeleted,
		Seq:    1,
	})
	select {
	case m := <-received:
		assert.Equal(t, model.ActionCategoryDeleted, m.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never crossed the broker")
	}
}
