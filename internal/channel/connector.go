package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

// State is the connector lifecycle position:
// disconnected -> connecting -> connected -> (closed|errored) -> disconnected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// ConnectorConfig tunes heartbeat and reconnect behavior. Zero values
// take the production defaults.
type ConnectorConfig struct {
	URL               string
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
}

func (cfg ConnectorConfig) withDefaults() ConnectorConfig {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return cfg
}

// Connector maintains the long-lived subscriber connection: it dials,
// runs a periodic liveness ping with a pong deadline, and reconnects with
// exponential backoff after a close or error. All timer-driven
// transitions run on a single control loop; a reconnect never starts
// before the previous attempt fully resolves. Exhausting the attempt cap
// is terminal and silent; integrators can watch State.
type Connector struct {
	cfg       ConnectorConfig
	dial      Dialer
	onMessage func(model.Message)

	state   atomic.Int32
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
}

// NewConnector builds a connector delivering non-control messages to
// onMessage. A nil dialer defaults to the loopback Dial.
func NewConnector(cfg ConnectorConfig, dial Dialer, onMessage func(model.Message)) *Connector {
	if dial == nil {
		dial = Dial
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Connector{
		cfg:       cfg.withDefaults(),
		dial:      dial,
		onMessage: onMessage,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the control loop in the background.
func (c *Connector) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run()
}

// Close is the caller-initiated cancellation path: it stops pending
// reconnect and heartbeat timers, closes any open connection and
// suppresses further reconnection. Idempotent.
func (c *Connector) Close() {
	c.once.Do(c.cancel)
	if c.started.Load() {
		<-c.done
	}
}

// State reports the current lifecycle position.
func (c *Connector) State() State { return State(c.state.Load()) }

func (c *Connector) setState(s State) { c.state.Store(int32(s)) }

func (c *Connector) run() {
	defer close(c.done)
	defer c.setState(StateDisconnected)
	attempt := 0
	for {
		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateConnecting)
		conn, err := c.dial(c.ctx, c.cfg.URL)
		if err != nil {
			obs.Logger.Warn("channel connect failed", "url", c.cfg.URL, "error", err)
			c.setState(StateErrored)
			if !c.waitBackoff(&attempt) {
				return
			}
			continue
		}
		attempt = 0
		c.setState(StateConnected)
		obs.Logger.Info("channel connected", "url", c.cfg.URL)
		reason := c.serve(conn)
		_ = conn.Close()
		c.setState(StateClosed)
		obs.Logger.Info("channel connection closed", "url", c.cfg.URL, "reason", string(reason))
		if reason == reasonShutdown {
			return
		}
		if !c.waitBackoff(&attempt) {
			return
		}
	}
}

type closeReason string

const (
	reasonShutdown closeReason = "shutdown"
	reasonClosed   closeReason = "remote_closed"
	reasonError    closeReason = "send_error"
	reasonTimeout  closeReason = "heartbeat_timeout"
)

// serve drives one established connection until it ends, returning why.
func (c *Connector) serve(conn Conn) closeReason {
	inbound := make(chan model.Message)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			m, err := conn.Recv()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case inbound <- m:
			case <-stop:
				return
			}
		}
	}()

	hb := time.NewTicker(c.cfg.HeartbeatInterval)
	defer hb.Stop()
	var pongDeadline *time.Timer
	var pongC <-chan time.Time
	disarm := func() {
		// no-op when nothing is armed
		if pongDeadline != nil {
			pongDeadline.Stop()
			pongDeadline = nil
			pongC = nil
		}
	}
	defer disarm()

	for {
		select {
		case <-c.ctx.Done():
			return reasonShutdown
		case <-hb.C:
			if err := conn.Send(model.Message{Type: model.TypePing}); err != nil {
				obs.Logger.Warn("heartbeat send failed", "error", err)
				return reasonError
			}
			if pongDeadline == nil {
				pongDeadline = time.NewTimer(c.cfg.HeartbeatTimeout)
				pongC = pongDeadline.C
			}
		case <-pongC:
			obs.Logger.Warn("heartbeat timed out, forcing close", "timeout", c.cfg.HeartbeatTimeout.String())
			return reasonTimeout
		case m := <-inbound:
			if m.Type == model.TypePong {
				disarm()
				continue
			}
			if c.onMessage != nil {
				c.onMessage(m)
			}
		case <-readErr:
			return reasonClosed
		}
	}
}

// waitBackoff sleeps before the next attempt. It reports false once the
// attempt cap is exhausted or the connector is closed.
func (c *Connector) waitBackoff(attempt *int) bool {
	*attempt++
	if *attempt > c.cfg.MaxAttempts {
		obs.Logger.Warn("channel reconnect attempts exhausted",
			"url", c.cfg.URL,
			"max_attempts", c.cfg.MaxAttempts,
		)
		return false
	}
	d := BackoffDelay(c.cfg.InitialDelay, *attempt, c.cfg.MaxDelay)
	obs.Logger.Info("channel reconnect scheduled", "attempt", *attempt, "delay", d.String())
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// BackoffDelay returns initial * 2^attempt clamped to max. Attempts count
// from 1, so the first retry already waits twice the initial delay.
func BackoffDelay(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if initial <= 0 {
		initial = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	return d
}
