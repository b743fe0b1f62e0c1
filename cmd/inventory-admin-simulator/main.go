// Package main boots the Inventory Admin Simulator HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/channel"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/config"
	httpapi "github.com/fairyhunter13/inventory-admin-simulator/internal/http"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		obs.Logger.Info("no .env file, relying on process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Error("config_load_error", "error", err)
		os.Exit(1)
	}
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "env", cfg.AppEnv)

	st := store.New(nil)

	// Transport selection: the loopback hub keeps everything in-process;
	// a configured Redis address routes the same wire format through a
	// real broker instead.
	var (
		dial channel.Dialer
		pub  store.Publisher
		hub  *channel.Hub
	)
	if cfg.Channel.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Channel.RedisAddr})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancelPing()
		if err != nil {
			obs.Logger.Error("redis_unreachable", "addr", cfg.Channel.RedisAddr, "error", err)
			os.Exit(1)
		}
		dial = channel.RedisDialer(client, cfg.Channel.URL)
		pub = channel.NewRedisPublisher(client, cfg.Channel.URL)
	} else {
		hub, err = channel.NewHub(cfg.Channel.URL, st.Snapshot)
		if err != nil {
			obs.Logger.Error("hub_bind_error", "url", cfg.Channel.URL, "error", err)
			os.Exit(1)
		}
		dial = channel.Dial
		pub = channel.NewPublisher(cfg.Channel.URL, nil)
	}
	st.SetPublisher(pub)

	conn := channel.NewConnector(channel.ConnectorConfig{
		URL:               cfg.Channel.URL,
		HeartbeatInterval: cfg.Heartbeat.Interval,
		HeartbeatTimeout:  cfg.Heartbeat.Timeout,
		MaxAttempts:       cfg.Reconnect.MaxAttempts,
		InitialDelay:      cfg.Reconnect.InitialDelay,
		MaxDelay:          cfg.Reconnect.MaxDelay,
	}, dial, func(m model.Message) {
		switch m.Type {
		case model.TypeInit:
			st.LoadSnapshot(m.Products, m.Categories)
		case model.TypeBroadcast:
			st.ApplyBroadcast(m)
		}
	})
	conn.Start()

	seed(st)

	app := httpapi.NewApp(cfg, st)
	app.ChannelState = conn.State
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	conn.Close()
	if hub != nil {
		_ = hub.Close()
	}
	obs.Logger.Info("service_stopped")
}

// seed installs the demo dataset through the normal create path so the
// change history and broadcast fan-out see it like any other mutation.
func seed(st *store.Store) {
	general := st.CreateCategory(model.CategoryInput{Name: "General"})
	electronics := st.CreateCategory(model.CategoryInput{Name: "Electronics"})
	st.CreateProduct(model.ProductInput{
		Name:       "Sample A",
		SKU:        "A-001",
		Price:      decimal.RequireFromString("19.99"),
		Stock:      12,
		CategoryID: general.ID,
	})
	st.CreateProduct(model.ProductInput{
		Name:       "Sample B",
		SKU:        "B-002",
		Price:      decimal.RequireFromString("129.50"),
		Stock:      3,
		CategoryID: electronics.ID,
	})
}
