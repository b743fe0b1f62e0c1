package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/channel"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/config"
	httpapi "github.com/fairyhunter13/inventory-admin-simulator/internal/http"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/store"
)

// rig is the full production wiring in one process: a writer store
// publishing to a loopback hub, an HTTP API in front of the writer, and
// an observer store fed by a connector subscribed to the same hub.
type rig struct {
	ts       *httptest.Server
	writer   *store.Store
	observer *store.Store
	conn     *channel.Connector
}

func newRig(t *testing.T) *rig {
	t.Helper()
	url := "loopback://" + t.Name()

	writer := store.New(nil)
	hub, err := channel.NewHub(url, writer.Snapshot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })
	writer.SetPublisher(channel.NewPublisher(url, nil))

	observer := store.New(nil)
	conn := channel.NewConnector(channel.ConnectorConfig{
		URL:               url,
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  time.Second,
	}, nil, func(m model.Message) {
		switch m.Type {
		case model.TypeInit:
			observer.LoadSnapshot(m.Products, m.Categories)
		case model.TypeBroadcast:
			observer.ApplyBroadcast(m)
		}
	})
	conn.Start()
	t.Cleanup(conn.Close)

	app := httpapi.NewApp(config.Config{}, writer)
	app.ChannelState = conn.State
	ts := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(ts.Close)

	return &rig{ts: ts, writer: writer, observer: observer, conn: conn}
}

func (r *rig) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, r.ts.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.ts.Client().Do(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, b
}

func TestObserverConvergesWithWriterAcrossTheChannel(t *testing.T) {
	r := newRig(t)

	resp, body := r.do(t, http.MethodPost, "/api/categories", `{"name":"Tools"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var cat model.Category
	require.NoError(t, json.Unmarshal(body, &cat))

	resp, body = r.do(t, http.MethodPost, "/api/products",
		`{"name":"Hammer","price":"5.00","stock":3,"categoryId":"`+cat.ID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var prod model.Product
	require.NoError(t, json.Unmarshal(body, &prod))

	resp, _ = r.do(t, http.MethodPatch, "/api/products/"+prod.ID, `{"stock":9}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		got := r.observer.Products()
		return len(got) == 1 && got[0].Stock == 9
	}, 2*time.Second, 5*time.Millisecond, "observer must replay all broadcasts")

	got := r.observer.Products()[0]
	assert.Equal(t, prod.ID, got.ID)
	assert.Equal(t, "Hammer", got.Name)
	assert.Equal(t, cat.ID, got.CategoryID)
	require.Len(t, r.observer.Categories(), 1)

	// the writer applied each mutation exactly once despite the hub living
	// in the same process
	assert.Len(t, r.writer.Products(), 1)
	assert.Len(t, r.writer.History(), 3)
	assert.Eventually(t, func() bool {
		return len(r.observer.History()) == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeletePropagatesToObserver(t *testing.T) {
	r := newRig(t)

	_, body := r.do(t, http.MethodPost, "/api/products", `{"name":"Ephemeral","stock":1}`)
	var prod model.Product
	require.NoError(t, json.Unmarshal(body, &prod))
	require.Eventually(t, func() bool { return len(r.observer.Products()) == 1 }, 2*time.Second, 5*time.Millisecond)

	resp, _ := r.do(t, http.MethodDelete, "/api/products/"+prod.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool { return len(r.observer.Products()) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestLateSubscriberBootstrapsFromInitSnapshot(t *testing.T) {
	url := "loopback://" + t.Name()
	writer := store.New(nil)
	hub, err := channel.NewHub(url, writer.Snapshot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })
	writer.SetPublisher(channel.NewPublisher(url, nil))

	// state accumulates before anyone subscribes
	writer.CreateCategory(model.CategoryInput{Name: "General"})
	writer.CreateProduct(model.ProductInput{Name: "Preexisting", Stock: 4})

	late := store.New(nil)
	conn := channel.NewConnector(channel.ConnectorConfig{URL: url, HeartbeatInterval: time.Minute}, nil,
		func(m model.Message) {
			switch m.Type {
			case model.TypeInit:
				late.LoadSnapshot(m.Products, m.Categories)
			case model.TypeBroadcast:
				late.ApplyBroadcast(m)
			}
		})
	conn.Start()
	t.Cleanup(conn.Close)

	require.Eventually(t, func() bool {
		return len(late.Products()) == 1 && len(late.Categories()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Preexisting", late.Products()[0].Name)
}

func TestHealthEndpointSeesLiveChannel(t *testing.T) {
	r := newRig(t)

	require.Eventually(t, func() bool {
		resp, body := r.do(t, http.MethodGet, "/healthz", "")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var health map[string]string
		if err := json.Unmarshal(body, &health); err != nil {
			return false
		}
		return health["channel"] == "connected"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDocsAndOpenAPIServed(t *testing.T) {
	r := newRig(t)

	resp, _ := r.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := r.do(t, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "swagger-ui")
}
