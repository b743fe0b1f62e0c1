package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

func TestEchoOfOwnWriteDoesNotDoubleApply(t *testing.T) {
	pub := &capturePublisher{}
	st := New(pub)

	st.CreateProduct(model.ProductInput{Name: "Widget", Price: price(t, "9.99"), Stock: 5})
	msgs := pub.all()
	require.Len(t, msgs, 1)

	// the loopback channel echoes the broadcast back to its originator
	st.ApplyBroadcast(msgs[0])

	products := st.Products()
	require.Len(t, products, 1, "echo must not double-insert")
	assert.Equal(t, "Widget", products[0].Name)
	assert.Len(t, st.History(), 1, "echo must not duplicate the log entry")
}

func TestRemoteStoreConvergesFromBroadcasts(t *testing.T) {
	pub := &capturePublisher{}
	writer := New(pub)
	reader := New(nil)

	cat := writer.CreateCategory(model.CategoryInput{Name: "Tools"})
	p := writer.CreateProduct(model.ProductInput{Name: "Hammer", Price: price(t, "5.00"), Stock: 3, CategoryID: cat.ID})
	stock := 9
	_, err := writer.UpdateProduct(p.ID, model.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	require.NoError(t, writer.DeleteCategory(cat.ID))

	for _, m := range pub.all() {
		reader.ApplyBroadcast(m)
	}

	got := reader.Products()
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Equal(t, "Hammer", got[0].Name)
	assert.Equal(t, 9, got[0].Stock, "patch broadcast must merge on the remote side")
	assert.True(t, got[0].Price.Equal(price(t, "5.00")))
	assert.Equal(t, cat.ID, got[0].CategoryID)
	assert.Empty(t, reader.Categories(), "category delete must replicate")
	assert.Len(t, reader.History(), len(writer.History()))
}

func TestApplyBroadcastIsIdempotentPerSequence(t *testing.T) {
	pub := &capturePublisher{}
	writer := New(pub)
	reader := New(nil)

	writer.CreateProduct(model.ProductInput{Name: "Widget"})
	msg := pub.all()[0]

	reader.ApplyBroadcast(msg)
	reader.ApplyBroadcast(msg) // duplicate delivery is harmless

	assert.Len(t, reader.Products(), 1)
	assert.Len(t, reader.History(), 1)
}

func TestApplyBroadcastToleratesStalePatch(t *testing.T) {
	reader := New(nil)

	name := "Renamed"
	payload, err := json.Marshal(model.ProductUpdatePayload{ID: "gone", ProductPatch: model.ProductPatch{Name: &name}})
	require.NoError(t, err)
	reader.ApplyBroadcast(model.Message{
		Type:    model.TypeBroadcast,
		Action:  model.ActionProductUpdated,
		Payload: payload,
		Seq:     1,
	})

	// a stale update after a delete is expected in push systems: no error,
	// no collection change, but the received mutation is still recorded
	assert.Empty(t, reader.Products())
	assert.Len(t, reader.History(), 1)
}

func TestApplyBroadcastDropsMalformedPayload(t *testing.T) {
	reader := New(nil)
	reader.ApplyBroadcast(model.Message{
		Type:    model.TypeBroadcast,
		Action:  model.ActionProductCreated,
		Payload: json.RawMessage(`{not json`),
		Seq:     1,
	})
	assert.Empty(t, reader.Products())
	assert.Empty(t, reader.History())
}

func TestApplyBroadcastIgnoresNonBroadcastTypes(t *testing.T) {
	reader := New(nil)
	reader.ApplyBroadcast(model.Message{Type: model.TypePing})
	reader.ApplyBroadcast(model.Message{Type: model.TypeInit})
	assert.Empty(t, reader.History())
}

func TestLoadSnapshotBootstrapsCollectionsOnly(t *testing.T) {
	st := New(nil)
	st.CreateProduct(model.ProductInput{Name: "stale"})

	st.LoadSnapshot(
		[]model.Product{{ID: "p1", Name: "Fresh"}},
		[]model.Category{{ID: "c1", Name: "General"}},
	)

	products := st.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "Fresh", products[0].Name)
	require.Len(t, st.Categories(), 1)
	assert.Len(t, st.History(), 1, "bootstrap must not rewrite history")
}
