package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/channel"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/config"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/export"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/store"
)

// App wires the store into the HTTP surface. Input validation lives here,
// on the form-layer side of the store contract; the store itself trusts
// its inputs.
type App struct {
	Cfg   config.Config
	Store *store.Store
	// ChannelState reports the subscriber connector state on /healthz;
	// nil when no connector is wired.
	ChannelState func() channel.State

	validate *validator.Validate
	started  time.Time
}

// NewApp constructs the HTTP application around a store.
func NewApp(cfg config.Config, st *store.Store) *App {
	return &App{
		Cfg:      cfg,
		Store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		started:  time.Now(),
	}
}

type productCreateRequest struct {
	Name       string          `json:"name" validate:"required"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock" validate:"gte=0,lte=9999"`
	CategoryID string          `json:"categoryId"`
	Image      string          `json:"image"`
}

type productPatchRequest struct {
	Name       *string          `json:"name" validate:"omitempty,min=1"`
	SKU        *string          `json:"sku"`
	Price      *decimal.Decimal `json:"price"`
	Stock      *int             `json:"stock" validate:"omitempty,gte=0,lte=9999"`
	CategoryID *string          `json:"categoryId"`
	Image      *string          `json:"image"`
}

type categoryCreateRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type categoryPatchRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=50"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func priceError(d decimal.Decimal) string {
	if d.IsNegative() {
		return "price must be >= 0"
	}
	if d.Exponent() < -2 {
		return "price must have at most 2 fraction digits"
	}
	return ""
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Products())
}

func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	if msg := priceError(req.Price); msg != "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}
	p := a.Store.CreateProduct(model.ProductInput{
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Stock:      req.Stock,
		CategoryID: req.CategoryID,
		Image:      req.Image,
	})
	obs.Logger.Info("product_created", "product_id", p.ID, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, p := range a.Store.Products() {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	WriteJSONError(w, http.StatusNotFound, "not_found", "")
}

func (a *App) patchProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Price != nil {
		if msg := priceError(*req.Price); msg != "" {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", msg)
			return
		}
	}
	id := chi.URLParam(r, "id")
	p, err := a.Store.UpdateProduct(id, model.ProductPatch{
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Stock:      req.Stock,
		CategoryID: req.CategoryID,
		Image:      req.Image,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	obs.Logger.Info("product_updated", "product_id", id, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, p)
}

func (a *App) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Store.DeleteProduct(id); err != nil {
		writeStoreError(w, err)
		return
	}
	obs.Logger.Info("product_deleted", "product_id", id, "request_id", RequestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) exportProductsHandler(w http.ResponseWriter, r *http.Request) {
	a.writeCSV(w, export.ProductRows(a.Store.Products()), "products")
}

func (a *App) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Categories())
}

func (a *App) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	c := a.Store.CreateCategory(model.CategoryInput{Name: req.Name})
	obs.Logger.Info("category_created", "category_id", c.ID, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, c)
}

func (a *App) patchCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	c, err := a.Store.UpdateCategory(id, model.CategoryPatch{Name: req.Name})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	obs.Logger.Info("category_updated", "category_id", id, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, c)
}

func (a *App) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Store.DeleteCategory(id); err != nil {
		writeStoreError(w, err)
		return
	}
	obs.Logger.Info("category_deleted", "category_id", id, "request_id", RequestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) exportCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	a.writeCSV(w, export.CategoryRows(a.Store.Categories()), "categories")
}

func (a *App) writeCSV(w http.ResponseWriter, rows []export.Row, name string) {
	b, err := export.Marshal(rows)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	_, _ = w.Write(b)
}

func (a *App) historyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.History())
}

type statsResponse struct {
	Changes   store.ChangeStats      `json:"changes"`
	Inventory store.InventorySummary `json:"inventory"`
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Changes:   a.Store.ChangeStats(),
		Inventory: a.Store.Summary(),
	})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status": "ok",
		"uptime": time.Since(a.started).Round(time.Second).String(),
	}
	if a.ChannelState != nil {
		resp["channel"] = a.ChannelState().String()
	}
	writeJSON(w, http.StatusOK, resp)
}
