package httpapi

import (
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(WithRequestID)
	r.Use(WithLogging)
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", app.listProductsHandler)
			r.Post("/", app.createProductHandler)
			r.Get("/export", app.exportProductsHandler)
			r.Get("/{id}", app.getProductHandler)
			r.Patch("/{id}", app.patchProductHandler)
			r.Delete("/{id}", app.deleteProductHandler)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", app.listCategoriesHandler)
			r.Post("/", app.createCategoryHandler)
			r.Get("/export", app.exportCategoriesHandler)
			r.Patch("/{id}", app.patchCategoryHandler)
			r.Delete("/{id}", app.deleteCategoryHandler)
		})
		r.Get("/history", app.historyHandler)
		r.Get("/stats", app.statsHandler)
	})

	r.Get("/healthz", app.healthHandler)
	r.Handle("/debug/vars", expvar.Handler())
	r.Get("/openapi.yaml", app.openapiHandler)
	r.Get("/docs", app.docsHandler)
	return r
}
