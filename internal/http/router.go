package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
// Every route is also served under /api.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sales", app.salesHandler)
	mux.HandleFunc("/dashboard-summary", app.dashboardHandler)
	mux.HandleFunc("/notifications", app.listNotificationsHandler)
	mux.HandleFunc("/notifications/{id}/seen", app.markSeenHandler)
	mux.HandleFunc("/products", app.productsHandler)
	mux.HandleFunc("/products/{id}", app.updateProductHandler)
	mux.HandleFunc("/suppliers", app.suppliersHandler)
	mux.HandleFunc("/healthz", app.healthHandler)
	mux.HandleFunc("/debug/metrics", app.metricsHandler)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/openapi.yaml", app.openapiHandler)
	mux.HandleFunc("/docs", app.docsHandler)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", mux))
	root.Handle("/", mux)
	return WithRequestID(WithLogging(root))
}
