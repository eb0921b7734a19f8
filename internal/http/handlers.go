package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
	"github.com/fairyhunter13/inventory-pos-service/internal/queue"
	"github.com/fairyhunter13/inventory-pos-service/internal/sales"
	"github.com/fairyhunter13/inventory-pos-service/internal/store"
)

// App carries the dependencies shared by the handlers.
type App struct {
	Cfg     config.Config
	Store   store.Store
	Sales   *sales.Processor
	Alerts  *queue.Manager
	closing atomic.Bool
	started time.Time
}

// NewApp wires the handlers to a store, a sale processor and the alert
// manager. alerts may be nil.
func NewApp(cfg config.Config, st store.Store, sp *sales.Processor, alerts *queue.Manager) *App {
	return &App{Cfg: cfg, Store: st, Sales: sp, Alerts: alerts, started: time.Now()}
}

// StartShutdown makes write endpoints answer 503 from now on.
func (a *App) StartShutdown() { a.closing.Store(true) }

// ShuttingDown reports whether StartShutdown was called.
func (a *App) ShuttingDown() bool { return a.closing.Load() }

type lineItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type saleRequest struct {
	Items []lineItemRequest `json:"items"`
}

type seenResponse struct {
	ID   int64 `json:"id"`
	Seen bool  `json:"seen"`
}

// decodeJSON requires a JSON content type and rejects unknown fields. It
// writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) salesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSales(w, r)
	case http.MethodPost:
		a.createSale(w, r)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) createSale(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	var req saleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items := make([]model.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	res, err := a.Sales.ProcessSale(r.Context(), items)
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
	obs.Logger.Debugw("sale_accepted",
		"request_id", RequestIDFromContext(r.Context()),
		"lines", len(res.Sales),
	)
}

func (a *App) listSales(w http.ResponseWriter, r *http.Request) {
	out, err := a.Sales.ListSales(r.Context())
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	sum, err := a.Sales.Dashboard(r.Context())
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *App) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	out, err := a.Sales.ListNotifications(r.Context())
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) markSeenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	n, err := a.Sales.MarkNotificationSeen(r.Context(), id)
	if err != nil {
		writeSaleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seenResponse{ID: n.ID, Seen: n.Seen})
}
