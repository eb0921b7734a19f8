package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/store"
)

type supplierRequest struct {
	Name    string  `json:"name"`
	Contact *string `json:"contact"`
}

// validatePatch returns a client-facing message for the first invalid field,
// or "" when the patch is acceptable.
func validatePatch(pp model.ProductPatch, requireName bool) string {
	if pp.Name != nil {
		trimmed := strings.TrimSpace(*pp.Name)
		pp.Name = &trimmed
	}
	if (requireName && pp.Name == nil) || (pp.Name != nil && *pp.Name == "") {
		return "Product name is required"
	}
	if pp.Price != nil && pp.Price.IsNegative() {
		return "price must be >= 0"
	}
	if pp.StockQuantity != nil && *pp.StockQuantity < 0 {
		return "stock_quantity must be >= 0"
	}
	if pp.ReorderLevel != nil && *pp.ReorderLevel < 0 {
		return "reorder_level must be >= 0"
	}
	return ""
}

func (a *App) writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, notFound, "")
		return
	}
	WriteJSONError(w, http.StatusInternalServerError, "db error", err.Error())
}

func (a *App) productsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := a.Store.ListProducts(r.Context())
		if err != nil {
			a.writeStoreError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		a.createProduct(w, r)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) createProduct(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	var pp model.ProductPatch
	if !decodeJSON(w, r, &pp) {
		return
	}
	if msg := validatePatch(pp, true); msg != "" {
		WriteJSONError(w, http.StatusBadRequest, msg, "")
		return
	}
	name := strings.TrimSpace(*pp.Name)
	pp.Name = &name
	p := model.Product{ReorderLevel: a.Cfg.DefaultReorderLevel}
	pp.Apply(&p)
	if err := a.Store.CreateProduct(r.Context(), &p); err != nil {
		a.writeStoreError(w, err, "supplier not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	var pp model.ProductPatch
	if !decodeJSON(w, r, &pp) {
		return
	}
	if msg := validatePatch(pp, false); msg != "" {
		WriteJSONError(w, http.StatusBadRequest, msg, "")
		return
	}
	if pp.Name != nil {
		name := strings.TrimSpace(*pp.Name)
		pp.Name = &name
	}
	p, err := a.Store.UpdateProduct(r.Context(), id, pp)
	if err != nil {
		a.writeStoreError(w, err, "product or supplier not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) suppliersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := a.Store.ListSuppliers(r.Context())
		if err != nil {
			a.writeStoreError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		a.createSupplier(w, r)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) createSupplier(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	var req supplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := model.Supplier{Name: strings.TrimSpace(req.Name)}
	if s.Name == "" {
		WriteJSONError(w, http.StatusBadRequest, "Supplier name is required", "")
		return
	}
	if req.Contact != nil {
		if c := strings.TrimSpace(*req.Contact); c != "" {
			s.Contact = &c
		}
	}
	if err := a.Store.CreateSupplier(r.Context(), &s); err != nil {
		a.writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}
