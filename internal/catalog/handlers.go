package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pasar/internal/common"
)

// Handler exposes the read-only catalog endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the catalog endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products/{productID}", h.Product)
	r.Get("/combos/{comboID}", h.Combo)
}

// Product returns a product with its pack sizes.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, p)
}

// Combo returns a combo bundle with its constituents.
func (h *Handler) Combo(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetCombo(r.Context(), chi.URLParam(r, "comboID"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.WriteError(w, common.NotFoundError("not found", err))
		return
	}
	common.WriteError(w, err)
}
