package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/obs"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the cart endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{itemID}", h.UpdateItem)
	r.Delete("/items/{itemID}", h.RemoveItem)
	r.Post("/coupon", h.ApplyCoupon)
	r.Delete("/coupon", h.RemoveCoupon)
	r.Post("/combos", h.ApplyCombo)
	r.Delete("/combos/{comboID}", h.RemoveCombo)
}

// Get returns the caller's cart with a fresh pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	c, err := h.Svc.EnsureCart(r.Context(), userID)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

type addItemRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	PackSizeID string `json:"packSizeId"`
	Qty        int    `json:"qty" validate:"required,gt=0"`
}

// AddItem adds or merges a line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.AddItem(r.Context(), userID, payload.ProductID, payload.PackSizeID, payload.Qty)
	h.observe("add_item", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

type updateItemRequest struct {
	Qty int `json:"qty" validate:"required,gte=1"`
}

// UpdateItem sets a line item quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload updateItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.UpdateItemQty(r.Context(), userID, chi.URLParam(r, "itemID"), payload.Qty)
	h.observe("update_item", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	c, err := h.Svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemID"))
	h.observe("remove_item", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCoupon attaches a coupon to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload applyCouponRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.ApplyCoupon(r.Context(), userID, payload.Code)
	h.observe("apply_coupon", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	c, err := h.Svc.RemoveCoupon(r.Context(), userID)
	h.observe("remove_coupon", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

type applyComboRequest struct {
	ComboID    string `json:"comboId" validate:"required"`
	Multiplier int    `json:"multiplier" validate:"omitempty,gte=1"`
}

// ApplyCombo expands a bundle into the cart.
func (h *Handler) ApplyCombo(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload applyComboRequest
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.ApplyCombo(r.Context(), userID, payload.ComboID, payload.Multiplier)
	h.observe("apply_combo", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveCombo drops a bundle and its tagged lines.
func (h *Handler) RemoveCombo(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	c, err := h.Svc.RemoveCombo(r.Context(), userID, chi.URLParam(r, "comboID"))
	h.observe("remove_combo", err)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid JSON payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) observe(op string, err error) {
	if obs.CartMutationTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.CartMutationTotal.WithLabelValues(op, result).Inc()
}

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFoundError(err.Error(), err))
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.ValidationError(err.Error(), err))
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrCouponApplied), errors.Is(err, ErrComboApplied):
		common.WriteError(w, common.ConflictError(err.Error(), err))
	default:
		common.WriteError(w, err)
	}
}
