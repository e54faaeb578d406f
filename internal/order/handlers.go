package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/obs"
)

// Handler wires order creation and lifecycle endpoints to HTTP.
type Handler struct {
	Factory  *Factory
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the order endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{orderID}", h.Get)
	r.Post("/{orderID}/items/{itemID}/status", h.UpdateItemStatus)
	r.Post("/{orderID}/items/{itemID}/cancel", h.CancelItem)
	r.Post("/{orderID}/items/{itemID}/return", h.ReturnItem)
}

type createOrderRequest struct {
	Address       Address `json:"address" validate:"required"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=cod card upi netbanking"`
}

// Create builds an order from the caller's priced cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload createOrderRequest
	if !h.decode(w, r, &payload) {
		return
	}
	o, err := h.Factory.CreateOrder(r.Context(), userID, payload.Address, payload.PaymentMethod)
	if obs.OrderCreatedTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.OrderCreatedTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// List returns the caller's orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	orders, err := h.Svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Get returns one order with full history and timeline.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	o, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type itemStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	Notes  string `json:"notes"`
}

// UpdateItemStatus applies a fulfillment transition to one item.
func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	var payload itemStatusRequest
	if !h.decode(w, r, &payload) {
		return
	}
	userID, _ := common.UserID(r.Context())
	o, err := h.Svc.AdvanceItem(r.Context(), userID, chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"), Status(payload.Status), payload.Notes)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// CancelItem cancels a single item.
func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	var payload notesRequest
	_ = json.NewDecoder(r.Body).Decode(&payload)
	userID, _ := common.UserID(r.Context())
	o, err := h.Svc.CancelItem(r.Context(), userID, chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"), payload.Notes)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// ReturnItem starts the return flow for a delivered item.
func (h *Handler) ReturnItem(w http.ResponseWriter, r *http.Request) {
	var payload notesRequest
	_ = json.NewDecoder(r.Body).Decode(&payload)
	userID, _ := common.UserID(r.Context())
	o, err := h.Svc.ReturnItem(r.Context(), userID, chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"), payload.Notes)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
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

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound):
		common.WriteError(w, common.NotFoundError(err.Error(), err))
	case errors.Is(err, ErrInvalidTransition):
		common.WriteError(w, common.InvalidTransitionError(err.Error(), err))
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.ValidationError(err.Error(), err))
	default:
		common.WriteError(w, err)
	}
}
