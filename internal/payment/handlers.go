package payment

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/order"
)

// Handler exposes intent creation and status sync for an order the caller
// owns.
type Handler struct {
	Orders     *order.Service
	Store      order.Store
	Provider   Provider
	Reconciler *Reconciler
	Currency   string
	Logger     zerolog.Logger
}

// Routes returns the payment endpoints mounted under /orders/{orderID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateIntent)
	r.Post("/sync", h.SyncStatus)
	return r
}

// CreateIntent opens a payment intent for the order and stores its id so
// webhook settlement can be cross-checked later.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	orderID := chi.URLParam(r, "orderID")
	o, err := h.Orders.Get(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	if o.Payment.Status == order.PaymentCompleted {
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "order is already paid", nil)
		return
	}
	resp, err := h.Provider.CreateIntent(r.Context(), IntentRequest{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Amount:   int64(o.Pricing.FinalTotal),
		Currency: h.Currency,
		Method:   o.Payment.Method,
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("order_id", o.ID).Msg("create payment intent")
		common.WriteError(w, common.ExternalServiceError("payment provider unavailable", err))
		return
	}
	if o.Payment.IntentID != resp.IntentID {
		o.Payment.IntentID = resp.IntentID
		if err := h.Store.Update(r.Context(), &o); err != nil {
			h.Logger.Error().Err(err).Str("order_id", o.ID).Msg("persist payment intent id")
			common.WriteError(w, err)
			return
		}
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"provider":     resp.Provider,
		"intentId":     resp.IntentID,
		"clientSecret": resp.ClientSecret,
		"amount":       o.Pricing.FinalTotal,
		"currency":     h.Currency,
	})
}

// SyncStatus polls the gateway for the intent's current state and settles the
// order through the reconciler. Covers webhooks lost in transit.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	orderID := chi.URLParam(r, "orderID")
	o, err := h.Orders.Get(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	if o.Payment.IntentID == "" {
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "order has no payment intent", nil)
		return
	}
	resp, err := h.Provider.RetrieveIntent(r.Context(), o.Payment.IntentID)
	if err != nil {
		h.Logger.Error().Err(err).Str("order_id", o.ID).Msg("retrieve payment intent")
		common.WriteError(w, common.ExternalServiceError("payment provider unavailable", err))
		return
	}
	if resp.Status != EventPending && h.Reconciler != nil {
		ev := GatewayEvent{
			Provider: resp.Provider,
			Type:     "poll",
			IntentID: resp.IntentID,
			OrderID:  o.ID,
			Status:   resp.Status,
		}
		if err := h.Reconciler.Apply(r.Context(), ev); err != nil {
			h.Logger.Error().Err(err).Str("order_id", o.ID).Msg("apply polled intent state")
			common.WriteError(w, err)
			return
		}
		o, err = h.Orders.Get(r.Context(), userID, orderID)
		if err != nil {
			common.WriteError(w, err)
			return
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orderId":       o.ID,
		"intentId":      o.Payment.IntentID,
		"gatewayStatus": resp.Status,
		"paymentStatus": o.Payment.Status,
	})
}
