package payment

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/obs"
)

// Webhook handles payment provider callbacks, including signature
// verification, replay suppression and settlement.
type Webhook struct {
	Providers  map[string]Provider
	Reconciler *Reconciler
	Replay     *redis.Client
	ReplayTTL  time.Duration
	Logger     zerolog.Logger
}

// Routes mounts the webhook endpoint. The provider name is a path parameter
// so new gateways only need a map entry.
func (h *Webhook) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider}", h.Handle)
	return r
}

// Handle processes a single webhook callback.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Providers == nil || h.Reconciler == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		h.observe(providerKey, "unknown_provider")
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.observe(providerKey, "bad_body")
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	ev, err := provider.VerifyWebhook(r, body)
	if err != nil {
		h.observe(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:%s:%s", providerKey, common.Sha256Hex(body))
		fresh, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			h.observe(providerKey, "replay_store_error")
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !fresh {
			h.observe(providerKey, "replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}
	if err := h.Reconciler.Apply(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, ErrUnknownOrder):
			h.observe(providerKey, "unknown_order")
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrAmountMismatch):
			h.observe(providerKey, "amount_mismatch")
			common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		default:
			h.observe(providerKey, "error")
			h.Logger.Error().Err(err).Str("provider", providerKey).Str("type", ev.Type).Msg("apply gateway event")
			common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_ERROR", "settlement failed", nil)
		}
		return
	}
	h.observe(providerKey, "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Webhook) observe(provider, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}
