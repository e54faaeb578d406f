package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationTotal counts cart mutation outcomes by operation.
	CartMutationTotal *prometheus.CounterVec
	// OrderCreatedTotal counts order creation outcomes.
	OrderCreatedTotal *prometheus.CounterVec
	// OrderTransitionTotal counts item status transition outcomes.
	OrderTransitionTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// SideEffectDropTotal counts swallowed best-effort side effect failures.
	SideEffectDropTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutation_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"})
		OrderCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_created_total",
			Help:      "Count of order creation outcomes.",
		}, []string{"result"})
		OrderTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transition_total",
			Help:      "Count of order item status transitions by target status.",
		}, []string{"status", "result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})
		SideEffectDropTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_drop_total",
			Help:      "Count of best-effort side effects that failed and were dropped.",
		}, []string{"effect"})

		reg.MustRegister(
			CartMutationTotal,
			OrderCreatedTotal,
			OrderTransitionTotal,
			PaymentWebhookTotal,
			SideEffectDropTotal,
		)
	})
}
