package events

// Topic constants for domain events emitted by the platform.
const (
	TopicCartUpdated     = "cart.updated"
	TopicOrderCreated    = "order.created"
	TopicOrderPaid       = "order.paid"
	TopicOrderCanceled   = "order.canceled"
	TopicOrderReturned   = "order.returned"
	TopicPaymentFailed   = "payment.failed"
	TopicPaymentRefunded = "payment.refunded"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicCartUpdated,
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderCanceled,
		TopicOrderReturned,
		TopicPaymentFailed,
		TopicPaymentRefunded,
	}
}
