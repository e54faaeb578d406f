package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names routed through the asynq mux.
const (
	TypeProductSoldIncrement = "product:sold_increment"
	TypeOrderNotify          = "order:notify"
)

// ProductSoldPayload increments a product's lifetime sold counter.
type ProductSoldPayload struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// OrderNotifyPayload delivers an order lifecycle notification to the user.
type OrderNotifyPayload struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Topic   string `json:"topic"`
}

// NewProductSoldTask builds the sold counter increment task.
func NewProductSoldTask(productID string, qty int) (*asynq.Task, error) {
	payload, err := json.Marshal(ProductSoldPayload{ProductID: productID, Qty: qty})
	if err != nil {
		return nil, fmt.Errorf("marshal product sold payload: %w", err)
	}
	return asynq.NewTask(TypeProductSoldIncrement, payload, asynq.MaxRetry(5)), nil
}

// NewOrderNotifyTask builds an order notification task.
func NewOrderNotifyTask(orderID, userID, topic string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderNotifyPayload{OrderID: orderID, UserID: userID, Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("marshal order notify payload: %w", err)
	}
	return asynq.NewTask(TypeOrderNotify, payload, asynq.MaxRetry(3)), nil
}
