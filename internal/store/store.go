// Package store provides the PostgreSQL persistence layer. Carts and orders
// are stored as keyed JSONB documents; catalog and coupon data is relational.
package store

import (
	"errors"
)

// ErrUnavailable indicates the store dependency is not configured.
var ErrUnavailable = errors.New("store: pool unavailable")
