package cart

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the remote gateway and checked by the
// coordinator and the HTTP layer.
var (
	// ErrCartNotFound means the cart expired or never existed upstream.
	// Mutations react by creating a fresh cart and retrying once.
	ErrCartNotFound = errors.New("cart not found")

	// ErrVariantNotFound is terminal: the product variant is unknown upstream.
	ErrVariantNotFound = errors.New("variant not found")
)

// TransientError wraps network failures and upstream 5xx responses.
// Eligible for a small retry budget; terminal after that.
type TransientError struct {
	Status int // 0 when the request never got a response
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream returned %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// InventoryError reports that the requested quantity exceeds what the
// backend has on hand. Surfaced verbatim, never clamped.
type InventoryError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Message is the user-facing form, e.g. "Only 2 items available".
func (e *InventoryError) Message() string {
	return fmt.Sprintf("Only %d items available", e.Available)
}
