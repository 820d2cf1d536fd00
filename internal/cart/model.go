package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is one line in a cart. LineID is assigned by the backend; items
// applied optimistically carry a temporary id until the server commit
// replaces them.
type Item struct {
	LineID    string `json:"lineId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	// Prices are minor currency units (e.g. cents).
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
	Size      string `json:"size,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type Cart struct {
	ID        string    `json:"cartId"`
	Items     []Item    `json:"items"`
	Subtotal  int64     `json:"subtotal"`
	ItemCount int       `json:"itemCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const tempLinePrefix = "tmp-"

// NewTempLineID mints a local line id for an optimistic item. The id is
// generated once per intent so retries of the same intent stay idempotent.
func NewTempLineID() string {
	return tempLinePrefix + uuid.NewString()
}

func IsTempLineID(lineID string) bool {
	return strings.HasPrefix(lineID, tempLinePrefix)
}

// Clone returns a deep copy. Snapshots handed out by the store must not
// alias the live cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]Item, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// Recalculate recomputes line totals and aggregates from the items.
// Aggregates are never trusted from upstream payloads.
func (c *Cart) Recalculate() {
	var subtotal int64
	for i := range c.Items {
		c.Items[i].LineTotal = int64(c.Items[i].Quantity) * c.Items[i].UnitPrice
		subtotal += c.Items[i].LineTotal
	}
	c.Subtotal = subtotal
	c.ItemCount = len(c.Items)
}

// FindLine returns the index of the item with the given line id, or -1.
func (c *Cart) FindLine(lineID string) int {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			return i
		}
	}
	return -1
}

// MutationKind identifies the shape of an optimistic mutation.
type MutationKind string

const (
	KindAdd    MutationKind = "add"
	KindUpdate MutationKind = "update"
	KindRemove MutationKind = "remove"
)

// AddInput describes one line to add. UnitPrice, Size and ImageURL are
// display hints used for the optimistic prediction; the server commit
// overrides them with authoritative values.
type AddInput struct {
	VariantID  string
	Quantity   int
	UnitPrice  int64
	Size       string
	ImageURL   string
	Attributes map[string]string
}

// UpdateInput sets a line to a new quantity. Quantity 0 means removal.
type UpdateInput struct {
	LineID   string
	Quantity int
}

// Intent is one in-flight optimistic operation: what to change, the
// pre-mutation snapshot for rollback, and a per-cart sequence number
// used to discard stale completions.
type Intent struct {
	Kind   MutationKind
	CartID string
	Seq    uint64

	Add         []AddInput
	TempLineIDs []string // parallel to Add, stable across retries
	Updates     []UpdateInput
	LineIDs     []string // for remove

	Snapshot *Cart
}

// Phase of a broadcast cart update.
type Phase string

const (
	PhaseOptimistic Phase = "optimistic"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolledback"
)

// Update is the event published after every state transition so
// independent views converge on the same cart.
type Update struct {
	CartID        string
	Phase         Phase
	Seq           uint64
	Cart          Cart
	Err           string // set on rollback, human-readable
	CorrelationID string // request id of the triggering mutation
}
