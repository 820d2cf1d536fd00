package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
	"github.com/w3bsuki/strike-cart-go/internal/gateway"
	"github.com/w3bsuki/strike-cart-go/internal/middleware"
	"github.com/w3bsuki/strike-cart-go/internal/model"
	"github.com/w3bsuki/strike-cart-go/internal/share"
)

const HeaderCartID = "X-Cart-Id"

// CartService is the mutation surface, implemented by cart.Coordinator.
type CartService interface {
	GetCart(ctx context.Context, cartID string) (*cart.Cart, error)
	CreateCart(ctx context.Context) (*cart.Cart, error)
	Add(ctx context.Context, cartID string, in cart.AddInput) (*cart.Cart, error)
	Update(ctx context.Context, cartID, lineID string, quantity int) (*cart.Cart, error)
	BulkAdd(ctx context.Context, cartID string, items []cart.AddInput) (*cart.Cart, error)
	BulkUpdate(ctx context.Context, cartID string, updates []cart.UpdateInput) (*cart.Cart, error)
}

// ShareService mints and resolves share tokens, implemented by
// share.Service.
type ShareService interface {
	Create(ctx context.Context, cartID string, ttl time.Duration) (share.Share, error)
	Resolve(token string) (share.Snapshot, error)
}

// InventoryChecker is the availability probe, implemented by
// gateway.Client.
type InventoryChecker interface {
	CheckInventory(ctx context.Context, variantID string, quantity int) (gateway.InventoryStatus, error)
}

type Handler struct {
	carts     CartService
	shares    ShareService
	inventory InventoryChecker

	// Default share TTL when the request carries no expiryHours.
	shareTTL time.Duration
}

func NewHandler(carts CartService, shares ShareService, inventory InventoryChecker, shareTTL time.Duration) *Handler {
	if shareTTL <= 0 {
		shareTTL = share.DefaultTTL
	}
	return &Handler{carts: carts, shares: shares, inventory: inventory, shareTTL: shareTTL}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID := r.Header.Get(HeaderCartID)
	if cartID == "" {
		writeError(w, r, http.StatusBadRequest, "missing "+HeaderCartID+" header")
		return
	}

	c, err := h.carts.GetCart(r.Context(), cartID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": c})
}

// POST /cart
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.CreateCart(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": c})
}

// POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
		UnitPrice int64  `json:"unitPrice,omitempty"`
		Size      string `json:"size,omitempty"`
		ImageURL  string `json:"imageUrl,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.VariantID == "" || body.Quantity < 1 {
		writeError(w, r, http.StatusBadRequest, "variantId and a positive quantity are required")
		return
	}

	c, err := h.carts.Add(r.Context(), r.Header.Get(HeaderCartID), cart.AddInput{
		VariantID: body.VariantID,
		Quantity:  body.Quantity,
		UnitPrice: body.UnitPrice,
		Size:      body.Size,
		ImageURL:  body.ImageURL,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": c})
}

// POST /cart/update
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CartID   string `json:"cartId"`
		LineID   string `json:"lineId"`
		Quantity *int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.CartID == "" || body.LineID == "" || body.Quantity == nil || *body.Quantity < 0 {
		writeError(w, r, http.StatusBadRequest, "cartId, lineId and a non-negative quantity are required")
		return
	}

	// Quantity 0 removes the line; the coordinator owns that equivalence.
	c, err := h.carts.Update(r.Context(), body.CartID, body.LineID, *body.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": c})
}

// POST /cart/bulk/add
func (h *Handler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CartID string `json:"cartId"`
		Items  []struct {
			VariantID  string            `json:"variantId"`
			Quantity   int               `json:"quantity"`
			Attributes map[string]string `json:"attributes,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items must not be empty")
		return
	}

	items := make([]cart.AddInput, 0, len(body.Items))
	for _, it := range body.Items {
		if it.VariantID == "" || it.Quantity < 1 {
			writeError(w, r, http.StatusBadRequest, "every item needs a variantId and a positive quantity")
			return
		}
		items = append(items, cart.AddInput{
			VariantID:  it.VariantID,
			Quantity:   it.Quantity,
			Size:       it.Attributes["size"],
			Attributes: it.Attributes,
		})
	}

	c, err := h.carts.BulkAdd(r.Context(), body.CartID, items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
		"message": addedMessage(len(items)),
	})
}

// POST /cart/bulk/update
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CartID  string `json:"cartId"`
		Updates []struct {
			LineItemID string `json:"lineItemId"`
			Quantity   *int   `json:"quantity"`
		} `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.CartID == "" || len(body.Updates) == 0 {
		writeError(w, r, http.StatusBadRequest, "cartId and a non-empty updates list are required")
		return
	}

	updates := make([]cart.UpdateInput, 0, len(body.Updates))
	for _, u := range body.Updates {
		if u.LineItemID == "" || u.Quantity == nil || *u.Quantity < 0 {
			writeError(w, r, http.StatusBadRequest, "every update needs a lineItemId and a non-negative quantity")
			return
		}
		updates = append(updates, cart.UpdateInput{LineID: u.LineItemID, Quantity: *u.Quantity})
	}

	c, err := h.carts.BulkUpdate(r.Context(), body.CartID, updates)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
		"message": updatedMessage(len(updates)),
	})
}

// POST /cart/validate-inventory
func (h *Handler) ValidateInventory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []struct {
			VariantID string `json:"variantId"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items must not be empty")
		return
	}

	type itemStatus struct {
		VariantID string `json:"variantId"`
		Available bool   `json:"available"`
		Quantity  int    `json:"quantity"`
		Policy    string `json:"policy"`
		Message   string `json:"message,omitempty"`
	}

	statuses := make([]itemStatus, 0, len(body.Items))
	availableCount := 0
	for _, it := range body.Items {
		if it.VariantID == "" || it.Quantity < 1 {
			writeError(w, r, http.StatusBadRequest, "every item needs a variantId and a positive quantity")
			return
		}

		inv, err := h.inventory.CheckInventory(r.Context(), it.VariantID, it.Quantity)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}

		st := itemStatus{VariantID: it.VariantID, Available: inv.Available, Policy: inv.Policy, Quantity: it.Quantity}
		if !inv.Available && inv.OnHand != nil {
			// Surface the shortfall verbatim, never clamp silently
			st.Quantity = *inv.OnHand
			st.Message = (&cart.InventoryError{VariantID: it.VariantID, Requested: it.Quantity, Available: *inv.OnHand}).Message()
		}
		if inv.Available {
			availableCount++
		}
		statuses = append(statuses, st)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"inventoryStatus": statuses,
		"summary": map[string]int{
			"total":       len(statuses),
			"available":   availableCount,
			"unavailable": len(statuses) - availableCount,
		},
	})
}

// POST /cart/share
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CartID      string `json:"cartId"`
		ExpiryHours *int   `json:"expiryHours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.CartID == "" {
		writeError(w, r, http.StatusBadRequest, "cartId is required")
		return
	}

	ttl := h.shareTTL
	if body.ExpiryHours != nil {
		if *body.ExpiryHours < 0 {
			writeError(w, r, http.StatusBadRequest, "expiryHours must not be negative")
			return
		}
		ttl = time.Duration(*body.ExpiryHours) * time.Hour
	}

	sh, err := h.shares.Create(r.Context(), body.CartID, ttl)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"shareToken":      sh.Token,
		"shareUrl":        sh.URL,
		"expiryTimestamp": sh.ExpiresAt,
		"itemCount":       sh.ItemCount,
	})
}

// GET /cart/share?token=...
func (h *Handler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "missing token")
		return
	}

	snap, err := h.shares.Resolve(token)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"cart":            snap.Cart,
		"createdAt":       snap.CreatedAt,
		"expiryTimestamp": snap.ExpiresAt,
	})
}

// writeDomainError maps the error taxonomy onto the HTTP surface.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var inv *cart.InventoryError
	var transient *cart.TransientError

	switch {
	case errors.As(err, &inv):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":   false,
			"error":     inv.Message(),
			"variantId": inv.VariantID,
			"available": inv.Available,
		})
	case errors.Is(err, cart.ErrCartNotFound):
		writeError(w, r, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrVariantNotFound):
		writeError(w, r, http.StatusNotFound, "variant not found")
	case errors.Is(err, share.ErrTokenNotFound):
		writeError(w, r, http.StatusNotFound, "share token not found")
	case errors.Is(err, share.ErrTokenExpired):
		writeError(w, r, http.StatusGone, "share token expired")
	case errors.As(err, &transient):
		writeError(w, r, http.StatusInternalServerError, "cart backend unreachable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func addedMessage(n int) string {
	if n == 1 {
		return "Added 1 item to cart"
	}
	return "Added " + strconv.Itoa(n) + " items to cart"
}

func updatedMessage(n int) string {
	if n == 1 {
		return "Updated 1 item"
	}
	return "Updated " + strconv.Itoa(n) + " items"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}
