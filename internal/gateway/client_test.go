package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

func upstream(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCreateCart(t *testing.T) {
	c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/carts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"cart": map[string]any{"id": "c1"}})
	})

	got, err := c.CreateCart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c1" || got.ItemCount != 0 {
		t.Fatalf("cart = %+v", got)
	}
}

func TestGetCartRecalculatesTotals(t *testing.T) {
	c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"cart": map[string]any{
			"id": "c1",
			// Upstream subtotal is wrong on purpose.
			"subtotal": 1,
			"lines": []map[string]any{
				{"id": "L1", "variantId": "V1", "quantity": 2, "unitPrice": 2500},
			},
		}})
	})

	got, err := c.GetCart(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Subtotal != 5000 || got.Items[0].LineTotal != 5000 {
		t.Fatalf("totals not recomputed: %+v", got)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := map[string]struct {
		status int
		body   any
		check  func(t *testing.T, err error)
	}{
		"bare 404 is cart not found": {
			status: http.StatusNotFound,
			body:   nil,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, cart.ErrCartNotFound) {
					t.Fatalf("err = %v, want ErrCartNotFound", err)
				}
			},
		},
		"coded cart_not_found": {
			status: http.StatusNotFound,
			body:   map[string]any{"error": map[string]any{"code": "cart_not_found"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, cart.ErrCartNotFound) {
					t.Fatalf("err = %v, want ErrCartNotFound", err)
				}
			},
		},
		"coded variant_not_found": {
			status: http.StatusNotFound,
			body:   map[string]any{"error": map[string]any{"code": "variant_not_found"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, cart.ErrVariantNotFound) {
					t.Fatalf("err = %v, want ErrVariantNotFound", err)
				}
			},
		},
		"insufficient inventory carries availability": {
			status: http.StatusBadRequest,
			body: map[string]any{"error": map[string]any{
				"code": "insufficient_inventory", "variantId": "V1", "requested": 5, "available": 2,
			}},
			check: func(t *testing.T, err error) {
				var inv *cart.InventoryError
				if !errors.As(err, &inv) {
					t.Fatalf("err = %v, want InventoryError", err)
				}
				if inv.Available != 2 || inv.Requested != 5 || inv.VariantID != "V1" {
					t.Fatalf("inventory error = %+v", inv)
				}
				if inv.Message() != "Only 2 items available" {
					t.Fatalf("message = %q", inv.Message())
				}
			},
		},
		"5xx is transient": {
			status: http.StatusBadGateway,
			body:   nil,
			check: func(t *testing.T, err error) {
				var tr *cart.TransientError
				if !errors.As(err, &tr) {
					t.Fatalf("err = %v, want TransientError", err)
				}
				if tr.Status != http.StatusBadGateway {
					t.Fatalf("status = %d", tr.Status)
				}
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != nil {
					_ = json.NewEncoder(w).Encode(tt.body)
				}
			})

			_, err := c.AddItems(context.Background(), "c1", []cart.AddInput{{VariantID: "V1", Quantity: 5}})
			if err == nil {
				t.Fatalf("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestUnreachableBackendIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	c, err := New(srv.URL, http.DefaultClient)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.GetCart(context.Background(), "c1")
	var tr *cart.TransientError
	if !errors.As(err, &tr) {
		t.Fatalf("err = %v, want TransientError", err)
	}
	if tr.Status != 0 {
		t.Fatalf("status = %d, want 0 for a network failure", tr.Status)
	}
}

func TestUpdateItemsQuantityZeroRoutesToRemove(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"cart": map[string]any{"id": "c1"}})
	})

	_, err := c.UpdateItems(context.Background(), "c1", []cart.UpdateInput{{LineID: "L1", Quantity: 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/carts/c1/lines/remove" {
		t.Fatalf("path = %q, want the removal endpoint", gotPath)
	}
	if ids, _ := gotBody["lineIds"].([]any); len(ids) != 1 || ids[0] != "L1" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestCartIDEscapedExactlyOnce(t *testing.T) {
	var gotPath string
	c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{"cart": map[string]any{"id": "a%b c"}})
	})

	_, err := c.GetCart(context.Background(), "a%b c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/carts/a%25b%20c" {
		t.Fatalf("path = %q, want single-encoded /v1/carts/a%%25b%%20c", gotPath)
	}
}

func TestCheckInventory(t *testing.T) {
	c := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/inventory/check" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"available": false, "onHand": 2})
	})

	got, err := c.CheckInventory(context.Background(), "V1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Available || got.OnHand == nil || *got.OnHand != 2 {
		t.Fatalf("status = %+v", got)
	}
	if got.Policy != "deny" {
		t.Fatalf("policy = %q, want default deny", got.Policy)
	}
}
