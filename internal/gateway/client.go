// Package gateway is the typed HTTP client for the upstream cart
// backend. It owns wire encoding, timeout transport and the mapping of
// upstream responses onto the cart error taxonomy; it holds no state of
// its own.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
	"github.com/w3bsuki/strike-cart-go/internal/middleware"
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New parses baseURL and wraps httpClient. An unparseable base URL is a
// configuration error and fails fast.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("cart backend base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cart backend base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// Upstream wire shapes. Totals from upstream are informational only;
// carts are recalculated locally after decoding.

type wireLine struct {
	ID        string `json:"id"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Size      string `json:"size,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type wireCart struct {
	ID       string     `json:"id"`
	Lines    []wireLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
}

type cartResponse struct {
	Cart wireCart `json:"cart"`
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		VariantID string `json:"variantId,omitempty"`
		Requested int    `json:"requested,omitempty"`
		Available int    `json:"available,omitempty"`
	} `json:"error"`
}

const (
	codeCartNotFound    = "cart_not_found"
	codeVariantNotFound = "variant_not_found"
	codeInsufficient    = "insufficient_inventory"
)

func (c *Client) CreateCart(ctx context.Context) (*cart.Cart, error) {
	return c.cartCall(ctx, http.MethodPost, "/v1/carts", nil)
}

func (c *Client) GetCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	return c.cartCall(ctx, http.MethodGet, "/v1/carts/"+cartID, nil)
}

func (c *Client) AddItems(ctx context.Context, cartID string, lines []cart.AddInput) (*cart.Cart, error) {
	type addLine struct {
		VariantID  string            `json:"variantId"`
		Quantity   int               `json:"quantity"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}
	body := struct {
		Lines []addLine `json:"lines"`
	}{}
	for _, l := range lines {
		body.Lines = append(body.Lines, addLine{VariantID: l.VariantID, Quantity: l.Quantity, Attributes: l.Attributes})
	}
	return c.cartCall(ctx, http.MethodPost, "/v1/carts/"+cartID+"/lines", body)
}

// UpdateItems sets line quantities. A single update with quantity 0 is
// routed to RemoveItems: the backend treats them identically and so does
// this client.
func (c *Client) UpdateItems(ctx context.Context, cartID string, updates []cart.UpdateInput) (*cart.Cart, error) {
	if len(updates) == 1 && updates[0].Quantity <= 0 {
		return c.RemoveItems(ctx, cartID, []string{updates[0].LineID})
	}
	type updateLine struct {
		LineID   string `json:"lineId"`
		Quantity int    `json:"quantity"`
	}
	body := struct {
		Lines []updateLine `json:"lines"`
	}{}
	for _, u := range updates {
		body.Lines = append(body.Lines, updateLine{LineID: u.LineID, Quantity: u.Quantity})
	}
	return c.cartCall(ctx, http.MethodPatch, "/v1/carts/"+cartID+"/lines", body)
}

func (c *Client) RemoveItems(ctx context.Context, cartID string, lineIDs []string) (*cart.Cart, error) {
	body := struct {
		LineIDs []string `json:"lineIds"`
	}{LineIDs: lineIDs}
	return c.cartCall(ctx, http.MethodPost, "/v1/carts/"+cartID+"/lines/remove", body)
}

// InventoryStatus is the backend's availability advice for one variant.
// OnHand is nil when the backend does not disclose stock levels.
type InventoryStatus struct {
	Available bool   `json:"available"`
	OnHand    *int   `json:"onHand"`
	Policy    string `json:"policy"`
}

func (c *Client) CheckInventory(ctx context.Context, variantID string, quantity int) (InventoryStatus, error) {
	body := struct {
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
	}{VariantID: variantID, Quantity: quantity}

	resp, err := c.do(ctx, http.MethodPost, "/v1/inventory/check", body)
	if err != nil {
		return InventoryStatus{}, &cart.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return InventoryStatus{}, c.classify(resp)
	}

	var status InventoryStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return InventoryStatus{}, &cart.TransientError{Status: resp.StatusCode, Err: fmt.Errorf("decode inventory response: %w", err)}
	}
	if status.Policy == "" {
		status.Policy = "deny"
	}
	return status, nil
}

func (c *Client) cartCall(ctx context.Context, method, path string, body any) (*cart.Cart, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, &cart.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.classify(resp)
	}

	var cr cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &cart.TransientError{Status: resp.StatusCode, Err: fmt.Errorf("decode cart response: %w", err)}
	}
	return toCart(cr.Cart), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	// path carries raw ids; URL.String encodes them exactly once via
	// EscapedPath.
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	return c.http.Do(req)
}

// classify maps an upstream error response onto the cart error taxonomy.
// 404 and coded 4xx bodies become sentinel/typed errors; everything else
// is transient.
func (c *Client) classify(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var er errorResponse
	_ = json.Unmarshal(payload, &er)

	switch {
	case er.Error.Code == codeCartNotFound, resp.StatusCode == http.StatusNotFound && er.Error.Code == "":
		return fmt.Errorf("upstream: %w", cart.ErrCartNotFound)
	case er.Error.Code == codeVariantNotFound:
		return fmt.Errorf("upstream: %w", cart.ErrVariantNotFound)
	case er.Error.Code == codeInsufficient:
		return &cart.InventoryError{
			VariantID: er.Error.VariantID,
			Requested: er.Error.Requested,
			Available: er.Error.Available,
		}
	default:
		return &cart.TransientError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", firstNonEmpty(er.Error.Message, http.StatusText(resp.StatusCode))),
		}
	}
}

func toCart(w wireCart) *cart.Cart {
	out := &cart.Cart{ID: w.ID, Items: make([]cart.Item, 0, len(w.Lines))}
	for _, l := range w.Lines {
		out.Items = append(out.Items, cart.Item{
			LineID:    l.ID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Size:      l.Size,
			ImageURL:  l.ImageURL,
		})
	}
	out.Recalculate()
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
