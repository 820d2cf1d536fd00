// Package share mints short-lived, shareable snapshots of a cart. A
// token grants read access to a frozen copy of the cart taken at
// creation time, never to the live cart.
package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

const DefaultTTL = 24 * time.Hour

var (
	// ErrTokenNotFound: the token never existed (or was already purged
	// long ago). HTTP 404.
	ErrTokenNotFound = errors.New("share token not found")

	// ErrTokenExpired: the token exists but its TTL has passed. HTTP 410.
	// Distinct from ErrTokenNotFound; never collapse the two.
	ErrTokenExpired = errors.New("share token expired")
)

// CartFetcher materializes the cart to snapshot. Implemented by
// gateway.Client.
type CartFetcher interface {
	GetCart(ctx context.Context, cartID string) (*cart.Cart, error)
}

// Snapshot is the frozen cart payload stored behind a token.
type Snapshot struct {
	CartID    string    `json:"cartId"`
	Cart      cart.Cart `json:"cart"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Share is the result of minting a token.
type Share struct {
	Token     string    `json:"shareToken"`
	URL       string    `json:"shareUrl"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiryTimestamp"`
}

type Service struct {
	fetcher CartFetcher
	tokens  *TTLCache[Snapshot]
	baseURL string
	now     func() time.Time
	logger  *log.Logger
}

// NewService builds the share service around an injected token cache.
// clock is injectable for tests; nil means time.Now.
func NewService(fetcher CartFetcher, tokens *TTLCache[Snapshot], baseURL string, clock func() time.Time, logger *log.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{fetcher: fetcher, tokens: tokens, baseURL: baseURL, now: clock, logger: logger}
}

// Create materializes the cart, deep-copies it and stores the snapshot
// under a fresh token expiring after ttl. A non-positive ttl yields a
// token that is already expired on its next read; callers wanting the
// default pass DefaultTTL.
func (s *Service) Create(ctx context.Context, cartID string, ttl time.Duration) (Share, error) {
	live, err := s.fetcher.GetCart(ctx, cartID)
	if err != nil {
		return Share{}, fmt.Errorf("materialize cart %s: %w", cartID, err)
	}

	now := s.now().UTC()
	token := mintToken(cartID, now)
	snap := Snapshot{
		CartID:    cartID,
		Cart:      *live.Clone(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.tokens.Set(token, snap, snap.ExpiresAt)

	if s.logger != nil {
		s.logger.Printf("minted share token for cart %s, expires %s", cartID, snap.ExpiresAt.Format(time.RFC3339))
	}

	return Share{
		Token:     token,
		URL:       s.shareURL(token),
		ItemCount: snap.Cart.ItemCount,
		CreatedAt: snap.CreatedAt,
		ExpiresAt: snap.ExpiresAt,
	}, nil
}

// Resolve returns the snapshot behind token. Unknown tokens are
// ErrTokenNotFound; known-but-expired tokens are ErrTokenExpired and are
// deleted lazily even if the sweep has not run yet.
func (s *Service) Resolve(token string) (Snapshot, error) {
	snap, found, expired := s.tokens.Get(token)
	if !found {
		return Snapshot{}, ErrTokenNotFound
	}
	if expired {
		return Snapshot{}, ErrTokenExpired
	}
	return snap, nil
}

func (s *Service) shareURL(token string) string {
	return s.baseURL + "/cart/shared?token=" + url.QueryEscape(token)
}
