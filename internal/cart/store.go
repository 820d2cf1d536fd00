package cart

import (
	"sync"
	"time"
)

// Store holds the canonical in-memory cart for one session. It applies
// optimistic predictions, accepts authoritative server state, and
// restores snapshots on rollback. The store never performs network I/O.
type Store struct {
	mu   sync.Mutex
	cart Cart
}

func NewStore(cartID string) *Store {
	return &Store{cart: Cart{ID: cartID, Items: []Item{}}}
}

// Current returns a deep copy of the cart.
func (s *Store) Current() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// ApplyOptimistic applies the intent's predicted effect locally and
// returns the resulting cart. Prediction rules:
//
//	add    → append items with temporary line ids and best-known prices
//	update → set quantities; quantity 0 removes the line
//	remove → delete matching lines
//
// Aggregates are recomputed after every prediction.
func (s *Store) ApplyOptimistic(intent *Intent) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.ID == "" && intent.CartID != "" {
		s.cart.ID = intent.CartID
	}

	switch intent.Kind {
	case KindAdd:
		for i, in := range intent.Add {
			s.cart.Items = append(s.cart.Items, Item{
				LineID:    intent.TempLineIDs[i],
				VariantID: in.VariantID,
				Quantity:  in.Quantity,
				UnitPrice: in.UnitPrice,
				Size:      in.Size,
				ImageURL:  in.ImageURL,
			})
		}
	case KindUpdate:
		for _, u := range intent.Updates {
			idx := s.cart.FindLine(u.LineID)
			if idx < 0 {
				continue
			}
			if u.Quantity <= 0 {
				s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
				continue
			}
			s.cart.Items[idx].Quantity = u.Quantity
		}
	case KindRemove:
		for _, lineID := range intent.LineIDs {
			if idx := s.cart.FindLine(lineID); idx >= 0 {
				s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
			}
		}
	}

	s.cart.Recalculate()
	s.cart.UpdatedAt = time.Now().UTC()
	return s.cart.Clone()
}

// Commit replaces local state with authoritative server data.
func (s *Store) Commit(server *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := server.Clone()
	cp.Recalculate()
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	s.cart = *cp
}

// Rollback restores a prior snapshot verbatim.
func (s *Store) Rollback(snapshot *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = *snapshot.Clone()
}
