package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/batch"
	"github.com/w3bsuki/strike-cart-go/internal/middleware"
)

// Gateway is the slice of the remote cart backend the coordinator needs.
// Implemented by internal/gateway.Client.
type Gateway interface {
	CreateCart(ctx context.Context) (*Cart, error)
	GetCart(ctx context.Context, cartID string) (*Cart, error)
	AddItems(ctx context.Context, cartID string, lines []AddInput) (*Cart, error)
	UpdateItems(ctx context.Context, cartID string, updates []UpdateInput) (*Cart, error)
	RemoveItems(ctx context.Context, cartID string, lineIDs []string) (*Cart, error)
}

// Broadcaster receives an Update after every state transition.
// Implemented by bus.Bus[Update].
type Broadcaster interface {
	Publish(Update)
}

const (
	transientRetryBudget = 1
	transientRetryDelay  = 100 * time.Millisecond
)

// Coordinator runs every cart mutation through the same state machine:
// snapshot, optimistic apply, broadcast, remote call, then commit or
// rollback. Per-cart sequence numbers decide which completion wins, so
// a slow response for an old intent can never clobber state written by
// a newer one.
type Coordinator struct {
	gw        Gateway
	bus       Broadcaster
	logger    *log.Logger
	chunkSize int

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the local state for one cart: its store, the latest issued
// sequence number, and an opMu that keeps the local phases (snapshot +
// apply, resolve) atomic while leaving the network call unlocked, the
// way the original single-threaded loop interleaves at await points.
type session struct {
	store    *Store
	seedOnce sync.Once

	opMu    sync.Mutex
	seqMu   sync.Mutex
	lastSeq uint64
}

func (s *session) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.lastSeq++
	return s.lastSeq
}

func (s *session) isLatest(seq uint64) bool {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	return seq == s.lastSeq
}

func NewCoordinator(gw Gateway, b Broadcaster, logger *log.Logger, chunkSize int) *Coordinator {
	if chunkSize <= 0 {
		chunkSize = batch.DefaultChunkSize
	}
	return &Coordinator{
		gw:        gw,
		bus:       b,
		logger:    logger,
		chunkSize: chunkSize,
		sessions:  make(map[string]*session),
	}
}

// GetCart returns the authoritative cart and reconciles the local store
// with it.
func (c *Coordinator) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	remote, err := c.gw.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	// Already materialized, no need for the session to seed itself.
	s := c.session(ctx, cartID, true)
	s.store.Commit(remote)
	return s.store.Current(), nil
}

// CreateCart creates an empty cart upstream.
func (c *Coordinator) CreateCart(ctx context.Context) (*Cart, error) {
	created, err := c.gw.CreateCart(ctx)
	if err != nil {
		return nil, err
	}
	s := c.session(ctx, created.ID, true)
	s.store.Commit(created)
	return s.store.Current(), nil
}

// Add appends one line. An empty cartID creates the cart lazily.
func (c *Coordinator) Add(ctx context.Context, cartID string, in AddInput) (*Cart, error) {
	intent := &Intent{
		Kind:        KindAdd,
		Add:         []AddInput{in},
		TempLineIDs: []string{NewTempLineID()},
	}
	return c.execute(ctx, cartID, intent, func(ctx context.Context, id string) (*Cart, error) {
		return c.gw.AddItems(ctx, id, intent.Add)
	})
}

// Update sets a line to a new quantity. Quantity 0 (or less) is always
// a removal, matching the backend contract.
func (c *Coordinator) Update(ctx context.Context, cartID, lineID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return c.Remove(ctx, cartID, lineID)
	}
	intent := &Intent{
		Kind:    KindUpdate,
		Updates: []UpdateInput{{LineID: lineID, Quantity: quantity}},
	}
	return c.execute(ctx, cartID, intent, func(ctx context.Context, id string) (*Cart, error) {
		return c.gw.UpdateItems(ctx, id, intent.Updates)
	})
}

// Remove deletes the given lines.
func (c *Coordinator) Remove(ctx context.Context, cartID string, lineIDs ...string) (*Cart, error) {
	intent := &Intent{Kind: KindRemove, LineIDs: lineIDs}
	return c.execute(ctx, cartID, intent, func(ctx context.Context, id string) (*Cart, error) {
		return c.gw.RemoveItems(ctx, id, intent.LineIDs)
	})
}

// BulkAdd appends many lines, chunked to the backend's batch size. The
// whole bulk is one optimistic intent; a failing chunk keeps the writes
// that already landed upstream (they are real) and surfaces the error.
func (c *Coordinator) BulkAdd(ctx context.Context, cartID string, items []AddInput) (*Cart, error) {
	tempIDs := make([]string, len(items))
	for i := range tempIDs {
		tempIDs[i] = NewTempLineID()
	}
	intent := &Intent{Kind: KindAdd, Add: items, TempLineIDs: tempIDs}
	return c.execute(ctx, cartID, intent, func(ctx context.Context, id string) (*Cart, error) {
		return batch.Run(ctx, items, c.chunkSize, func(ctx context.Context, chunk []AddInput) (*Cart, error) {
			return c.gw.AddItems(ctx, id, chunk)
		})
	})
}

// BulkUpdate applies many quantity changes. Removals (quantity 0) are
// issued before quantity updates so swapped variants never conflict on
// transient inventory.
func (c *Coordinator) BulkUpdate(ctx context.Context, cartID string, updates []UpdateInput) (*Cart, error) {
	var removals []string
	var changes []UpdateInput
	for _, u := range updates {
		if u.Quantity <= 0 {
			removals = append(removals, u.LineID)
		} else {
			changes = append(changes, u)
		}
	}

	intent := &Intent{Kind: KindUpdate, Updates: updates}
	return c.execute(ctx, cartID, intent, func(ctx context.Context, id string) (*Cart, error) {
		var last *Cart
		if len(removals) > 0 {
			res, err := batch.Run(ctx, removals, c.chunkSize, func(ctx context.Context, chunk []string) (*Cart, error) {
				return c.gw.RemoveItems(ctx, id, chunk)
			})
			if res != nil {
				last = res
			}
			if err != nil {
				return last, err
			}
		}
		if len(changes) > 0 {
			res, err := batch.Run(ctx, changes, c.chunkSize, func(ctx context.Context, chunk []UpdateInput) (*Cart, error) {
				return c.gw.UpdateItems(ctx, id, chunk)
			})
			if res != nil {
				last = res
			}
			if err != nil {
				return last, err
			}
		}
		return last, nil
	})
}

// execute is the mutation state machine: Pending (optimistic write
// applied, request in flight) then Committed or RolledBack.
func (c *Coordinator) execute(ctx context.Context, cartID string, intent *Intent, call func(context.Context, string) (*Cart, error)) (*Cart, error) {
	// Lazy creation: no optimistic state exists yet, so a failure here
	// is rejected at the boundary with nothing to roll back.
	fresh := false
	if cartID == "" {
		created, err := c.gw.CreateCart(ctx)
		if err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		cartID = created.ID
		fresh = true
	}

	s := c.session(ctx, cartID, fresh)

	s.opMu.Lock()
	intent.CartID = cartID
	intent.Seq = s.nextSeq()
	intent.Snapshot = s.store.Current()
	predicted := s.store.ApplyOptimistic(intent)
	s.opMu.Unlock()

	c.broadcast(ctx, intent, PhaseOptimistic, predicted, nil)

	server, err := c.callWithRecovery(ctx, s, intent, call)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err != nil {
		// Partial bulk success: the chunks that landed are authoritative
		// upstream writes, so the store converges on them instead of the
		// pre-mutation snapshot.
		if server != nil && s.isLatest(intent.Seq) {
			s.store.Commit(server)
			c.broadcast(ctx, intent, PhaseCommitted, s.store.Current(), nil)
			return s.store.Current(), err
		}
		if s.isLatest(intent.Seq) {
			s.store.Rollback(intent.Snapshot)
			c.broadcast(ctx, intent, PhaseRolledBack, s.store.Current(), err)
		} else {
			c.logger.Printf("cart %s: discarding stale failure for seq %d: %v", intent.CartID, intent.Seq, err)
		}
		return nil, err
	}

	if !s.isLatest(intent.Seq) {
		// A newer intent already resolved; last writer wins on sequence
		// number, not on response arrival order.
		c.logger.Printf("cart %s: discarding stale result for seq %d", intent.CartID, intent.Seq)
		return server, nil
	}

	s.store.Commit(server)
	committed := s.store.Current()
	c.broadcast(ctx, intent, PhaseCommitted, committed, nil)
	return committed, nil
}

// callWithRecovery runs the remote call with the transient retry budget
// and the recreate-and-retry-once path for vanished carts. Retries reuse
// the same intent, so temporary line ids stay stable and a duplicate
// success cannot create a duplicate line.
func (c *Coordinator) callWithRecovery(ctx context.Context, s *session, intent *Intent, call func(context.Context, string) (*Cart, error)) (*Cart, error) {
	server, err := call(ctx, intent.CartID)
	if err == nil {
		return server, nil
	}

	// A partial bulk result means chunks already landed upstream;
	// re-running the call would duplicate them, so no retry then.
	var transient *TransientError
	for attempt := 0; attempt < transientRetryBudget && server == nil && errors.As(err, &transient); attempt++ {
		select {
		case <-ctx.Done():
			return server, ctx.Err()
		case <-time.After(transientRetryDelay):
		}
		server, err = call(ctx, intent.CartID)
		if err == nil {
			return server, nil
		}
	}

	if errors.Is(err, ErrCartNotFound) && server == nil {
		created, cerr := c.gw.CreateCart(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("recreate cart: %w", cerr)
		}
		c.rekeySession(intent.CartID, created.ID, s)
		intent.CartID = created.ID
		return call(ctx, created.ID)
	}

	return server, err
}

// session returns the local state for cartID, creating and seeding it
// on first sight. Seeding pulls the upstream cart so a rollback never
// restores an artificially empty snapshot after a process restart.
// Callers that already hold the authoritative cart pass seeded=true to
// skip the fetch.
func (c *Coordinator) session(ctx context.Context, cartID string, seeded bool) *session {
	c.mu.Lock()
	s, ok := c.sessions[cartID]
	if !ok {
		s = &session{store: NewStore(cartID)}
		c.sessions[cartID] = s
	}
	c.mu.Unlock()

	s.seedOnce.Do(func() {
		if seeded {
			return
		}
		if remote, err := c.gw.GetCart(ctx, cartID); err == nil {
			s.store.Commit(remote)
		}
	})
	return s
}

func (c *Coordinator) rekeySession(oldID, newID string, s *session) {
	c.mu.Lock()
	delete(c.sessions, oldID)
	c.sessions[newID] = s
	c.mu.Unlock()
}

func (c *Coordinator) broadcast(ctx context.Context, intent *Intent, phase Phase, state *Cart, cause error) {
	if c.bus == nil {
		return
	}
	u := Update{
		CartID:        intent.CartID,
		Phase:         phase,
		Seq:           intent.Seq,
		Cart:          *state,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	if cause != nil {
		u.Err = userMessage(cause)
	}
	c.bus.Publish(u)
}

// userMessage folds the error taxonomy into the single human-readable
// notification shown for a terminal failure.
func userMessage(err error) string {
	var inv *InventoryError
	switch {
	case errors.As(err, &inv):
		return inv.Message()
	case errors.Is(err, ErrVariantNotFound):
		return "This product is no longer available"
	case errors.Is(err, ErrCartNotFound):
		return "Your cart could not be found"
	default:
		return "Could not update your cart, please try again"
	}
}
