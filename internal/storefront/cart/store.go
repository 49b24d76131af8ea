// Package cart holds the per-session shopping cart: a local mirror of the
// signed-in user's persisted cart lines plus the operations that change them.
//
// The store never patches its list optimistically. Every successful mutation
// except ClearCart is followed by a full reload, so the local list is always
// a snapshot of what the database returned. Failures are reported through the
// notifier and leave the previous list in place.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/notify"

	"go.uber.org/zap"
)

// ErrNotSignedIn is returned for cart mutations attempted without a user.
var ErrNotSignedIn = errors.New("not signed in")

// User-facing messages.
const (
	MsgSignInToAdd     = "Please sign in to add items to cart"
	MsgSignInToManage  = "Please sign in to manage your cart"
	MsgAdded           = "Added to cart!"
	MsgAddFailed       = "Failed to add item to cart"
	MsgInvalidQuantity = "Quantity must be at least 1"
	MsgRemoved         = "Item removed from cart"
	MsgRemoveFailed    = "Failed to remove item"
	MsgUpdateFailed    = "Failed to update quantity"
	MsgCleared         = "Cart cleared"
	MsgClearFailed     = "Failed to clear cart"
	MsgLoadFailed      = "Failed to load cart"
)

// Repository is the cart persistence the store depends on. Every call is
// scoped to userID.
type Repository interface {
	ListLines(ctx context.Context, userID string) ([]domain.CartLineItem, error)
	InsertLine(ctx context.Context, userID, productID string, quantity int) error
	UpdateLine(ctx context.Context, userID, itemID string, quantity int) error
	DeleteLine(ctx context.Context, userID, itemID string) error
	DeleteAllLines(ctx context.Context, userID string) error
}

// State is a consistent snapshot of the store.
type State struct {
	Items      []domain.CartLineItem `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPrice domain.Money          `json:"totalPrice"`
	Loading    bool                  `json:"loading"`
}

// Store mirrors one user's cart. It is safe for concurrent use; mutating
// operations run one at a time.
type Store struct {
	repo     Repository
	notifier notify.Notifier
	logger   *zap.Logger

	ops sync.Mutex

	mu         sync.RWMutex
	user       *domain.User
	generation uint64
	items      []domain.CartLineItem
	loading    int
	fetchSeq   uint64
	appliedSeq uint64
}

func New(repo Repository, notifier notify.Notifier, log *zap.Logger) *Store {
	return &Store{
		repo:     repo,
		notifier: notifier,
		logger:   logger.OrNop(log),
	}
}

// SetUser points the store at a new identity. A change of user id, including
// signing out, triggers exactly one reload; setting the same user again does
// nothing. Reloads that were started for a previous identity are discarded
// when they complete.
func (s *Store) SetUser(ctx context.Context, user *domain.User) {
	s.mu.Lock()
	if sameUser(s.user, user) {
		s.mu.Unlock()
		return
	}
	if user == nil {
		s.user = nil
	} else {
		u := *user
		s.user = &u
	}
	s.generation++
	s.mu.Unlock()

	_ = s.refresh(ctx)
}

// Refresh replaces the local list with the user's persisted lines. Without a
// user the list is emptied and no query is made.
func (s *Store) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

// AddToCart adds quantity units of productID. When a line for the product is
// already in the local list, its quantity is raised through UpdateQuantity;
// otherwise a new line is inserted.
func (s *Store) AddToCart(ctx context.Context, productID string, quantity int) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	user, existing := s.lookup(productID)
	if user == nil {
		notify.Error(ctx, s.notifier, MsgSignInToAdd)
		return ErrNotSignedIn
	}
	if existing != nil {
		return s.updateQuantity(ctx, user, existing.ID, existing.Quantity+quantity)
	}
	if quantity < 1 {
		notify.Error(ctx, s.notifier, MsgInvalidQuantity)
		return fmt.Errorf("add to cart: %w", domain.ErrInvalidQuantity)
	}

	if err := s.repo.InsertLine(ctx, user.ID, productID, quantity); err != nil {
		s.logger.Warn("cart_add_failed",
			zap.String("user_id", user.ID),
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		notify.Error(ctx, s.notifier, MsgAddFailed)
		return fmt.Errorf("add to cart: %w", err)
	}
	_ = s.refresh(ctx)
	notify.Success(ctx, s.notifier, MsgAdded)
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line instead.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	user := s.User()
	if user == nil {
		notify.Error(ctx, s.notifier, MsgSignInToManage)
		return ErrNotSignedIn
	}
	return s.updateQuantity(ctx, user, itemID, quantity)
}

// RemoveFromCart deletes one line.
func (s *Store) RemoveFromCart(ctx context.Context, itemID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	user := s.User()
	if user == nil {
		notify.Error(ctx, s.notifier, MsgSignInToManage)
		return ErrNotSignedIn
	}
	return s.removeFromCart(ctx, user, itemID)
}

// ClearCart deletes every line of the user and empties the local list
// directly, without a reload. It is a no-op when nobody is signed in.
func (s *Store) ClearCart(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.RLock()
	user := s.user
	gen := s.generation
	s.mu.RUnlock()
	if user == nil {
		return nil
	}

	if err := s.repo.DeleteAllLines(ctx, user.ID); err != nil {
		s.logger.Warn("cart_clear_failed", zap.String("user_id", user.ID), zap.Error(err))
		notify.Error(ctx, s.notifier, MsgClearFailed)
		return fmt.Errorf("clear cart: %w", err)
	}

	s.mu.Lock()
	if gen == s.generation {
		s.items = nil
		// Results of reloads started before the clear are older than it.
		s.fetchSeq++
		s.appliedSeq = s.fetchSeq
	}
	s.mu.Unlock()

	notify.Success(ctx, s.notifier, MsgCleared)
	return nil
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Items returns a copy of the local cart lines.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// TotalItems is the sum of quantities across all lines.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count, _ := totals(s.items)
	return count
}

// TotalPrice is the sum of quantity times unit price across all lines.
func (s *Store) TotalPrice() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, price := totals(s.items)
	return price
}

// Loading reports whether a reload is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// State returns items, totals and the loading flag from a single read.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count, price := totals(s.items)
	return State{
		Items:      cloneItems(s.items),
		TotalItems: count,
		TotalPrice: price,
		Loading:    s.loading > 0,
	}
}

func (s *Store) updateQuantity(ctx context.Context, user *domain.User, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.removeFromCart(ctx, user, itemID)
	}
	if err := s.repo.UpdateLine(ctx, user.ID, itemID, quantity); err != nil {
		s.logger.Warn("cart_update_failed",
			zap.String("user_id", user.ID),
			zap.String("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		notify.Error(ctx, s.notifier, MsgUpdateFailed)
		return fmt.Errorf("update quantity: %w", err)
	}
	_ = s.refresh(ctx)
	return nil
}

func (s *Store) removeFromCart(ctx context.Context, user *domain.User, itemID string) error {
	if err := s.repo.DeleteLine(ctx, user.ID, itemID); err != nil {
		s.logger.Warn("cart_remove_failed",
			zap.String("user_id", user.ID),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		notify.Error(ctx, s.notifier, MsgRemoveFailed)
		return fmt.Errorf("remove from cart: %w", err)
	}
	_ = s.refresh(ctx)
	notify.Success(ctx, s.notifier, MsgRemoved)
	return nil
}

// refresh loads the current user's lines. Only the most recently started
// reload for the current identity may replace the list.
func (s *Store) refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil {
		s.items = nil
		s.mu.Unlock()
		return nil
	}
	userID := s.user.ID
	gen := s.generation
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading++
	s.mu.Unlock()

	items, err := s.repo.ListLines(ctx, userID)

	s.mu.Lock()
	s.loading--
	stale := gen != s.generation || seq <= s.appliedSeq
	if err == nil && !stale {
		s.items = items
		s.appliedSeq = seq
	}
	s.mu.Unlock()

	if stale {
		s.logger.Debug("cart_refresh_discarded", zap.String("user_id", userID), zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		s.logger.Warn("cart_refresh_failed", zap.String("user_id", userID), zap.Error(err))
		notify.Error(ctx, s.notifier, MsgLoadFailed)
		return fmt.Errorf("load cart: %w", err)
	}
	return nil
}

func (s *Store) lookup(productID string) (*domain.User, *domain.CartLineItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	for i := range s.items {
		if s.items[i].ProductID == productID {
			line := s.items[i]
			return &u, &line
		}
	}
	return &u, nil
}

func sameUser(a, b *domain.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func totals(items []domain.CartLineItem) (int, domain.Money) {
	count := 0
	price := domain.Money{}
	for _, line := range items {
		count += line.Quantity
		price = price.Add(line.LineTotal())
	}
	return count, price
}

func cloneItems(items []domain.CartLineItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(items))
	copy(out, items)
	return out
}
