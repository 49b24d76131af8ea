package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/notify"

	"golang.org/x/sync/errgroup"
)

// memRepo emulates the remote cart table, including its per-user scoping and
// the (user, product) uniqueness rule.
type memRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	lines    map[string][]domain.CartLineItem
	nextID   int

	listErr   error
	insertErr error
	updateErr error
	deleteErr error
	clearErr  error

	// listHook runs before ListLines returns; tests use it to hold a fetch open.
	listHook func(userID string)

	listCalls   int
	insertCalls int
	updateCalls int
	deleteCalls int
	clearCalls  int
}

func newMemRepo(products ...domain.Product) *memRepo {
	r := &memRepo{
		products: map[string]domain.Product{},
		lines:    map[string][]domain.CartLineItem{},
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memRepo) ListLines(_ context.Context, userID string) ([]domain.CartLineItem, error) {
	r.mu.Lock()
	r.listCalls++
	err := r.listErr
	hook := r.listHook
	out := make([]domain.CartLineItem, len(r.lines[userID]))
	copy(out, r.lines[userID])
	r.mu.Unlock()

	if hook != nil {
		hook(userID)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memRepo) InsertLine(_ context.Context, userID, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.insertErr != nil {
		return r.insertErr
	}
	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range r.lines[userID] {
		if r.lines[userID][i].ProductID == productID {
			r.lines[userID][i].Quantity += quantity
			return nil
		}
	}
	r.nextID++
	r.lines[userID] = append(r.lines[userID], domain.CartLineItem{
		ID:        fmt.Sprintf("line-%d", r.nextID),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Product:   p,
	})
	return nil
}

func (r *memRepo) UpdateLine(_ context.Context, userID, itemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.lines[userID] {
		if r.lines[userID][i].ID == itemID {
			r.lines[userID][i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) DeleteLine(_ context.Context, userID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].ID == itemID {
			r.lines[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) DeleteAllLines(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearCalls++
	if r.clearErr != nil {
		return r.clearErr
	}
	delete(r.lines, userID)
	return nil
}

func (r *memRepo) calls() (list, insert, update, del, clear int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls, r.insertCalls, r.updateCalls, r.deleteCalls, r.clearCalls
}

func (r *memRepo) set(fn func(r *memRepo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func product(id, price string) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: domain.MustMoney(price), StockQuantity: 10}
}

var (
	wand   = product("wand", "12.50")
	cape   = product("cape", "19.99")
	potion = product("potion", "0.10")
)

func signedInStore(t *testing.T, repo *memRepo) (*Store, *notify.Queue) {
	t.Helper()
	q := notify.NewQueue(100)
	s := New(repo, q, nil)
	s.SetUser(context.Background(), &domain.User{ID: "user-1", Email: "luna@example.com"})
	q.Drain()
	return s, q
}

func lastMessage(t *testing.T, q *notify.Queue) notify.Notification {
	t.Helper()
	all := q.Drain()
	if len(all) == 0 {
		t.Fatalf("expected a notification")
	}
	return all[len(all)-1]
}

func TestAddToCart_SignedOutMakesNoCalls(t *testing.T) {
	repo := newMemRepo(wand)
	q := notify.NewQueue(10)
	s := New(repo, q, nil)

	err := s.AddToCart(context.Background(), wand.ID, 1)
	if !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	list, insert, update, del, clear := repo.calls()
	if list+insert+update+del+clear != 0 {
		t.Fatalf("expected no repository calls, got list=%d insert=%d update=%d delete=%d clear=%d", list, insert, update, del, clear)
	}
	n := lastMessage(t, q)
	if n.Kind != notify.KindError || n.Message != MsgSignInToAdd {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestAddToCart_NewLineInsertsAndReloads(t *testing.T) {
	repo := newMemRepo(wand)
	s, q := signedInStore(t, repo)

	if err := s.AddToCart(context.Background(), wand.ID, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	items := s.Items()
	if len(items) != 1 || items[0].ProductID != wand.ID || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
	if _, insert, _, _, _ := repo.calls(); insert != 1 {
		t.Fatalf("expected one insert, got %d", insert)
	}
	n := lastMessage(t, q)
	if n.Kind != notify.KindSuccess || n.Message != MsgAdded {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestAddToCart_ExistingLineAccumulates(t *testing.T) {
	for _, tc := range []struct{ q1, q2 int }{{1, 1}, {2, 3}, {5, 0}} {
		repo := newMemRepo(wand)
		s, _ := signedInStore(t, repo)
		ctx := context.Background()

		if err := s.AddToCart(ctx, wand.ID, tc.q1); err != nil {
			t.Fatalf("first add: %v", err)
		}
		if err := s.AddToCart(ctx, wand.ID, tc.q2); err != nil {
			t.Fatalf("second add: %v", err)
		}
		items := s.Items()
		if len(items) != 1 || items[0].Quantity != tc.q1+tc.q2 {
			t.Fatalf("q1=%d q2=%d: unexpected items %+v", tc.q1, tc.q2, items)
		}
		if _, insert, update, _, _ := repo.calls(); insert != 1 || update != 1 {
			t.Fatalf("expected 1 insert and 1 update, got %d and %d", insert, update)
		}
	}
}

func TestAddToCart_RejectsNonPositiveQuantityForNewLine(t *testing.T) {
	repo := newMemRepo(wand)
	s, q := signedInStore(t, repo)

	if err := s.AddToCart(context.Background(), wand.ID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, insert, _, _, _ := repo.calls(); insert != 0 {
		t.Fatalf("expected no insert, got %d", insert)
	}
	if n := lastMessage(t, q); n.Message != MsgInvalidQuantity {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestAddToCart_InsertFailureKeepsList(t *testing.T) {
	repo := newMemRepo(wand, cape)
	s, q := signedInStore(t, repo)
	ctx := context.Background()

	if err := s.AddToCart(ctx, wand.ID, 1); err != nil {
		t.Fatalf("AddToCart wand: %v", err)
	}
	before := s.Items()
	q.Drain()

	boom := errors.New("connection reset")
	repo.set(func(r *memRepo) { r.insertErr = boom })
	err := s.AddToCart(ctx, cape.ID, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
	after := s.Items()
	if len(after) != len(before) || after[0].ID != before[0].ID || after[0].Quantity != before[0].Quantity {
		t.Fatalf("list changed after failed insert: before=%+v after=%+v", before, after)
	}
	n := lastMessage(t, q)
	if n.Kind != notify.KindError || n.Message != MsgAddFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestUpdateQuantity_NonPositiveRemovesLine(t *testing.T) {
	for _, qty := range []int{0, -3} {
		repo := newMemRepo(wand)
		s, q := signedInStore(t, repo)
		ctx := context.Background()
		if err := s.AddToCart(ctx, wand.ID, 2); err != nil {
			t.Fatalf("AddToCart: %v", err)
		}
		line := s.Items()[0]
		q.Drain()

		if err := s.UpdateQuantity(ctx, line.ID, qty); err != nil {
			t.Fatalf("UpdateQuantity(%d): %v", qty, err)
		}
		if len(s.Items()) != 0 {
			t.Fatalf("expected line removed, got %+v", s.Items())
		}
		if _, _, update, del, _ := repo.calls(); update != 0 || del != 1 {
			t.Fatalf("expected delete instead of update, got update=%d delete=%d", update, del)
		}
		if n := lastMessage(t, q); n.Message != MsgRemoved {
			t.Fatalf("unexpected notification %+v", n)
		}
	}
}

func TestUpdateQuantity_ReloadsInsteadOfPatching(t *testing.T) {
	repo := newMemRepo(wand)
	s, _ := signedInStore(t, repo)
	ctx := context.Background()
	if err := s.AddToCart(ctx, wand.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	line := s.Items()[0]
	listBefore, _, _, _, _ := repo.calls()

	if err := s.UpdateQuantity(ctx, line.ID, 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	listAfter, _, _, _, _ := repo.calls()
	if listAfter != listBefore+1 {
		t.Fatalf("expected exactly one reload, got %d", listAfter-listBefore)
	}
	if got := s.Items()[0].Quantity; got != 7 {
		t.Fatalf("expected quantity 7, got %d", got)
	}
}

func TestUpdateQuantity_FailureNotifiesAndKeepsState(t *testing.T) {
	repo := newMemRepo(wand)
	s, q := signedInStore(t, repo)
	ctx := context.Background()
	if err := s.AddToCart(ctx, wand.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	line := s.Items()[0]
	q.Drain()

	repo.set(func(r *memRepo) { r.updateErr = errors.New("timeout") })
	if err := s.UpdateQuantity(ctx, line.ID, 4); err == nil {
		t.Fatalf("expected error")
	}
	if got := s.Items()[0].Quantity; got != 1 {
		t.Fatalf("expected quantity unchanged, got %d", got)
	}
	if n := lastMessage(t, q); n.Kind != notify.KindError || n.Message != MsgUpdateFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestRemoveFromCart(t *testing.T) {
	repo := newMemRepo(wand, cape)
	s, q := signedInStore(t, repo)
	ctx := context.Background()
	for _, id := range []string{wand.ID, cape.ID} {
		if err := s.AddToCart(ctx, id, 1); err != nil {
			t.Fatalf("AddToCart %s: %v", id, err)
		}
	}
	q.Drain()

	target := s.Items()[0]
	if err := s.RemoveFromCart(ctx, target.ID); err != nil {
		t.Fatalf("RemoveFromCart: %v", err)
	}
	items := s.Items()
	if len(items) != 1 || items[0].ProductID != cape.ID {
		t.Fatalf("unexpected items %+v", items)
	}
	if n := lastMessage(t, q); n.Message != MsgRemoved {
		t.Fatalf("unexpected notification %+v", n)
	}

	repo.set(func(r *memRepo) { r.deleteErr = errors.New("denied") })
	if err := s.RemoveFromCart(ctx, items[0].ID); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.Items()) != 1 {
		t.Fatalf("expected list unchanged after failed remove")
	}
	if n := lastMessage(t, q); n.Message != MsgRemoveFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestMutationsSignedOutAreRejected(t *testing.T) {
	repo := newMemRepo(wand)
	q := notify.NewQueue(10)
	s := New(repo, q, nil)
	ctx := context.Background()

	if err := s.UpdateQuantity(ctx, "line-1", 2); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("UpdateQuantity: expected ErrNotSignedIn, got %v", err)
	}
	if err := s.RemoveFromCart(ctx, "line-1"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("RemoveFromCart: expected ErrNotSignedIn, got %v", err)
	}
	if err := s.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart signed out should be a no-op, got %v", err)
	}
	list, insert, update, del, clear := repo.calls()
	if list+insert+update+del+clear != 0 {
		t.Fatalf("expected no repository calls")
	}
}

func TestTotals(t *testing.T) {
	repo := newMemRepo(wand, cape, potion)
	s, _ := signedInStore(t, repo)
	ctx := context.Background()

	if err := s.AddToCart(ctx, wand.ID, 2); err != nil {
		t.Fatalf("add wand: %v", err)
	}
	if err := s.AddToCart(ctx, cape.ID, 1); err != nil {
		t.Fatalf("add cape: %v", err)
	}
	if err := s.AddToCart(ctx, potion.ID, 3); err != nil {
		t.Fatalf("add potion: %v", err)
	}

	if got := s.TotalItems(); got != 6 {
		t.Fatalf("expected 6 items, got %d", got)
	}
	// 2*12.50 + 19.99 + 3*0.10
	if got := s.TotalPrice(); !got.Equal(domain.MustMoney("45.29")) {
		t.Fatalf("expected 45.29, got %s", got)
	}
	state := s.State()
	if state.TotalItems != 6 || state.TotalPrice.String() != "45.29" || len(state.Items) != 3 || state.Loading {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestEmptyCartTotals(t *testing.T) {
	s := New(newMemRepo(), nil, nil)
	if s.TotalItems() != 0 || !s.TotalPrice().Equal(domain.MustMoney("0")) {
		t.Fatalf("expected zero totals")
	}
	if items := s.Items(); items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestClearCart_EmptiesWithoutReload(t *testing.T) {
	repo := newMemRepo(wand, cape)
	s, q := signedInStore(t, repo)
	ctx := context.Background()
	for _, id := range []string{wand.ID, cape.ID} {
		if err := s.AddToCart(ctx, id, 1); err != nil {
			t.Fatalf("AddToCart: %v", err)
		}
	}
	q.Drain()
	listBefore, _, _, _, _ := repo.calls()

	if err := s.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	listAfter, _, _, _, clear := repo.calls()
	if listAfter != listBefore {
		t.Fatalf("expected no reload after clear")
	}
	if clear != 1 || len(s.Items()) != 0 || s.TotalItems() != 0 {
		t.Fatalf("expected empty cart, got %+v", s.Items())
	}
	if n := lastMessage(t, q); n.Message != MsgCleared {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestClearCart_FailureKeepsList(t *testing.T) {
	repo := newMemRepo(wand)
	s, q := signedInStore(t, repo)
	ctx := context.Background()
	if err := s.AddToCart(ctx, wand.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	q.Drain()
	repo.set(func(r *memRepo) { r.clearErr = errors.New("offline") })

	if err := s.ClearCart(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.Items()) != 1 {
		t.Fatalf("expected list kept")
	}
	if n := lastMessage(t, q); n.Message != MsgClearFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestSetUser_SignOutClearsWithoutNetwork(t *testing.T) {
	repo := newMemRepo(wand)
	s, _ := signedInStore(t, repo)
	ctx := context.Background()
	if err := s.AddToCart(ctx, wand.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	before, _, _, _, _ := repo.calls()

	s.SetUser(ctx, nil)

	after, _, _, _, _ := repo.calls()
	if after != before {
		t.Fatalf("sign-out must not query, got %d extra calls", after-before)
	}
	if len(s.Items()) != 0 || s.User() != nil {
		t.Fatalf("expected empty signed-out store")
	}
	// The persisted cart is untouched and comes back on the next sign-in.
	s.SetUser(ctx, &domain.User{ID: "user-1"})
	if len(s.Items()) != 1 {
		t.Fatalf("expected cart restored after sign-in, got %+v", s.Items())
	}
}

func TestSetUser_OneFetchPerIdentityChange(t *testing.T) {
	repo := newMemRepo()
	s := New(repo, nil, nil)
	ctx := context.Background()

	s.SetUser(ctx, &domain.User{ID: "a"})
	s.SetUser(ctx, &domain.User{ID: "a", Email: "refreshed@example.com"})
	s.SetUser(ctx, &domain.User{ID: "b"})
	s.SetUser(ctx, nil)
	s.SetUser(ctx, nil)

	if list, _, _, _, _ := repo.calls(); list != 2 {
		t.Fatalf("expected 2 fetches, got %d", list)
	}
}

func TestRefresh_FailureKeepsPreviousState(t *testing.T) {
	repo := newMemRepo(wand)
	s, q := signedInStore(t, repo)
	ctx := context.Background()
	if err := s.AddToCart(ctx, wand.ID, 3); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	q.Drain()

	repo.set(func(r *memRepo) { r.listErr = errors.New("503") })
	if err := s.Refresh(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if items := s.Items(); len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected previous state, got %+v", items)
	}
	if n := lastMessage(t, q); n.Kind != notify.KindError || n.Message != MsgLoadFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestRefresh_SupersededIdentityIsDiscarded(t *testing.T) {
	repo := newMemRepo(wand, cape)
	ctx := context.Background()
	if err := repo.InsertLine(ctx, "alice", wand.ID, 1); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if err := repo.InsertLine(ctx, "bob", cape.ID, 2); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.set(func(r *memRepo) {
		r.listHook = func(userID string) {
			if userID == "alice" {
				close(entered)
				<-release
			}
		}
	})

	s := New(repo, nil, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SetUser(ctx, &domain.User{ID: "alice"})
	}()

	<-entered
	if !s.Loading() {
		t.Fatalf("expected loading while a fetch is in flight")
	}
	s.SetUser(ctx, &domain.User{ID: "bob"})
	close(release)
	<-done

	items := s.Items()
	if len(items) != 1 || items[0].UserID != "bob" || items[0].ProductID != cape.ID {
		t.Fatalf("expected bob's cart to win, got %+v", items)
	}
	if s.Loading() {
		t.Fatalf("expected loading cleared")
	}
}

func TestConcurrentAddsAreSerialised(t *testing.T) {
	repo := newMemRepo(wand)
	s, _ := signedInStore(t, repo)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			return s.AddToCart(context.Background(), wand.ID, 1)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	items := s.Items()
	if len(items) != 1 || items[0].Quantity != 10 {
		t.Fatalf("expected a single line with quantity 10, got %+v", items)
	}
	if _, insert, update, _, _ := repo.calls(); insert != 1 || update != 9 {
		t.Fatalf("expected 1 insert and 9 updates, got %d and %d", insert, update)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	repo := newMemRepo(wand)
	s, _ := signedInStore(t, repo)
	if err := s.AddToCart(context.Background(), wand.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	items := s.Items()
	items[0].Quantity = 99
	if s.Items()[0].Quantity != 1 {
		t.Fatalf("caller mutation leaked into the store")
	}
}
