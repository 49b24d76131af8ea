// Package session holds the per-client state of the storefront: who is
// signed in, their cart, the catalog they are browsing and the notifications
// waiting to be shown.
package session

import (
	"context"
	"sync"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/notify"
	"storefront/internal/storefront/cart"
	"storefront/internal/storefront/catalog"
	"storefront/internal/storefront/identity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the shared services every session is wired to.
type Deps struct {
	Auth               identity.Provider
	Cart               cart.Repository
	Products           catalog.ProductSource
	Categories         catalog.CategorySource
	Cache              *cache.Cache
	Logger             *zap.Logger
	IdleTimeout        time.Duration
	NotificationBuffer int
	// MaxSessions caps live sessions; the least recently used one is evicted
	// to make room. Zero means 10000.
	MaxSessions int
}

type Session struct {
	ID            string
	Notifications *notify.Queue
	Identity      *identity.Identity
	Cart          *cart.Store
	Catalog       *catalog.View

	mu       sync.Mutex
	lastSeen time.Time
}

func newSession(id string, deps Deps, now time.Time) *Session {
	log := deps.Logger.With(zap.String("session_id", id))
	queue := notify.NewQueue(deps.NotificationBuffer)
	notifier := notify.Multi(
		queue,
		notify.Log(log),
		notify.Publisher(deps.Cache, notify.ChannelFor(id), log),
	)

	s := &Session{
		ID:            id,
		Notifications: queue,
		Identity:      identity.New(deps.Auth, notifier, log),
		lastSeen:      now,
	}
	s.Cart = cart.New(deps.Cart, notifier, log)
	s.Identity.Subscribe(func(ctx context.Context, u *domain.User) {
		s.Cart.SetUser(ctx, u)
	})
	s.Catalog = catalog.NewView(deps.Products, deps.Categories, notifier, log)
	return s
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close detaches the cart from its user.
func (s *Session) Close(ctx context.Context) {
	s.Cart.SetUser(ctx, nil)
}

// Manager keeps sessions in memory and evicts the idle ones.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	deps.Logger = logger.OrNop(deps.Logger)
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = time.Hour
	}
	if deps.MaxSessions <= 0 {
		deps.MaxSessions = 10000
	}
	return &Manager{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new anonymous session, evicting the least recently used
// one when the manager is full.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	s := newSession(id, m.deps, m.now())

	m.mu.Lock()
	var evicted *Session
	if len(m.sessions) >= m.deps.MaxSessions {
		evicted = m.oldestLocked()
		if evicted != nil {
			delete(m.sessions, evicted.ID)
		}
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close(context.Background())
		m.deps.Logger.Info("session_evicted", zap.String("session_id", evicted.ID))
	}
	m.deps.Logger.Debug("session_created", zap.String("session_id", id))
	return s
}

// Detached builds a session that is never registered. Read-only requests
// without a session use one so they do not grow the manager.
func (m *Manager) Detached() *Session {
	return newSession(uuid.NewString(), m.deps, m.now())
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(s.LastSeen()) > m.deps.IdleTimeout {
		m.remove(context.Background(), id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

func (m *Manager) Delete(ctx context.Context, id string) {
	m.remove(ctx, id)
}

// Sweep closes every session idle for longer than the idle timeout and
// returns how many were removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.deps.IdleTimeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.remove(ctx, id)
	}
	if len(expired) > 0 {
		m.deps.Logger.Info("sessions_swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) oldestLocked() *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.LastSeen().Before(oldest.LastSeen()) {
			oldest = s
		}
	}
	return oldest
}

func (m *Manager) remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close(ctx)
	}
}
