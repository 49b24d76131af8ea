// Package identity tracks who is signed in to one storefront session and
// tells interested parties when that changes.
package identity

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/notify"
	"storefront/internal/service/auth"

	"go.uber.org/zap"
)

const (
	MsgSignedIn   = "Welcome back!"
	MsgSignedUp   = "Account created!"
	MsgSignedOut  = "Signed out"
	MsgAuthFailed = "Authentication failed"
)

// Provider is the remote identity service.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Listener is called with the new user (nil when signed out).
type Listener func(ctx context.Context, user *domain.User)

type Identity struct {
	provider Provider
	notifier notify.Notifier
	logger   *zap.Logger

	ops sync.Mutex

	mu        sync.RWMutex
	user      *domain.User
	token     string
	listeners []Listener
}

func New(provider Provider, notifier notify.Notifier, log *zap.Logger) *Identity {
	return &Identity{
		provider: provider,
		notifier: notifier,
		logger:   logger.OrNop(log),
	}
}

// Subscribe registers l for identity changes. It is not called for the
// current user.
func (i *Identity) Subscribe(l Listener) {
	i.mu.Lock()
	i.listeners = append(i.listeners, l)
	i.mu.Unlock()
}

func (i *Identity) CurrentUser() *domain.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return nil
	}
	u := *i.user
	return &u
}

func (i *Identity) Token() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.token
}

func (i *Identity) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	i.ops.Lock()
	defer i.ops.Unlock()

	sess, err := i.provider.SignIn(ctx, email, password)
	if err != nil {
		i.fail(ctx, "sign_in_failed", err)
		return nil, err
	}
	i.set(ctx, sess.User, sess.Token)
	notify.Success(ctx, i.notifier, MsgSignedIn)
	return sess, nil
}

// SignUp creates the account and signs straight into it.
func (i *Identity) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	i.ops.Lock()
	defer i.ops.Unlock()

	if _, err := i.provider.SignUp(ctx, email, password); err != nil {
		i.fail(ctx, "sign_up_failed", err)
		return nil, err
	}
	sess, err := i.provider.SignIn(ctx, email, password)
	if err != nil {
		i.fail(ctx, "sign_in_after_sign_up_failed", err)
		return nil, err
	}
	i.set(ctx, sess.User, sess.Token)
	notify.Success(ctx, i.notifier, MsgSignedUp)
	return sess, nil
}

// SignOut revokes the token remotely and always clears the local identity,
// even when revocation fails.
func (i *Identity) SignOut(ctx context.Context) error {
	i.ops.Lock()
	defer i.ops.Unlock()

	token := i.Token()
	var err error
	if token != "" {
		err = i.provider.SignOut(ctx, token)
		if err != nil {
			i.logger.Warn("sign_out_revoke_failed", zap.Error(err))
		}
	}
	i.set(ctx, nil, "")
	notify.Success(ctx, i.notifier, MsgSignedOut)
	return err
}

// Restore adopts the user behind an existing bearer token without
// notifying.
func (i *Identity) Restore(ctx context.Context, token string) (*domain.User, error) {
	i.ops.Lock()
	defer i.ops.Unlock()

	u, err := i.provider.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	i.set(ctx, u, token)
	return u, nil
}

// set stores the new identity and fires listeners when the user id changed.
// Callers hold ops so listeners observe changes in order.
func (i *Identity) set(ctx context.Context, user *domain.User, token string) {
	i.mu.Lock()
	changed := userID(i.user) != userID(user)
	if user == nil {
		i.user = nil
	} else {
		u := *user
		i.user = &u
	}
	i.token = token
	listeners := append([]Listener(nil), i.listeners...)
	i.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(ctx, i.CurrentUser())
	}
}

func (i *Identity) fail(ctx context.Context, event string, err error) {
	i.logger.Info(event, zap.Error(err))
	notify.Error(ctx, i.notifier, Message(err))
}

// Message is the user-facing text for an auth error.
func Message(err error) string {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrInvalidEmail):
		return err.Error()
	default:
		return MsgAuthFailed
	}
}

func userID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
