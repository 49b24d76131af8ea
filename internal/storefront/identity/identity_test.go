package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/service/auth"
)

type stubProvider struct {
	users      map[string]*domain.User
	passwords  map[string]string
	tokens     map[string]*domain.User
	signOutErr error
	revoked    []string
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		users:     map[string]*domain.User{},
		passwords: map[string]string{},
		tokens:    map[string]*domain.User{},
	}
}

func (p *stubProvider) SignUp(_ context.Context, email, password string) (*domain.User, error) {
	if _, ok := p.users[email]; ok {
		return nil, auth.ErrEmailTaken
	}
	if len(password) < 8 {
		return nil, &auth.ValidationError{Reason: "Password must be at least 8 characters"}
	}
	u := &domain.User{ID: "u-" + email, Email: email}
	p.users[email] = u
	p.passwords[email] = password
	return u, nil
}

func (p *stubProvider) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	u, ok := p.users[email]
	if !ok || p.passwords[email] != password {
		return nil, auth.ErrInvalidCredentials
	}
	token := "tok-" + email
	p.tokens[token] = u
	return &auth.Session{User: u, Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *stubProvider) SignOut(_ context.Context, token string) error {
	p.revoked = append(p.revoked, token)
	delete(p.tokens, token)
	return p.signOutErr
}

func (p *stubProvider) Authenticate(_ context.Context, token string) (*domain.User, error) {
	u, ok := p.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

type recorder struct {
	mu    sync.Mutex
	users []*domain.User
}

func (r *recorder) listen(_ context.Context, u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
}

func TestSignUpSignsInAndNotifiesListenersOnce(t *testing.T) {
	provider := newStubProvider()
	queue := notify.NewQueue(10)
	id := New(provider, queue, nil)
	rec := &recorder{}
	id.Subscribe(rec.listen)
	ctx := context.Background()

	sess, err := id.SignUp(ctx, "ariel@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.CurrentUser() == nil || id.CurrentUser().ID != sess.User.ID || id.Token() != sess.Token {
		t.Fatalf("identity not stored: user=%+v token=%q", id.CurrentUser(), id.Token())
	}
	if len(rec.users) != 1 || rec.users[0].Email != "ariel@example.com" {
		t.Fatalf("expected one listener call, got %+v", rec.users)
	}

	// Signing in again as the same user is not a change.
	if _, err := id.SignIn(ctx, "ariel@example.com", "Abcdefg1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(rec.users) != 1 {
		t.Fatalf("same user must not re-fire listeners, got %d calls", len(rec.users))
	}

	msgs := queue.Drain()
	if len(msgs) != 2 || msgs[0].Message != MsgSignedUp || msgs[1].Message != MsgSignedIn {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestSignInFailureNotifiesErrorText(t *testing.T) {
	queue := notify.NewQueue(10)
	id := New(newStubProvider(), queue, nil)

	_, err := id.SignIn(context.Background(), "nobody@example.com", "x")
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	msgs := queue.Drain()
	if len(msgs) != 1 || msgs[0].Kind != notify.KindError || msgs[0].Message != auth.ErrInvalidCredentials.Error() {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
	if id.CurrentUser() != nil {
		t.Fatalf("failed sign in must not set a user")
	}
}

func TestSignUpValidationMessage(t *testing.T) {
	queue := notify.NewQueue(10)
	id := New(newStubProvider(), queue, nil)

	if _, err := id.SignUp(context.Background(), "a@example.com", "short"); err == nil {
		t.Fatalf("expected error")
	}
	msgs := queue.Drain()
	if len(msgs) != 1 || msgs[0].Message != "Password must be at least 8 characters" {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestSignOutClearsEvenWhenRevokeFails(t *testing.T) {
	provider := newStubProvider()
	id := New(provider, nil, nil)
	rec := &recorder{}
	ctx := context.Background()

	if _, err := id.SignUp(ctx, "belle@example.com", "Abcdefg1"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	id.Subscribe(rec.listen)
	provider.signOutErr = errors.New("network down")

	if err := id.SignOut(ctx); err == nil {
		t.Fatalf("expected revoke error to be returned")
	}
	if id.CurrentUser() != nil || id.Token() != "" {
		t.Fatalf("local identity must be cleared")
	}
	if len(rec.users) != 1 || rec.users[0] != nil {
		t.Fatalf("expected a single nil notification, got %+v", rec.users)
	}
	if len(provider.revoked) != 1 || provider.revoked[0] != "tok-belle@example.com" {
		t.Fatalf("unexpected revocations %v", provider.revoked)
	}
}

func TestRestore(t *testing.T) {
	provider := newStubProvider()
	ctx := context.Background()
	first := New(provider, nil, nil)
	sess, err := first.SignUp(ctx, "jasmine@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	queue := notify.NewQueue(10)
	second := New(provider, queue, nil)
	rec := &recorder{}
	second.Subscribe(rec.listen)

	if _, err := second.Restore(ctx, "bogus"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	u, err := second.Restore(ctx, sess.Token)
	if err != nil || u.Email != "jasmine@example.com" {
		t.Fatalf("Restore: user=%+v err=%v", u, err)
	}
	if len(rec.users) != 1 {
		t.Fatalf("expected one listener call, got %d", len(rec.users))
	}
	if queue.Len() != 0 {
		t.Fatalf("restore must not notify")
	}
}

func TestMessageFallsBackForUnknownErrors(t *testing.T) {
	if got := Message(errors.New("dial tcp: refused")); got != MsgAuthFailed {
		t.Fatalf("unexpected message %q", got)
	}
}
