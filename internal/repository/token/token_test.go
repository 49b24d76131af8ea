package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository/testutil"

	"github.com/google/uuid"
)

func TestPostgres_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testutil.Pool(ctx, t)
	userID := testutil.InsertUser(ctx, t, pool, "token@example.com")
	repo := NewPostgres(pool)

	live := Token{ID: uuid.NewString(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	stale := Token{ID: uuid.NewString(), UserID: userID, ExpiresAt: time.Now().Add(-time.Hour)}
	for _, tok := range []Token{live, stale} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, live); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, live.ID)
	if err != nil || got.UserID != userID {
		t.Fatalf("Get: %+v err=%v", got, err)
	}

	n, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: n=%d err=%v", n, err)
	}
	if _, err := repo.Get(ctx, stale.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected stale token gone, got %v", err)
	}

	if err := repo.Delete(ctx, live.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, live.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := repo.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := repo.Delete(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting malformed id, got %v", err)
	}
}
