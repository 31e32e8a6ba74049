package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

func runUserRepositoryContract(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()

	u := &domain.User{Email: "Ops@Example.com", PasswordHash: "hash", FirstName: "Op", LastName: "Erator"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.Role != domain.RoleUser || u.CreatedAt.IsZero() {
		t.Fatalf("expected id, default role and timestamps, got %+v", u)
	}

	dup := &domain.User{Email: "ops@example.com", PasswordHash: "x", FirstName: "A", LastName: "B"}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "OPS@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}

	got.PasswordHash = "new-hash"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if reloaded.PasswordHash != "new-hash" {
		t.Fatal("update not persisted")
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.Update(ctx, &domain.User{ID: "missing"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	second := &domain.User{Email: "second@example.com", PasswordHash: "h", FirstName: "S", LastName: "E", Role: domain.RoleAdmin}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].ID != u.ID || users[1].ID != second.ID {
		t.Fatalf("expected both users oldest first, got %+v", users)
	}
}

func TestMemoryUserRepository(t *testing.T) {
	runUserRepositoryContract(t, NewMemoryUserRepository())
}

func TestFileUserRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users-db.json")
	runUserRepositoryContract(t, NewFileUserRepository(path, nil))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"password": "new-hash"`) {
		t.Fatal("expected hash stored under the password key")
	}
}
