package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// MemoryUserRepository keeps users in process memory
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    map[string]domain.User{},
		byEmail: map[string]string{},
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[emailKey(user.Email)]; taken {
		return domain.ErrEmailTaken
	}
	prepareNewUser(user)
	r.byID[user.ID] = *user
	r.byEmail[emailKey(user.Email)] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	id, ok := r.byEmail[emailKey(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	delete(r.byEmail, emailKey(old.Email))
	r.byID[user.ID] = *user
	r.byEmail[emailKey(user.Email)] = user.ID
	return nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	users := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sortUsers(users)
	return users, nil
}
