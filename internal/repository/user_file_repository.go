package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// FileUserRepository implements domain.UserRepository on a JSON file.
// Password hashes are stored under the "password" key.
type FileUserRepository struct {
	doc    *jsonDocument[domain.User]
	logger *slog.Logger
}

// NewFileUserRepository creates a user repository backed by path
func NewFileUserRepository(path string, logger *slog.Logger) *FileUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileUserRepository{
		doc:    newJSONDocument[domain.User](path),
		logger: logger,
	}
}

// Create stores a new user; the email must not be registered yet
func (r *FileUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.doc.update(func(users []domain.User) ([]domain.User, error) {
		for _, u := range users {
			if sameEmail(u.Email, user.Email) {
				return nil, domain.ErrEmailTaken
			}
		}
		prepareNewUser(user)
		return append(users, *user), nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", slog.String("user_id", user.ID))
	return nil
}

// GetByID retrieves a user by ID
func (r *FileUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

// GetByEmail retrieves a user by email, ignoring case
func (r *FileUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return sameEmail(u.Email, email) })
}

// Update replaces the stored user with the same ID
func (r *FileUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.doc.update(func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].ID == user.ID {
				user.UpdatedAt = time.Now().UTC()
				users[i] = *user
				return users, nil
			}
		}
		return nil, domain.ErrUserNotFound
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// List returns all users in creation order
func (r *FileUserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users, err := r.doc.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	sortUsers(users)
	return users, nil
}

func (r *FileUserRepository) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users, err := r.doc.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	for i := range users {
		if match(users[i]) {
			return &users[i], nil
		}
	}
	return nil, domain.ErrUserNotFound
}
