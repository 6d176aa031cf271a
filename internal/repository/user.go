package repository

import (
	"context"
	"strings"
	"sync"

	"ideon/internal/models"
	"ideon/internal/observability"
)

// UserRepository defines interface for user operations. Name and email
// lookups ignore case.
type UserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByIdentifier(ctx context.Context, emailOrName string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Replace(ctx context.Context, users []*models.User) error
	Version() uint64
}

type memoryUserRepository struct {
	mu      sync.RWMutex
	users   []*models.User
	version uint64
	log     *observability.StoreLogger
}

// NewMemoryUserRepository creates a UserRepository seeded with users.
func NewMemoryUserRepository(users []*models.User) UserRepository {
	r := &memoryUserRepository{log: observability.NewStoreLogger("users")}
	r.users = cloneUsers(users)
	return r
}

func (r *memoryUserRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneUsers(r.users), nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.ID == id }, id)
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }, email)
}

func (r *memoryUserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return strings.EqualFold(u.Name, name) }, name)
}

func (r *memoryUserRepository) GetByIdentifier(ctx context.Context, emailOrName string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool {
		return strings.EqualFold(u.Email, emailOrName) || strings.EqualFold(u.Name, emailOrName)
	}, emailOrName)
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == user.ID {
			return models.NewConflictError("User " + user.ID + " already exists.")
		}
	}
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	r.users = append(r.users, user.Clone())
	r.version++
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	for i, u := range r.users {
		if u.ID == user.ID {
			r.users[i] = user.Clone()
			r.version++
			r.log.LogUpdate(ctx, map[string]interface{}{"user_id": user.ID})
			return nil
		}
	}
	return models.NewNotFoundError("User", user.ID)
}

func (r *memoryUserRepository) Replace(ctx context.Context, users []*models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = cloneUsers(users)
	r.version++
	return nil
}

func (r *memoryUserRepository) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// checkUniqueLocked rejects user when another member already holds its
// email or name. Empty keys are not compared. Callers hold r.mu.
func (r *memoryUserRepository) checkUniqueLocked(user *models.User) error {
	for _, u := range r.users {
		if u.ID == user.ID {
			continue
		}
		switch {
		case user.Email != "" && strings.EqualFold(u.Email, user.Email):
			return models.NewConflictError("Email already in use.")
		case user.Name != "" && strings.EqualFold(u.Name, user.Name):
			return models.NewConflictError("Username already taken.")
		}
	}
	return nil
}

func (r *memoryUserRepository) findBy(match func(*models.User) bool, key string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, models.NewNotFoundError("User", key)
}

func cloneUsers(users []*models.User) []*models.User {
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Clone())
	}
	return out
}
