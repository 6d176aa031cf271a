package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ideon/internal/feed"
	"ideon/internal/models"
	"ideon/internal/notifications"
	"ideon/internal/repository"
	"ideon/internal/validation"
)

// DefaultSuggestions is how many members the sidebar suggests.
const DefaultSuggestions = 4

type UserService struct {
	users repository.UserRepository
	store *Store

	rngMu sync.Mutex
	rng   *rand.Rand
}

// UpdateProfileInput is a partial profile update; nil fields stay as they
// are.
type UpdateProfileInput struct {
	UserID    string
	Name      *string `json:"name"`
	Title     *string `json:"title"`
	Bio       *string `json:"bio"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatarUrl"`
}

// Profile is a member's public page.
type Profile struct {
	User  models.UserSnapshot `json:"user"`
	Ideas []*models.Idea      `json:"ideas"`
}

func NewUserService(users repository.UserRepository, store *Store) *UserService {
	return &UserService{
		users: users,
		store: store,
		// #nosec G404: shuffling suggestions is not security sensitive
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetProfile opens userID's profile in the viewer's profile view.
func (s *UserService) GetProfile(ctx context.Context, viewerID, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ideas, err := authoredBy(ctx, s.store.Ideas(), userID)
	if err != nil {
		return nil, err
	}
	snap := user.Snapshot()
	if viewerID != "" {
		s.store.OpenProfile(viewerID, snap)
	}
	return &Profile{User: snap, Ideas: ideas}, nil
}

// CloseProfile clears the viewer's profile view.
func (s *UserService) CloseProfile(viewerID string) {
	s.store.CloseProfile(viewerID)
}

// ProfileIdeas lists the ideas authored by userID, newest submission first.
func (s *UserService) ProfileIdeas(ctx context.Context, userID string) ([]*models.Idea, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return authoredBy(ctx, s.store.Ideas(), userID)
}

// SuggestedUsers returns up to n random members other than the viewer.
func (s *UserService) SuggestedUsers(ctx context.Context, viewerID string, n int) ([]models.UserSnapshot, error) {
	if n <= 0 {
		n = DefaultSuggestions
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	s.rngMu.Lock()
	picked := feed.SuggestUsers(users, viewerID, n, s.rng)
	s.rngMu.Unlock()

	out := make([]models.UserSnapshot, 0, len(picked))
	for _, u := range picked {
		out = append(out, u.Snapshot())
	}
	return out, nil
}

// UpdateProfile applies a partial update to the actor's own profile and
// re-syncs every embedded copy of it.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	unlock := s.store.LockUsers()
	user, err := s.applyProfile(ctx, in)
	unlock()
	if err != nil {
		return nil, err
	}

	s.store.publish(ctx, notifications.Event{Type: notifications.EventUserUpdated, Payload: user.Snapshot()})
	return user, nil
}

// applyProfile runs the read, the uniqueness checks, the write and the
// propagation of one profile update. Callers hold the member write lock.
func (s *UserService) applyProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := actor(ctx, s.users, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := validation.StripMarkup(*in.Name)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if !strings.EqualFold(name, user.Name) {
			if err := s.ensureFree(ctx, user.ID, s.users.GetByName, name, "Username already taken."); err != nil {
				return nil, err
			}
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if !strings.EqualFold(email, user.Email) {
			if err := s.ensureFree(ctx, user.ID, s.users.GetByEmail, email, "Email already in use."); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if in.Title != nil {
		user.Title = validation.StripMarkup(*in.Title)
	}
	if in.Bio != nil {
		user.Bio = validation.StripMarkup(*in.Bio)
	}
	if in.Phone != nil {
		user.Phone = validation.StripMarkup(*in.Phone)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := validation.ValidateProfileText(user.Title, user.Bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if _, err := s.store.PropagateUserUpdate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureFree(
	ctx context.Context,
	selfID string,
	lookup func(context.Context, string) (*models.User, error),
	value, message string,
) error {
	existing, err := lookup(ctx, value)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return models.NewConflictError(message)
	}
	return nil
}
