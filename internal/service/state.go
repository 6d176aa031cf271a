package service

import (
	"context"

	"ideon/internal/persistence"
	"ideon/internal/repository"
)

// State joins the user and idea collections for persistence.
type State struct {
	users repository.UserRepository
	ideas repository.IdeaRepository
}

func NewState(users repository.UserRepository, ideas repository.IdeaRepository) *State {
	return &State{users: users, ideas: ideas}
}

// Snapshot copies both collections.
func (s *State) Snapshot(ctx context.Context) (*persistence.Snapshot, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	ideas, err := s.ideas.List(ctx)
	if err != nil {
		return nil, err
	}
	return &persistence.Snapshot{Users: users, Ideas: ideas}, nil
}

// Version moves whenever either collection changes.
func (s *State) Version() uint64 {
	return s.users.Version() + s.ideas.Version()
}

// Load replaces both collections with snap.
func (s *State) Load(ctx context.Context, snap *persistence.Snapshot) error {
	if err := s.users.Replace(ctx, snap.Users); err != nil {
		return err
	}
	return s.ideas.Replace(ctx, snap.Ideas)
}
