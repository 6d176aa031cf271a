package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"ideon/internal/models"
	"ideon/internal/observability"
	"ideon/internal/thread"
)

// Snapshot is the full persisted state.
type Snapshot struct {
	Users []*models.User
	Ideas []*models.Idea
}

// Source of fallback data used when stored data is missing or unreadable.
type Fallback func() (*Snapshot, error)

// Origin says where a hydrated collection came from.
type Origin string

const (
	OriginStored   Origin = "stored"
	OriginFallback Origin = "fallback"
	OriginEmpty    Origin = "empty"
)

// HydrateReport describes how each collection was restored.
type HydrateReport struct {
	Users Origin
	Ideas Origin
}

// Store reads and writes snapshots through a KV.
type Store struct {
	kv       KV
	fallback Fallback
	log      *observability.StoreLogger
}

// NewStore creates a Store. fallback may be nil, in which case missing data
// hydrates as empty collections.
func NewStore(kv KV, fallback Fallback) *Store {
	return &Store{kv: kv, fallback: fallback, log: observability.NewStoreLogger("snapshot")}
}

// Backend names the KV implementation.
func (s *Store) Backend() string { return s.kv.Name() }

// Hydrate restores users and ideas independently. Missing, unreadable or
// malformed data falls back per collection; it never fails.
func (s *Store) Hydrate(ctx context.Context) (*Snapshot, HydrateReport) {
	ctx, span := observability.StartSpan(ctx, "persistence", "hydrate")
	defer span.End()

	var fb *Snapshot
	loadFallback := func() *Snapshot {
		if fb != nil {
			return fb
		}
		fb = &Snapshot{}
		if s.fallback == nil {
			return fb
		}
		loaded, err := s.fallback()
		if err != nil {
			s.log.LogError(ctx, err, "fallback")
			return fb
		}
		fb = loaded
		return fb
	}
	origin := func(items int) Origin {
		if s.fallback == nil || items == 0 {
			return OriginEmpty
		}
		return OriginFallback
	}

	out := &Snapshot{}
	var report HydrateReport

	var users []*models.User
	if ok := s.read(ctx, UsersKey, &users); ok {
		out.Users, report.Users = users, OriginStored
	} else {
		out.Users = loadFallback().Users
		report.Users = origin(len(out.Users))
	}

	var ideas []*models.Idea
	if ok := s.read(ctx, IdeasKey, &ideas); ok {
		out.Ideas, report.Ideas = ideas, OriginStored
	} else {
		out.Ideas = loadFallback().Ideas
		report.Ideas = origin(len(out.Ideas))
	}

	out.Users = MigrateUsers(out.Users)
	out.Ideas = MigrateIdeas(out.Ideas)
	return out, report
}

// read decodes key into dest. It reports false when the key is absent or the
// value cannot be used.
func (s *Store) read(ctx context.Context, key string, dest any) bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		observability.StorageErrors.WithLabelValues("read").Inc()
		s.log.LogError(ctx, models.NewStorageError("read "+key, err), "read")
		return false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "discarding malformed stored data",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Persist writes both collections. The first failure is returned as a
// STORAGE_UNAVAILABLE error; the in-memory state is untouched either way.
func (s *Store) Persist(ctx context.Context, snap *Snapshot) error {
	ctx, span := observability.StartSpan(ctx, "persistence", "persist")
	defer span.End()
	defer observability.TrackFlush(s.kv.Name())()

	if err := s.write(ctx, UsersKey, snap.Users); err != nil {
		span.SetError(err)
		return err
	}
	if err := s.write(ctx, IdeasKey, snap.Ideas); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("encode %s: %w", key, err))
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		observability.StorageErrors.WithLabelValues("write").Inc()
		return models.NewStorageError("write "+key, err)
	}
	return nil
}

// LoadSession returns the stored logged-in user id, or "" when none.
func (s *Store) LoadSession(ctx context.Context) (string, error) {
	id, ok, err := s.kv.Get(ctx, SessionKey)
	if err != nil {
		observability.StorageErrors.WithLabelValues("session").Inc()
		return "", models.NewStorageError("read session", err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(id), nil
}

// SaveSession records userID as the logged-in user.
func (s *Store) SaveSession(ctx context.Context, userID string) error {
	if err := s.kv.Set(ctx, SessionKey, userID); err != nil {
		observability.StorageErrors.WithLabelValues("session").Inc()
		return models.NewStorageError("write session", err)
	}
	return nil
}

// ClearSession forgets the logged-in user.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		observability.StorageErrors.WithLabelValues("session").Inc()
		return models.NewStorageError("clear session", err)
	}
	return nil
}

// MigrateIdeas fills fields that older stored ideas may lack and restores
// the likes == len(likedBy) invariant. Nil entries are dropped.
func MigrateIdeas(ideas []*models.Idea) []*models.Idea {
	out := make([]*models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if idea == nil {
			continue
		}
		if strings.TrimSpace(idea.Market) == "" {
			idea.Market = models.DefaultMarket
		}
		idea.LikedBy = thread.Dedupe(idea.LikedBy)
		idea.Likes = len(idea.LikedBy)
		if idea.Views < 0 {
			idea.Views = 0
		}
		if idea.Shares < 0 {
			idea.Shares = 0
		}
		if idea.Tags == nil {
			idea.Tags = []string{}
		}
		if idea.LookingFor == nil {
			idea.LookingFor = []string{}
		}
		if idea.Team == nil {
			idea.Team = []models.UserSnapshot{}
		}
		if idea.Comments == nil {
			idea.Comments = []models.Comment{}
		}
		for i := range idea.Comments {
			c := &idea.Comments[i]
			c.LikedBy = thread.Dedupe(c.LikedBy)
			c.Likes = len(c.LikedBy)
		}
		out = append(out, idea)
	}
	return out
}

// MigrateUsers drops nil entries.
func MigrateUsers(users []*models.User) []*models.User {
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}
