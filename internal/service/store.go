// Package service holds the application's business logic on top of the
// repositories.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ideon/internal/feed"
	"ideon/internal/models"
	"ideon/internal/notifications"
	"ideon/internal/observability"
	"ideon/internal/repository"
	"ideon/internal/thread"

	"github.com/google/uuid"
)

// Publisher receives domain events. *notifications.Notifier implements it.
type Publisher interface {
	Publish(ctx context.Context, ev notifications.Event) error
}

// View is one viewer's open projections: the idea in the detail view, the
// profile being looked at and the search box.
type View struct {
	Selected *models.Idea
	Profile  *models.UserSnapshot
	search   *feed.Debouncer
}

// Store is the idea collection plus every open view projection. All writes
// go through one mutex so the canonical entry and the projections change in
// the same step. userMu serializes member account writes together with their
// propagation into ideas; it is always taken before mu.
type Store struct {
	userMu   sync.Mutex
	mu       sync.Mutex
	ideas    repository.IdeaRepository
	views    map[string]*View
	events   Publisher
	now      func() time.Time
	newID    func(prefix string) string
	debounce time.Duration
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(gen func(prefix string) string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithSearchDebounce sets the quiet period of every viewer's search box.
func WithSearchDebounce(d time.Duration) StoreOption {
	return func(s *Store) { s.debounce = d }
}

// NewStore creates a Store over ideas. events may be nil.
func NewStore(ideas repository.IdeaRepository, events Publisher, opts ...StoreOption) *Store {
	s := &Store{
		ideas:    ideas,
		views:    make(map[string]*View),
		events:   events,
		now:      time.Now,
		newID:    func(prefix string) string { return prefix + "-" + uuid.NewString() },
		debounce: feed.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ideas exposes the canonical repository for reads.
func (s *Store) Ideas() repository.IdeaRepository { return s.ideas }

// Version changes whenever the canonical collection changes.
func (s *Store) Version() uint64 { return s.ideas.Version() }

// Now returns the store clock's current time in Millis.
func (s *Store) Now() models.Millis { return models.MillisOf(s.now()) }

// NewID returns a fresh id with the given prefix.
func (s *Store) NewID(prefix string) string { return s.newID(prefix) }

// LockUsers holds the member write lock until the returned func is called.
func (s *Store) LockUsers() (unlock func()) {
	s.userMu.Lock()
	return s.userMu.Unlock
}

// viewLocked returns the view of viewerID, creating it. Callers hold s.mu.
func (s *Store) viewLocked(viewerID string) *View {
	v, ok := s.views[viewerID]
	if !ok {
		v = &View{}
		s.views[viewerID] = v
	}
	return v
}

// mutateLocked applies fn to the canonical idea and, when it changed
// something, to every open projection of the same idea. A missing idea
// returns (nil, false, nil). Callers hold s.mu.
func (s *Store) mutateLocked(ctx context.Context, op, ideaID string, fn repository.IdeaMutator) (*models.Idea, bool, error) {
	changed := false
	updated, err := s.ideas.Update(ctx, ideaID, func(idea *models.Idea) bool {
		changed = fn(idea)
		return changed
	})
	if err != nil {
		return nil, false, err
	}
	if updated == nil || !changed {
		observability.MutationNoops.WithLabelValues(op).Inc()
		return updated, false, nil
	}
	for _, v := range s.views {
		if v.Selected != nil && v.Selected.ID == ideaID {
			fn(v.Selected)
		}
	}
	observability.IdeaMutations.WithLabelValues(op).Inc()
	return updated, true, nil
}

// Mutate is the dual-write entry point used by the services.
func (s *Store) Mutate(ctx context.Context, op, ideaID string, fn repository.IdeaMutator) (*models.Idea, bool, error) {
	ctx, span := observability.StartSpan(ctx, "store", op)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	idea, changed, err := s.mutateLocked(ctx, op, ideaID, fn)
	if err != nil {
		span.SetError(err)
	}
	return idea, changed, err
}

// Prepend adds a new idea at the head of the collection.
func (s *Store) Prepend(ctx context.Context, idea *models.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ideas.Prepend(ctx, idea); err != nil {
		return err
	}
	observability.IdeaMutations.WithLabelValues("submit").Inc()
	return nil
}

// RecordView counts one open of the idea.
func (s *Store) RecordView(ctx context.Context, ideaID string) (*models.Idea, error) {
	idea, _, err := s.Mutate(ctx, "view", ideaID, incrementViews)
	return idea, err
}

// RecordShare counts one share action on the idea.
func (s *Store) RecordShare(ctx context.Context, ideaID string) (*models.Idea, error) {
	idea, _, err := s.Mutate(ctx, "share", ideaID, func(idea *models.Idea) bool {
		idea.Shares++
		return true
	})
	return idea, err
}

// ToggleIdeaLike flips userID's membership in the idea's likedBy set.
func (s *Store) ToggleIdeaLike(ctx context.Context, ideaID, userID string) (*models.Idea, error) {
	idea, _, err := s.Mutate(ctx, "like_idea", ideaID, func(idea *models.Idea) bool {
		idea.LikedBy, _ = thread.ToggleMember(idea.LikedBy, userID)
		idea.Likes = len(idea.LikedBy)
		return true
	})
	return idea, err
}

func incrementViews(idea *models.Idea) bool {
	idea.Views++
	return true
}

// Open records a view and selects the idea into viewerID's detail view.
func (s *Store) Open(ctx context.Context, viewerID, ideaID string) (*models.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, _, err := s.mutateLocked(ctx, "view", ideaID, incrementViews)
	if err != nil || idea == nil {
		return nil, err
	}
	s.viewLocked(viewerID).Selected = idea.Clone()
	return idea, nil
}

// Close clears viewerID's detail view.
func (s *Store) Close(viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[viewerID]; ok {
		v.Selected = nil
	}
}

// Selected returns a copy of viewerID's open idea, or nil.
func (s *Store) Selected(viewerID string) *models.Idea {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[viewerID]; ok {
		return v.Selected.Clone()
	}
	return nil
}

// OpenProfile records the profile viewerID is looking at.
func (s *Store) OpenProfile(viewerID string, profile models.UserSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := profile
	s.viewLocked(viewerID).Profile = &p
}

// CloseProfile clears viewerID's profile view.
func (s *Store) CloseProfile(viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[viewerID]; ok {
		v.Profile = nil
	}
}

// ViewingProfile returns the profile viewerID has open, or nil.
func (s *Store) ViewingProfile(viewerID string) *models.UserSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[viewerID]
	if !ok || v.Profile == nil {
		return nil
	}
	p := *v.Profile
	return &p
}

// DropView discards every projection of viewerID.
func (s *Store) DropView(viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[viewerID]; ok {
		if v.search != nil {
			v.search.Stop()
		}
		delete(s.views, viewerID)
	}
}

func (s *Store) searchBox(viewerID string) *feed.Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.viewLocked(viewerID)
	if v.search == nil {
		v.search = feed.NewDebouncer(s.debounce, nil)
	}
	return v.search
}

// TypeSearch feeds a keystroke-level query into viewerID's search box.
func (s *Store) TypeSearch(viewerID, query string) {
	s.searchBox(viewerID).Input(query)
}

// SettledSearch returns the query that survived the debounce window.
func (s *Store) SettledSearch(viewerID string) string {
	return s.searchBox(viewerID).Settled()
}

// PendingSearch returns the latest typed query.
func (s *Store) PendingSearch(viewerID string) string {
	return s.searchBox(viewerID).Pending()
}

// PropagateUserUpdate rewrites every embedded snapshot of user across the
// collection and the open projections. It returns the number of ideas that
// changed.
func (s *Store) PropagateUserUpdate(ctx context.Context, user *models.User) (int, error) {
	ctx, span := observability.StartSpan(ctx, "store", "propagate_user_update")
	defer span.End()

	snap := user.Snapshot()
	rewrite := func(idea *models.Idea) bool {
		return rewriteSnapshots(idea, snap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.ideas.UpdateAll(ctx, rewrite)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	for _, v := range s.views {
		if v.Selected != nil {
			rewrite(v.Selected)
		}
		if v.Profile != nil && v.Profile.ID == snap.ID {
			p := snap
			v.Profile = &p
		}
	}
	observability.IdeaMutations.WithLabelValues("propagate_user").Inc()
	return changed, nil
}

func rewriteSnapshots(idea *models.Idea, snap models.UserSnapshot) bool {
	changed := false
	if idea.Author.ID == snap.ID && idea.Author != snap {
		idea.Author = snap
		changed = true
	}
	for i := range idea.Team {
		if idea.Team[i].ID == snap.ID && idea.Team[i] != snap {
			idea.Team[i] = snap
			changed = true
		}
	}
	for i := range idea.Comments {
		if idea.Comments[i].User.ID == snap.ID && idea.Comments[i].User != snap {
			idea.Comments[i].User = snap
			changed = true
		}
	}
	return changed
}

// Shutdown stops every pending search timer.
func (s *Store) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.views {
		if v.search != nil {
			v.search.Stop()
		}
	}
}

// publish sends ev and logs failures; events are best effort.
func (s *Store) publish(ctx context.Context, ev notifications.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "event publish failed",
			slog.String("type", ev.Type),
			slog.String("idea_id", ev.IdeaID),
			slog.String("error", err.Error()),
		)
	}
}
