package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ideon/internal/models"
	"ideon/internal/notifications"
	"ideon/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func sequentialIDs() func(prefix string) string {
	var n int64
	return func(prefix string) string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1))
	}
}

func member(id, name string) *models.User {
	return &models.User{
		ID:            id,
		Name:          name,
		Email:         name + "@ideon.com",
		Title:         "Founder",
		EmailVerified: true,
	}
}

func parent(id string) *string { return &id }

func comment(id string, user *models.User, minutes int, parentID *string) models.Comment {
	return models.Comment{
		ID:        id,
		User:      user.Snapshot(),
		Text:      "comment " + id,
		CreatedAt: models.MillisOf(fixedNow.Add(time.Duration(minutes) * time.Minute)),
		LikedBy:   []string{},
		ParentID:  parentID,
	}
}

type fixture struct {
	users    repository.UserRepository
	ideas    repository.IdeaRepository
	store    *Store
	events   *recordingPublisher
	alex     *models.User
	maria    *models.User
	sam      *models.User
	pending  *models.User
	aiIdea   string
	web3Idea string
	soloIdea string
}

// newFixture builds three ideas:
//
//	idea-ai    by alex, thread A <- B <- C by maria/alex, team [alex]
//	idea-web3  by maria, one comment by alex, team [maria, alex]
//	idea-solo  by sam, no comments
func newFixture(t *testing.T) *fixture {
	t.Helper()
	alex := member("u1", "alex")
	maria := member("u2", "maria")
	sam := member("u3", "sam")
	pending := member("u4", "pending")
	pending.EmailVerified = false

	ai := &models.Idea{
		ID:          "idea-ai",
		Title:       "AI-Powered Personal Nutritionist",
		Summary:     "Meal plans from your wearables",
		Description: "An **AI** coach.",
		Market:      "Health",
		Author:      alex.Snapshot(),
		Tags:        []string{"AI", "Health"},
		LikedBy:     []string{},
		Team:        []models.UserSnapshot{alex.Snapshot()},
		LookingFor:  []string{},
		CreatedAt:   models.MillisOf(fixedNow.Add(-time.Hour)),
		Comments: []models.Comment{
			comment("A", maria, 1, nil),
			comment("B", alex, 2, parent("A")),
			comment("C", maria, 3, parent("B")),
		},
	}
	web3 := &models.Idea{
		ID:         "idea-web3",
		Title:      "Decentralized Supply Ledger",
		Summary:    "Provenance on a shared ledger",
		Market:     "Logistics",
		Author:     maria.Snapshot(),
		Tags:       []string{"Web3"},
		LikedBy:    []string{"u3"},
		Likes:      1,
		Team:       []models.UserSnapshot{maria.Snapshot(), alex.Snapshot()},
		LookingFor: []string{},
		CreatedAt:  models.MillisOf(fixedNow.Add(-2 * time.Hour)),
		Comments:   []models.Comment{comment("A", alex, 5, nil)},
		Shares:     4,
	}
	solo := &models.Idea{
		ID:                 "idea-solo",
		Title:              "Urban Vertical Farms",
		Summary:            "Greens grown downtown",
		Market:             models.DefaultMarket,
		Author:             sam.Snapshot(),
		Tags:               []string{"AgTech"},
		LikedBy:            []string{},
		Team:               []models.UserSnapshot{sam.Snapshot()},
		LookingFor:         []string{"CTO"},
		CreatedAt:          models.MillisOf(fixedNow.Add(-3 * time.Hour)),
		Comments:           []models.Comment{},
		IsSeekingCoFounder: true,
		Views:              40,
	}

	users := repository.NewMemoryUserRepository([]*models.User{alex, maria, sam, pending})
	ideas := repository.NewMemoryIdeaRepository([]*models.Idea{ai, web3, solo})
	events := &recordingPublisher{}
	store := NewStore(ideas, events,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithSearchDebounce(10*time.Millisecond),
	)
	t.Cleanup(store.Shutdown)

	return &fixture{
		users: users, ideas: ideas, store: store, events: events,
		alex: alex, maria: maria, sam: sam, pending: pending,
		aiIdea: ai.ID, web3Idea: web3.ID, soloIdea: solo.ID,
	}
}

func (f *fixture) idea(t *testing.T, id string) *models.Idea {
	t.Helper()
	idea, err := f.ideas.GetByID(context.Background(), id)
	require.NoError(t, err)
	return idea
}

func commentIDs(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	repository.UserRepository
	getByIDFn func(context.Context, string) (*models.User, error)
	listFn    func(context.Context) ([]*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) List(ctx context.Context) ([]*models.User, error) {
	return s.listFn(ctx)
}

// ideaRepoStub is a stub for repository.IdeaRepository.
type ideaRepoStub struct {
	repository.IdeaRepository
	listFn   func(context.Context) ([]*models.Idea, error)
	updateFn func(context.Context, string, repository.IdeaMutator) (*models.Idea, error)
}

func (s *ideaRepoStub) List(ctx context.Context) ([]*models.Idea, error) {
	return s.listFn(ctx)
}

func (s *ideaRepoStub) Update(ctx context.Context, id string, fn repository.IdeaMutator) (*models.Idea, error) {
	return s.updateFn(ctx, id, fn)
}

func (s *ideaRepoStub) Version() uint64 { return 0 }
