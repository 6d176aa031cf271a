package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideon/internal/models"
	"ideon/internal/thread"
)

func TestLoadDataset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ds, err := Load(now)
	require.NoError(t, err)

	require.Len(t, ds.Users, 4)
	require.Len(t, ds.Ideas, 3)

	for _, u := range ds.Users {
		assert.True(t, u.EmailVerified, u.ID)
		assert.Equal(t, "hashed_321drowssap", u.Password)
	}

	idea1 := ds.Ideas[0]
	assert.Equal(t, "AI-Powered Personal Nutritionist", idea1.Title)
	assert.Equal(t, "u1", idea1.Author.ID)
	assert.Equal(t, "Alex Johnson", idea1.Author.Name)
	assert.Equal(t, []string{"u2", "u3", "u4"}, idea1.LikedBy)
	assert.Equal(t, 3, idea1.Likes)
	assert.Equal(t, now.Add(-72*time.Hour).UnixMilli(), int64(idea1.CreatedAt))
	require.Len(t, idea1.Team, 2)
	assert.Equal(t, "u4", idea1.Team[1].ID)

	idx := thread.BuildIndex(idea1.Comments)
	assert.Len(t, idx.TopLevel, 2)
	assert.Len(t, idx.RepliesTo("c2"), 2)

	idea2 := ds.Ideas[1]
	require.NotNil(t, idea2.Price)
	assert.Equal(t, 50000.0, *idea2.Price)
	assert.True(t, idea2.IsForSale)

	for _, idea := range ds.Ideas {
		assert.Equal(t, len(idea.LikedBy), idea.Likes, idea.ID)
		for _, c := range idea.Comments {
			assert.Equal(t, len(c.LikedBy), c.Likes, c.ID)
		}
	}
}

func TestParseRejectsUnknownUser(t *testing.T) {
	t.Parallel()

	raw := []byte("users: []\nideas:\n  - id: x\n    author: ghost\n")
	_, err := Parse(raw, time.Now())
	assert.ErrorContains(t, err, "ghost")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("users: [unterminated"), time.Now())
	assert.Error(t, err)
}

func TestFactoryPopulate(t *testing.T) {
	t.Parallel()

	f := NewFactory(42, 10)
	users := []*models.User{f.User(), f.User(), f.User()}
	ideas := f.Populate(users, 12)
	require.Len(t, ideas, 12)

	for _, idea := range ideas {
		assert.NotEmpty(t, idea.Title)
		assert.Equal(t, len(idea.LikedBy), idea.Likes)
		assert.NotContains(t, idea.LikedBy, idea.Author.ID)
		require.Len(t, idea.Team, 1)
		assert.Equal(t, idea.Author.ID, idea.Team[0].ID)

		idx := thread.BuildIndex(idea.Comments)
		visited := 0
		idx.Walk(func(models.Comment, int) { visited++ })
		assert.Equal(t, len(idea.Comments), visited, "every generated reply hangs off an earlier comment")
	}

	assert.Nil(t, f.Populate(nil, 3))
}
