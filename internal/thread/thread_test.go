package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideon/internal/models"
)

func strPtr(s string) *string { return &s }

func comment(id string, parent *string, createdAt int64) models.Comment {
	return models.Comment{ID: id, ParentID: parent, CreatedAt: models.Millis(createdAt), LikedBy: []string{}}
}

func ids(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	comments := []models.Comment{
		comment("a", nil, 100),
		comment("b", nil, 300),
		comment("r2", strPtr("a"), 250),
		comment("r1", strPtr("a"), 150),
		comment("c", nil, 200),
		comment("rr", strPtr("r1"), 160),
	}

	idx := BuildIndex(comments)

	t.Run("top level newest first", func(t *testing.T) {
		assert.Equal(t, []string{"b", "c", "a"}, ids(idx.TopLevel))
	})

	t.Run("replies oldest first", func(t *testing.T) {
		assert.Equal(t, []string{"r1", "r2"}, ids(idx.RepliesTo("a")))
		assert.Equal(t, []string{"rr"}, ids(idx.RepliesTo("r1")))
		assert.Empty(t, idx.RepliesTo("b"))
	})

	t.Run("reconstructs the exact set", func(t *testing.T) {
		assert.Equal(t, len(comments), idx.Size())
		var visited []string
		idx.Walk(func(c models.Comment, _ int) { visited = append(visited, c.ID) })
		assert.ElementsMatch(t, ids(comments), visited)
	})

	t.Run("walk order and depth", func(t *testing.T) {
		var order []string
		depths := map[string]int{}
		idx.Walk(func(c models.Comment, depth int) {
			order = append(order, c.ID)
			depths[c.ID] = depth
		})
		assert.Equal(t, []string{"b", "c", "a", "r1", "rr", "r2"}, order)
		assert.Equal(t, 2, depths["rr"])
	})
}

func TestWalkToleratesBrokenParents(t *testing.T) {
	t.Parallel()

	comments := []models.Comment{
		comment("top", nil, 1),
		comment("orphan", strPtr("missing"), 2),
		comment("x", strPtr("y"), 3),
		comment("y", strPtr("x"), 4),
	}
	idx := BuildIndex(comments)

	var visited []string
	require.NotPanics(t, func() {
		idx.Walk(func(c models.Comment, _ int) { visited = append(visited, c.ID) })
	})
	assert.Equal(t, []string{"top"}, visited)
	assert.Len(t, idx.Tree(), 1)
}

func TestTree(t *testing.T) {
	t.Parallel()

	idx := BuildIndex([]models.Comment{
		comment("a", nil, 1),
		comment("b", strPtr("a"), 2),
		comment("c", strPtr("b"), 3),
	})
	tree := idx.Tree()
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	require.Len(t, tree[0].Replies[0].Replies, 1)
	assert.Equal(t, "c", tree[0].Replies[0].Replies[0].ID)
	assert.Equal(t, 2, tree[0].Replies[0].Replies[0].Depth)
}

func TestRemoveSubtree(t *testing.T) {
	t.Parallel()

	chain := []models.Comment{
		comment("A", nil, 1),
		comment("B", strPtr("A"), 2),
		comment("C", strPtr("B"), 3),
	}

	tests := []struct {
		name        string
		comments    []models.Comment
		root        string
		wantKept    []string
		wantRemoved []string
	}{
		{name: "delete root of chain", comments: chain, root: "A", wantKept: []string{}, wantRemoved: []string{"A", "B", "C"}},
		{name: "delete middle of chain", comments: chain, root: "B", wantKept: []string{"A"}, wantRemoved: []string{"B", "C"}},
		{name: "delete leaf", comments: chain, root: "C", wantKept: []string{"A", "B"}, wantRemoved: []string{"C"}},
		{name: "unknown id is a no-op", comments: chain, root: "Z", wantKept: []string{"A", "B", "C"}, wantRemoved: nil},
		{
			name: "children listed before parents",
			comments: []models.Comment{
				comment("D", strPtr("C"), 4),
				comment("C", strPtr("B"), 3),
				comment("B", strPtr("A"), 2),
				comment("A", nil, 1),
				comment("E", nil, 5),
			},
			root:        "A",
			wantKept:    []string{"E"},
			wantRemoved: []string{"D", "C", "B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, removed := RemoveSubtree(tt.comments, tt.root)
			assert.Equal(t, tt.wantKept, ids(kept))
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestClosureIncludesRoot(t *testing.T) {
	t.Parallel()

	closure := Closure(nil, "solo")
	assert.Len(t, closure, 1)
	assert.Contains(t, closure, "solo")
}

func TestToggleMember(t *testing.T) {
	t.Parallel()

	original := []string{"u2", "u3"}

	liked, member := ToggleMember(original, "u1")
	assert.True(t, member)
	assert.Equal(t, []string{"u2", "u3", "u1"}, liked)
	assert.Equal(t, []string{"u2", "u3"}, original)

	unliked, member := ToggleMember(liked, "u1")
	assert.False(t, member)
	assert.Equal(t, original, unliked)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "b", "a", "b"}))
	assert.Empty(t, Dedupe(nil))
}
