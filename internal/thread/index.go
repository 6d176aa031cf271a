// Package thread implements the threaded comment engine: the parent/children
// index, the reply walk, cascading delete and like toggling.
package thread

import (
	"sort"

	"ideon/internal/models"
)

// MaxDepth bounds Walk so a corrupted parent chain can never recurse forever.
const MaxDepth = 64

// Index is the derived view of a flat comment list.
type Index struct {
	// TopLevel holds comments without a parent, newest first.
	TopLevel []models.Comment
	// Replies maps a parent id to its direct replies, oldest first.
	Replies map[string][]models.Comment
}

// BuildIndex partitions comments into top-level comments and a parent id to
// children map. Top-level comments sort newest first while replies sort
// oldest first so conversations read top to bottom.
func BuildIndex(comments []models.Comment) Index {
	idx := Index{
		TopLevel: make([]models.Comment, 0, len(comments)),
		Replies:  make(map[string][]models.Comment),
	}
	for _, c := range comments {
		if c.ParentID == nil {
			idx.TopLevel = append(idx.TopLevel, c)
			continue
		}
		idx.Replies[*c.ParentID] = append(idx.Replies[*c.ParentID], c)
	}

	sort.SliceStable(idx.TopLevel, func(i, j int) bool {
		return idx.TopLevel[i].CreatedAt > idx.TopLevel[j].CreatedAt
	})
	for parent := range idx.Replies {
		replies := idx.Replies[parent]
		sort.SliceStable(replies, func(i, j int) bool {
			return replies[i].CreatedAt < replies[j].CreatedAt
		})
	}
	return idx
}

// RepliesTo returns the direct replies of commentID.
func (idx Index) RepliesTo(commentID string) []models.Comment {
	return idx.Replies[commentID]
}

// Size counts every comment held by the index, reachable or not.
func (idx Index) Size() int {
	n := len(idx.TopLevel)
	for _, r := range idx.Replies {
		n += len(r)
	}
	return n
}

// Visitor is called once per comment reached by Walk.
type Visitor func(c models.Comment, depth int)

// Walk visits top-level comments and their replies depth first, in display
// order. Comments whose parent chain never reaches a top-level comment are
// not visited. A comment is never visited twice and recursion stops at
// MaxDepth.
func (idx Index) Walk(visit Visitor) {
	seen := make(map[string]struct{}, idx.Size())
	for _, c := range idx.TopLevel {
		idx.walk(c, 0, seen, visit)
	}
}

func (idx Index) walk(c models.Comment, depth int, seen map[string]struct{}, visit Visitor) {
	if depth > MaxDepth {
		return
	}
	if _, ok := seen[c.ID]; ok {
		return
	}
	seen[c.ID] = struct{}{}
	visit(c, depth)
	for _, r := range idx.Replies[c.ID] {
		idx.walk(r, depth+1, seen, visit)
	}
}

// Node is a comment with its nested replies, the shape rendered by clients.
type Node struct {
	models.Comment
	Depth   int     `json:"depth"`
	Replies []*Node `json:"replies"`
}

// Tree materializes the walk as nested nodes.
func (idx Index) Tree() []*Node {
	seen := make(map[string]struct{}, idx.Size())
	out := make([]*Node, 0, len(idx.TopLevel))
	for _, c := range idx.TopLevel {
		if n := idx.node(c, 0, seen); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (idx Index) node(c models.Comment, depth int, seen map[string]struct{}) *Node {
	if depth > MaxDepth {
		return nil
	}
	if _, ok := seen[c.ID]; ok {
		return nil
	}
	seen[c.ID] = struct{}{}
	n := &Node{Comment: c, Depth: depth, Replies: []*Node{}}
	for _, r := range idx.Replies[c.ID] {
		if child := idx.node(r, depth+1, seen); child != nil {
			n.Replies = append(n.Replies, child)
		}
	}
	return n
}
