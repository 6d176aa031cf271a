package models

// Comment belongs to exactly one idea. ParentID is nil for top-level comments
// and otherwise names another comment of the same idea.
type Comment struct {
	ID        string       `json:"id"`
	User      UserSnapshot `json:"user"`
	Text      string       `json:"text"`
	CreatedAt Millis       `json:"createdAt"`
	Likes     int          `json:"likes"`
	LikedBy   []string     `json:"likedBy"`
	ParentID  *string      `json:"parentId"`
}

// Clone returns a deep copy of c.
func (c Comment) Clone() Comment {
	out := c
	out.LikedBy = append([]string(nil), c.LikedBy...)
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	return out
}

// IsReply reports whether c has a parent.
func (c Comment) IsReply() bool {
	return c.ParentID != nil
}
