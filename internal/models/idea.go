package models

// Default values filled in when older stored ideas lack a field.
const (
	DefaultMarket = "Not specified"
)

// Idea is a startup idea with its comment list embedded.
type Idea struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Summary            string         `json:"summary"`
	Description        string         `json:"description"`
	Market             string         `json:"market"`
	Author             UserSnapshot   `json:"author"`
	Tags               []string       `json:"tags"`
	Likes              int            `json:"likes"`
	LikedBy            []string       `json:"likedBy"`
	Comments           []Comment      `json:"comments"`
	IsForSale          bool           `json:"isForSale"`
	Price              *float64       `json:"price,omitempty"`
	Team               []UserSnapshot `json:"team"`
	LookingFor         []string       `json:"lookingFor"`
	CreatedAt          Millis         `json:"createdAt"`
	IsSeekingCoFounder bool           `json:"isSeekingCoFounder"`
	Views              int            `json:"views"`
	Shares             int            `json:"shares"`
}

// Clone returns a deep copy so open-view projections never alias the
// canonical collection.
func (i *Idea) Clone() *Idea {
	if i == nil {
		return nil
	}
	c := *i
	c.Tags = append([]string(nil), i.Tags...)
	c.LikedBy = append([]string(nil), i.LikedBy...)
	c.LookingFor = append([]string(nil), i.LookingFor...)
	c.Team = append([]UserSnapshot(nil), i.Team...)
	if i.Price != nil {
		p := *i.Price
		c.Price = &p
	}
	c.Comments = make([]Comment, len(i.Comments))
	for n := range i.Comments {
		c.Comments[n] = i.Comments[n].Clone()
	}
	return &c
}

// CommentIndex returns the position of the comment with the given id, or -1.
func (i *Idea) CommentIndex(commentID string) int {
	for n := range i.Comments {
		if i.Comments[n].ID == commentID {
			return n
		}
	}
	return -1
}

// IdeaDraft carries the user-entered fields of a new idea.
type IdeaDraft struct {
	Title              string   `json:"title"`
	Summary            string   `json:"summary"`
	Description        string   `json:"description"`
	Market             string   `json:"market"`
	Tags               []string `json:"tags"`
	IsForSale          bool     `json:"isForSale"`
	Price              *float64 `json:"price,omitempty"`
	LookingFor         []string `json:"lookingFor"`
	IsSeekingCoFounder bool     `json:"isSeekingCoFounder"`
}
