package models

import "slices"

// MediaKind is the type of media attached to a post.
type MediaKind string

const (
	// MediaImage marks an image post.
	MediaImage MediaKind = "image"
	// MediaVideo marks a video post.
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVideo
}

// ProductTag anchors a product to a point on the post media. X and Y are
// percentages of the media's rendered width and height.
type ProductTag struct {
	ID          string  `json:"id"`
	ProductName string  `json:"productName"`
	Price       string  `json:"price,omitempty"`
	Link        string  `json:"link,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Post is a feed entry. Username and UserAvatar are captured when the post
// is created and do not follow later profile edits.
type Post struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	Username   string       `json:"username"`
	UserAvatar string       `json:"userAvatar"`
	Caption    string       `json:"caption"`
	MediaURL   string       `json:"mediaUrl"`
	MediaType  MediaKind    `json:"mediaType"`
	Tags       []ProductTag `json:"tags"`
	Likes      []string     `json:"likes"`
	CreatedAt  int64        `json:"createdAt"`
}

// Clone returns a deep copy of the post.
func (p Post) Clone() Post {
	p.Tags = slices.Clone(p.Tags)
	p.Likes = slices.Clone(p.Likes)
	return p
}

// LikedBy reports whether userID has liked the post.
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// LikeCount returns the number of likers.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}

// Tag returns the tag with the given id, or nil.
func (p *Post) Tag(id string) *ProductTag {
	for i := range p.Tags {
		if p.Tags[i].ID == id {
			return &p.Tags[i]
		}
	}
	return nil
}
