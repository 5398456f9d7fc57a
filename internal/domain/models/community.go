package models

import "time"

// Upvote target types.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// Post is a community board entry. Excerpt is derived from Content at
// every write; UpvoteCount/Views/CommentCount are best-effort cached
// counters, not ledgers.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"-"`
	Author       Author    `json:"author"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Excerpt      string    `json:"excerpt"`
	Tags         []string  `json:"tags"`
	Upvotes      int       `json:"upvotes"`
	Views        int       `json:"views"`
	CommentCount int       `json:"comment_count"`
	IsPinned     bool      `json:"is_pinned"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// UserHasUpvoted is filled per request for the calling user.
	UserHasUpvoted bool `json:"user_has_upvoted"`
}

// Comment belongs to a post. Depth is 0 for a root comment and 1 for a
// reply; deeper nesting is rejected at create time. Soft-deleted
// comments keep their place in the thread but never expose content.
type Comment struct {
	ID             string    `json:"id"`
	PostID         string    `json:"post_id"`
	AuthorID       string    `json:"-"`
	Author         Author    `json:"author"`
	Content        string    `json:"content"`
	Upvotes        int       `json:"upvotes"`
	ParentID       *string   `json:"parent_comment_id"`
	Depth          int       `json:"depth"`
	IsDeleted      bool      `json:"is_deleted"`
	DeletedByAdmin bool      `json:"deleted_by_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Per-request annotations.
	UserHasUpvoted bool `json:"user_has_upvoted"`
	ReplyCount     int  `json:"reply_count"`
}

// IsRoot reports whether the comment is attached directly to its post.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Upvote records at-most-one vote per (user, target) pair. Existence of
// the row encodes "voted"; rows are created and deleted, never updated.
type Upvote struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TagCount is one row of the popular-tags histogram.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
