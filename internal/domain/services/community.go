package services

import (
	"context"

	"kakehashi/internal/domain/models"
)

// CreatePostRequest carries the fields for a new post.
type CreatePostRequest struct {
	AuthorID string   `json:"-"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

// UpdatePostRequest is a partial update; nil fields are left unchanged.
type UpdatePostRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// ListPostsRequest narrows, orders, and pages a post listing.
type ListPostsRequest struct {
	Query  string
	Tags   []string
	Sort   string
	Page   int
	Limit  int
	UserID string // calling user, for vote-state resolution
}

// PostPage is one page of post summaries.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

// UpvoteResult reports the state after a vote toggle.
type UpvoteResult struct {
	Success        bool `json:"success"`
	Upvotes        int  `json:"upvotes"`
	UserHasUpvoted bool `json:"user_has_upvoted"`
}

// PostService is the community post engine.
type PostService interface {
	Create(ctx context.Context, req *CreatePostRequest) (*models.Post, error)
	// List returns one page; pinned posts always precede unpinned ones.
	List(ctx context.Context, req *ListPostsRequest) (*PostPage, error)
	// Get returns full post detail and unconditionally increments the view
	// counter, including for the author's own and repeated reads.
	Get(ctx context.Context, id, userID string) (*models.Post, error)
	Update(ctx context.Context, id, userID string, req *UpdatePostRequest) (*models.Post, error)
	// Delete removes the post and cascades to its comments and every vote
	// against the post or its comments. Children are removed before the
	// post itself; there is no compensating rollback on partial failure.
	Delete(ctx context.Context, id, userID string) error
	ToggleUpvote(ctx context.Context, id, userID string) (*UpvoteResult, error)
	Pin(ctx context.Context, id, userID string, pinned bool) (*models.Post, error)
	// PopularTags computes the tag histogram by scanning all posts
	// in process. Known scalability ceiling; counting is case-exact over
	// the already-lowercased stored tags.
	PopularTags(ctx context.Context, limit int) ([]models.TagCount, error)
}

// CreateCommentRequest carries the fields for a new comment or reply.
type CreateCommentRequest struct {
	PostID   string  `json:"-"`
	AuthorID string  `json:"-"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_comment_id"`
}

// CommentList wraps a flat list of comments.
type CommentList struct {
	Comments []models.Comment `json:"comments"`
	Total    int              `json:"total"`
}

// CommentService is the two-level comment tree engine.
type CommentService interface {
	Create(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error)
	// ListRoots returns the depth-0 comments of a post, oldest first, with
	// live reply counts; replies are fetched on demand via ListReplies.
	ListRoots(ctx context.Context, postID, userID string) (*CommentList, error)
	ListReplies(ctx context.Context, parentID, userID string) (*CommentList, error)
	Update(ctx context.Context, id, userID, content string) (*models.Comment, error)
	// SoftDelete tombstones a comment. Deleting a root also tombstones its
	// non-deleted replies with the same deleted_by_admin flag; the parent
	// post's comment count is deliberately left untouched.
	SoftDelete(ctx context.Context, id, userID string) error
	ToggleUpvote(ctx context.Context, id, userID string) (*UpvoteResult, error)
}
