package repositories

import (
	"context"
	"time"

	"kakehashi/internal/domain/models"
)

// Post sort modes. Pinned posts always sort ahead of unpinned ones;
// the requested mode orders within each pin group.
const (
	SortNewest  = "newest"
	SortUpvotes = "upvotes"
	SortViews   = "views"
	SortActive  = "active"
)

// PostFilter narrows and orders a post listing.
type PostFilter struct {
	Query  string   // case-insensitive substring match over title and content
	Tags   []string // match posts whose tag set intersects these
	Sort   string   // one of the Sort* constants; falls back to SortNewest
	Offset int
	Limit  int
}

// PostRepository persists community posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns one page of posts plus the total match count.
	List(ctx context.Context, filter PostFilter) ([]models.Post, int, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error

	// IncrementViews bumps the view counter by one; best-effort, not a ledger.
	IncrementViews(ctx context.Context, id string) error
	// AdjustUpvotes applies delta to the cached upvote counter, floored at
	// zero, and returns the resulting count.
	AdjustUpvotes(ctx context.Context, id string, delta int) (int, error)
	SetPinned(ctx context.Context, id string, pinned bool, updatedAt time.Time) error
	// RecordCommentActivity increments the cached comment count and bumps
	// last_activity. Runs inside the comment-insert transaction.
	RecordCommentActivity(ctx context.Context, id string, at time.Time) error
	// AllTags returns the tag arrays of every post, for the in-process
	// popular-tags histogram.
	AllTags(ctx context.Context) ([][]string, error)
}

// CommentRepository persists the two-level comment tree.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListRoots returns all depth-0 comments of a post, oldest first.
	ListRoots(ctx context.Context, postID string) ([]models.Comment, error)
	// ListReplies returns all depth-1 comments under a parent, oldest first.
	ListReplies(ctx context.Context, parentID string) ([]models.Comment, error)
	// CountReplies batch-counts live reply totals per parent ID.
	CountReplies(ctx context.Context, parentIDs []string) (map[string]int, error)
	Update(ctx context.Context, comment *models.Comment) error
	// SoftDelete tombstones one comment; fails with domain.ErrNotFound if absent.
	SoftDelete(ctx context.Context, id string, byAdmin bool, at time.Time) error
	// SoftDeleteReplies tombstones every non-deleted reply under a root,
	// inheriting byAdmin, and returns how many were affected.
	SoftDeleteReplies(ctx context.Context, parentID string, byAdmin bool, at time.Time) (int, error)
	AdjustUpvotes(ctx context.Context, id string, delta int) (int, error)
	// IDsByPost lists every comment ID of a post (for the delete cascade).
	IDsByPost(ctx context.Context, postID string) ([]string, error)
	// DeleteByPost hard-deletes all comments of a post (post delete cascade).
	DeleteByPost(ctx context.Context, postID string) error
}

// UpvoteRepository is the vote ledger: at most one row per
// (user, target type, target) triple, enforced by a storage-layer
// unique index. Rows are inserted and deleted, never updated.
type UpvoteRepository interface {
	// Create inserts a vote; returns domain.ErrConflict if the triple exists.
	Create(ctx context.Context, vote *models.Upvote) error
	// Delete removes a vote; reports whether a row was removed.
	Delete(ctx context.Context, userID, targetType, targetID string) (bool, error)
	Exists(ctx context.Context, userID, targetType, targetID string) (bool, error)
	// ExistsBatch resolves the caller's vote state for a page of targets in
	// one query; the result set contains the target IDs that have a vote.
	ExistsBatch(ctx context.Context, userID, targetType string, targetIDs []string) (map[string]bool, error)
	// DeleteByTargets removes every vote against the given targets
	// (post delete cascade).
	DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) error
}
