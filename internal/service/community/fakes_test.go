package community

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePostRepo is an in-memory PostRepository.
type fakePostRepo struct {
	posts  map[string]*models.Post
	nextID int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*models.Post)}
}

func (r *fakePostRepo) Create(_ context.Context, post *models.Post) error {
	r.nextID++
	post.ID = fmt.Sprintf("post-%d", r.nextID)
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	cp := *post
	return &cp, nil
}

func (r *fakePostRepo) List(_ context.Context, filter repositories.PostFilter) ([]models.Post, int, error) {
	var matched []models.Post
	for _, post := range r.posts {
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(post.Title), q) &&
				!strings.Contains(strings.ToLower(post.Content), q) {
				continue
			}
		}
		if len(filter.Tags) > 0 {
			hit := false
			for _, want := range filter.Tags {
				for _, have := range post.Tags {
					if want == have {
						hit = true
					}
				}
			}
			if !hit {
				continue
			}
		}
		matched = append(matched, *post)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		switch filter.Sort {
		case repositories.SortUpvotes:
			if a.Upvotes != b.Upvotes {
				return a.Upvotes > b.Upvotes
			}
		case repositories.SortViews:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		case repositories.SortActive:
			return a.LastActivity.After(b.LastActivity)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *fakePostRepo) Update(_ context.Context, post *models.Post) error {
	if _, ok := r.posts[post.ID]; !ok {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) IncrementViews(_ context.Context, id string) error {
	post, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	post.Views++
	return nil
}

func (r *fakePostRepo) AdjustUpvotes(_ context.Context, id string, delta int) (int, error) {
	post, ok := r.posts[id]
	if !ok {
		return 0, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	post.Upvotes += delta
	if post.Upvotes < 0 {
		post.Upvotes = 0
	}
	return post.Upvotes, nil
}

func (r *fakePostRepo) SetPinned(_ context.Context, id string, pinned bool, updatedAt time.Time) error {
	post, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	post.IsPinned = pinned
	post.UpdatedAt = updatedAt
	return nil
}

func (r *fakePostRepo) RecordCommentActivity(_ context.Context, id string, at time.Time) error {
	post, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	post.CommentCount++
	post.LastActivity = at
	return nil
}

func (r *fakePostRepo) AllTags(_ context.Context) ([][]string, error) {
	var all [][]string
	for _, post := range r.posts {
		all = append(all, post.Tags)
	}
	return all, nil
}

// fakeCommentRepo is an in-memory CommentRepository.
type fakeCommentRepo struct {
	comments map[string]*models.Comment
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*models.Comment)}
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *models.Comment) error {
	r.nextID++
	comment.ID = fmt.Sprintf("comment-%d", r.nextID)
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*models.Comment, error) {
	comment, ok := r.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	cp := *comment
	return &cp, nil
}

func (r *fakeCommentRepo) list(match func(*models.Comment) bool) []models.Comment {
	var out []models.Comment
	for _, c := range r.comments {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeCommentRepo) ListRoots(_ context.Context, postID string) ([]models.Comment, error) {
	return r.list(func(c *models.Comment) bool { return c.PostID == postID && c.ParentID == nil }), nil
}

func (r *fakeCommentRepo) ListReplies(_ context.Context, parentID string) ([]models.Comment, error) {
	return r.list(func(c *models.Comment) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (r *fakeCommentRepo) CountReplies(_ context.Context, parentIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, id := range parentIDs {
		for _, c := range r.comments {
			if c.ParentID != nil && *c.ParentID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment *models.Comment) error {
	if _, ok := r.comments[comment.ID]; !ok {
		return fmt.Errorf("comment %s: %w", comment.ID, domain.ErrNotFound)
	}
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) SoftDelete(_ context.Context, id string, byAdmin bool, at time.Time) error {
	comment, ok := r.comments[id]
	if !ok {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	comment.IsDeleted = true
	comment.DeletedByAdmin = byAdmin
	comment.UpdatedAt = at
	return nil
}

func (r *fakeCommentRepo) SoftDeleteReplies(_ context.Context, parentID string, byAdmin bool, at time.Time) (int, error) {
	affected := 0
	for _, c := range r.comments {
		if c.ParentID != nil && *c.ParentID == parentID && !c.IsDeleted {
			c.IsDeleted = true
			c.DeletedByAdmin = byAdmin
			c.UpdatedAt = at
			affected++
		}
	}
	return affected, nil
}

func (r *fakeCommentRepo) AdjustUpvotes(_ context.Context, id string, delta int) (int, error) {
	comment, ok := r.comments[id]
	if !ok {
		return 0, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	comment.Upvotes += delta
	if comment.Upvotes < 0 {
		comment.Upvotes = 0
	}
	return comment.Upvotes, nil
}

func (r *fakeCommentRepo) IDsByPost(_ context.Context, postID string) ([]string, error) {
	var ids []string
	for id, c := range r.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeCommentRepo) DeleteByPost(_ context.Context, postID string) error {
	for id, c := range r.comments {
		if c.PostID == postID {
			delete(r.comments, id)
		}
	}
	return nil
}

// fakeUpvoteRepo is an in-memory UpvoteRepository keyed by the triple.
type fakeUpvoteRepo struct {
	votes       map[string]bool
	log         []string
	lastCreated models.Upvote
}

func newFakeUpvoteRepo() *fakeUpvoteRepo {
	return &fakeUpvoteRepo{votes: make(map[string]bool)}
}

func voteKey(userID, targetType, targetID string) string {
	return userID + "/" + targetType + "/" + targetID
}

func (r *fakeUpvoteRepo) Create(_ context.Context, vote *models.Upvote) error {
	key := voteKey(vote.UserID, vote.TargetType, vote.TargetID)
	if r.votes[key] {
		return fmt.Errorf("vote exists: %w", domain.ErrConflict)
	}
	r.votes[key] = true
	r.lastCreated = *vote
	return nil
}

func (r *fakeUpvoteRepo) Delete(_ context.Context, userID, targetType, targetID string) (bool, error) {
	key := voteKey(userID, targetType, targetID)
	if !r.votes[key] {
		return false, nil
	}
	delete(r.votes, key)
	return true, nil
}

func (r *fakeUpvoteRepo) Exists(_ context.Context, userID, targetType, targetID string) (bool, error) {
	return r.votes[voteKey(userID, targetType, targetID)], nil
}

func (r *fakeUpvoteRepo) ExistsBatch(_ context.Context, userID, targetType string, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range targetIDs {
		if r.votes[voteKey(userID, targetType, id)] {
			out[id] = true
		}
	}
	return out, nil
}

func (r *fakeUpvoteRepo) DeleteByTargets(_ context.Context, targetType string, targetIDs []string) error {
	r.log = append(r.log, "delete-votes:"+targetType)
	for _, id := range targetIDs {
		for key := range r.votes {
			if strings.HasSuffix(key, "/"+targetType+"/"+id) {
				delete(r.votes, key)
			}
		}
	}
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[string]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User)
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

// fakeTxManager runs the function directly.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
