// Package community implements the board engines: posts, the two-level
// comment tree, and vote toggles.
package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"kakehashi/internal/config"
	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/domain/services"
)

// postService implements the PostService interface
type postService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	upvotes  repositories.UpvoteRepository
	users    repositories.UserRepository
	logger   *slog.Logger
}

// NewPostService creates a new post service
func NewPostService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	upvotes repositories.UpvoteRepository,
	users repositories.UserRepository,
	logger *slog.Logger,
) services.PostService {
	return &postService{
		posts:    posts,
		comments: comments,
		upvotes:  upvotes,
		users:    users,
		logger:   logger,
	}
}

func validatePostFields(title, content *string, tags *[]string) error {
	var rules []*validation.FieldRules

	// Tags is held as a plain slice; Each cannot iterate through a
	// pointer field.
	wrapper := struct {
		Title   *string
		Content *string
		Tags    []string
	}{Title: title, Content: content}

	if title != nil {
		rules = append(rules, validation.Field(&wrapper.Title,
			validation.Required,
			validation.Length(1, config.MaxPostTitleLength),
		))
	}
	if content != nil {
		rules = append(rules, validation.Field(&wrapper.Content,
			validation.Required,
			validation.Length(1, config.MaxPostContentLength),
		))
	}
	if tags != nil {
		wrapper.Tags = *tags
		rules = append(rules, validation.Field(&wrapper.Tags,
			validation.Length(0, config.MaxPostTags),
			validation.Each(validation.Length(1, config.MaxTagLength)),
		))
	}

	return validation.ValidateStruct(&wrapper, rules...)
}

// Create creates a new post with a computed excerpt
func (s *postService) Create(ctx context.Context, req *services.CreatePostRequest) (*models.Post, error) {
	if err := validatePostFields(&req.Title, &req.Content, &req.Tags); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	post := &models.Post{
		AuthorID:     req.AuthorID,
		Title:        req.Title,
		Content:      req.Content,
		Excerpt:      makeExcerpt(req.Content),
		Tags:         normalizeTags(req.Tags),
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	post.Author = resolveAuthor(ctx, s.users, req.AuthorID)

	s.logger.Info("post created",
		"id", post.ID,
		"author_id", req.AuthorID,
		"tags", post.Tags,
	)

	return post, nil
}

// List returns one page of posts; pinned posts always precede unpinned
// ones regardless of the requested sort.
func (s *postService) List(ctx context.Context, req *services.ListPostsRequest) (*services.PostPage, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = config.DefaultPageLimit
	}
	if limit > config.MaxPageLimit {
		limit = config.MaxPageLimit
	}

	filter := repositories.PostFilter{
		Query:  req.Query,
		Tags:   normalizeTags(req.Tags),
		Sort:   req.Sort,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(ctx, posts, req.UserID); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &services.PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// annotate fills author identities and the caller's vote state for a
// page of posts, one batch query each.
func (s *postService) annotate(ctx context.Context, posts []models.Post, userID string) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]string, len(posts))
	authorIDs := make([]string, len(posts))
	for i := range posts {
		postIDs[i] = posts[i].ID
		authorIDs[i] = posts[i].AuthorID
	}

	authors, err := resolveAuthors(ctx, s.users, authorIDs)
	if err != nil {
		return err
	}
	voted, err := s.upvotes.ExistsBatch(ctx, userID, models.TargetPost, postIDs)
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].Author = authors[posts[i].AuthorID]
		posts[i].UserHasUpvoted = voted[posts[i].ID]
	}

	return nil
}

// Get returns full post detail. Every read counts as a view, including
// the author's own and repeated reads.
func (s *postService) Get(ctx context.Context, id, userID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.posts.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	post.Views++

	return s.decorate(ctx, post, userID)
}

// decorate fills the author identity and caller vote state of one post.
func (s *postService) decorate(ctx context.Context, post *models.Post, userID string) (*models.Post, error) {
	post.Author = resolveAuthor(ctx, s.users, post.AuthorID)

	voted, err := s.upvotes.Exists(ctx, userID, models.TargetPost, post.ID)
	if err != nil {
		return nil, err
	}
	post.UserHasUpvoted = voted

	return post, nil
}

// Update applies a partial update; only the author may edit.
func (s *postService) Update(ctx context.Context, id, userID string, req *services.UpdatePostRequest) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own posts", domain.ErrForbidden)
	}

	if err := validatePostFields(req.Title, req.Content, req.Tags); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
		post.Excerpt = makeExcerpt(post.Content)
	}
	if req.Tags != nil {
		post.Tags = normalizeTags(*req.Tags)
	}
	post.UpdatedAt = time.Now()

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	return s.decorate(ctx, post, userID)
}

// Delete removes a post and everything hanging off it: votes against
// its comments, votes against the post, the comments, then the post.
// Children go before parents; there is no compensating rollback if a
// later step fails.
func (s *postService) Delete(ctx context.Context, id, userID string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return fmt.Errorf("%w: you can only delete your own posts", domain.ErrForbidden)
	}

	commentIDs, err := s.comments.IDsByPost(ctx, id)
	if err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := s.upvotes.DeleteByTargets(ctx, models.TargetComment, commentIDs); err != nil {
			return err
		}
	}
	if err := s.upvotes.DeleteByTargets(ctx, models.TargetPost, []string{id}); err != nil {
		return err
	}
	if err := s.comments.DeleteByPost(ctx, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("post deleted",
		"id", id,
		"author_id", userID,
		"comments_removed", len(commentIDs),
	)

	return nil
}

// ToggleUpvote adds the caller's vote, or removes it if present. The
// cached counter never drops below zero.
func (s *postService) ToggleUpvote(ctx context.Context, id, userID string) (*services.UpvoteResult, error) {
	if _, err := s.posts.GetByID(ctx, id); err != nil {
		return nil, err
	}

	voted, err := s.upvotes.Exists(ctx, userID, models.TargetPost, id)
	if err != nil {
		return nil, err
	}

	if voted {
		removed, err := s.upvotes.Delete(ctx, userID, models.TargetPost, id)
		if err != nil {
			return nil, err
		}
		delta := 0
		if removed {
			delta = -1
		}
		count, err := s.posts.AdjustUpvotes(ctx, id, delta)
		if err != nil {
			return nil, err
		}
		return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: false}, nil
	}

	err = s.upvotes.Create(ctx, &models.Upvote{
		UserID:     userID,
		TargetType: models.TargetPost,
		TargetID:   id,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		// A concurrent toggle inserted first; the vote is in place either way.
		if errors.Is(err, domain.ErrConflict) {
			count, cntErr := s.posts.AdjustUpvotes(ctx, id, 0)
			if cntErr != nil {
				return nil, cntErr
			}
			return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: true}, nil
		}
		return nil, err
	}

	count, err := s.posts.AdjustUpvotes(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: true}, nil
}

// Pin sets the pinned flag; admin only.
func (s *postService) Pin(ctx context.Context, id, userID string, pinned bool) (*models.Post, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can pin or unpin posts", domain.ErrForbidden)
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.posts.SetPinned(ctx, id, pinned, now); err != nil {
		return nil, err
	}
	post.IsPinned = pinned
	post.UpdatedAt = now

	s.logger.Info("post pin changed", "id", id, "pinned", pinned, "admin_id", userID)

	return s.decorate(ctx, post, userID)
}

// PopularTags counts tag usage across every post in process and returns
// the top tags by count. Full scan; fine at board scale, a known
// ceiling beyond it.
func (s *postService) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	if limit < 1 {
		limit = config.DefaultTagLimit
	}
	if limit > config.MaxTagLimit {
		limit = config.MaxTagLimit
	}

	tagSets, err := s.posts.AllTags(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tags := range tagSets {
		for _, tag := range tags {
			counts[tag]++
		}
	}

	result := make([]models.TagCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, models.TagCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
