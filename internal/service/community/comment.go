package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"kakehashi/internal/config"
	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/domain/services"
)

// commentService implements the CommentService interface
type commentService struct {
	comments  repositories.CommentRepository
	posts     repositories.PostRepository
	upvotes   repositories.UpvoteRepository
	users     repositories.UserRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(
	comments repositories.CommentRepository,
	posts repositories.PostRepository,
	upvotes repositories.UpvoteRepository,
	users repositories.UserRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.CommentService {
	return &commentService{
		comments:  comments,
		posts:     posts,
		upvotes:   upvotes,
		users:     users,
		txManager: txManager,
		logger:    logger,
	}
}

func validateCommentContent(content string) error {
	return validation.Validate(content,
		validation.Required,
		validation.Length(1, config.MaxCommentContentLength),
	)
}

// Create inserts a comment or reply. Depth is 0 for a root comment and
// 1 for a reply; replying to a reply fails validation. The insert and
// the parent post's counter bump commit together.
func (s *commentService) Create(ctx context.Context, req *services.CreateCommentRequest) (*models.Comment, error) {
	if err := validateCommentContent(req.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.posts.GetByID(ctx, req.PostID); err != nil {
		return nil, err
	}

	depth := 0
	var parentID *string
	if req.ParentID != nil && *req.ParentID != "" {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Depth >= 1 {
			return nil, fmt.Errorf("%w: cannot reply to a reply, max depth is 2 levels", domain.ErrValidation)
		}
		depth = 1
		parentID = &parent.ID
	}

	now := time.Now()
	comment := &models.Comment{
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		ParentID:  parentID,
		Depth:     depth,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.comments.Create(txCtx, comment); err != nil {
			return err
		}
		return s.posts.RecordCommentActivity(txCtx, req.PostID, now)
	})
	if err != nil {
		return nil, err
	}

	comment.Author = resolveAuthor(ctx, s.users, req.AuthorID)

	s.logger.Info("comment created",
		"id", comment.ID,
		"post_id", req.PostID,
		"depth", depth,
	)

	return comment, nil
}

// ListRoots returns the depth-0 comments of a post, oldest first, with
// live reply counts. Replies load on demand via ListReplies.
func (s *commentService) ListRoots(ctx context.Context, postID, userID string) (*services.CommentList, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	roots, err := s.comments.ListRoots(ctx, postID)
	if err != nil {
		return nil, err
	}

	if len(roots) > 0 {
		ids := make([]string, len(roots))
		for i := range roots {
			ids[i] = roots[i].ID
		}
		replyCounts, err := s.comments.CountReplies(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range roots {
			roots[i].ReplyCount = replyCounts[roots[i].ID]
		}
	}

	if err := s.annotate(ctx, roots, userID); err != nil {
		return nil, err
	}

	return &services.CommentList{Comments: roots, Total: len(roots)}, nil
}

// ListReplies returns the flat reply list under a root, oldest first.
func (s *commentService) ListReplies(ctx context.Context, parentID, userID string) (*services.CommentList, error) {
	if _, err := s.comments.GetByID(ctx, parentID); err != nil {
		return nil, err
	}

	replies, err := s.comments.ListReplies(ctx, parentID)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(ctx, replies, userID); err != nil {
		return nil, err
	}

	return &services.CommentList{Comments: replies, Total: len(replies)}, nil
}

// annotate fills author identities and caller vote state, and blanks
// the content of tombstoned comments.
func (s *commentService) annotate(ctx context.Context, comments []models.Comment, userID string) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]string, len(comments))
	authorIDs := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
		authorIDs[i] = comments[i].AuthorID
	}

	authors, err := resolveAuthors(ctx, s.users, authorIDs)
	if err != nil {
		return err
	}
	voted, err := s.upvotes.ExistsBatch(ctx, userID, models.TargetComment, ids)
	if err != nil {
		return err
	}

	for i := range comments {
		comments[i].Author = authors[comments[i].AuthorID]
		comments[i].UserHasUpvoted = voted[comments[i].ID]
		if comments[i].IsDeleted {
			comments[i].Content = ""
		}
	}

	return nil
}

// Update replaces a comment's content; author only.
func (s *commentService) Update(ctx context.Context, id, userID, content string) (*models.Comment, error) {
	if err := validateCommentContent(content); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own comments", domain.ErrForbidden)
	}

	comment.Content = content
	comment.UpdatedAt = time.Now()

	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}

	comment.Author = resolveAuthor(ctx, s.users, comment.AuthorID)
	voted, err := s.upvotes.Exists(ctx, userID, models.TargetComment, id)
	if err != nil {
		return nil, err
	}
	comment.UserHasUpvoted = voted

	return comment, nil
}

// SoftDelete tombstones a comment; the author may delete their own,
// an admin may delete any. Deleting a root also tombstones its live
// replies with the same deleted_by_admin flag. The parent post's
// comment count stays as is: tombstones remain visible in the thread.
func (s *commentService) SoftDelete(ctx context.Context, id, userID string) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	isAdmin := false
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		isAdmin = user.IsAdmin()
	}

	if !isAdmin && comment.AuthorID != userID {
		return fmt.Errorf("%w: you can only delete your own comments", domain.ErrForbidden)
	}
	if comment.IsDeleted {
		return fmt.Errorf("%w: comment is already deleted", domain.ErrValidation)
	}

	now := time.Now()
	if comment.IsRoot() {
		affected, err := s.comments.SoftDeleteReplies(ctx, id, isAdmin, now)
		if err != nil {
			return err
		}
		if affected > 0 {
			s.logger.Info("replies tombstoned with root", "comment_id", id, "count", affected)
		}
	}

	return s.comments.SoftDelete(ctx, id, isAdmin, now)
}

// ToggleUpvote adds the caller's vote, or removes it if present.
func (s *commentService) ToggleUpvote(ctx context.Context, id, userID string) (*services.UpvoteResult, error) {
	if _, err := s.comments.GetByID(ctx, id); err != nil {
		return nil, err
	}

	voted, err := s.upvotes.Exists(ctx, userID, models.TargetComment, id)
	if err != nil {
		return nil, err
	}

	if voted {
		removed, err := s.upvotes.Delete(ctx, userID, models.TargetComment, id)
		if err != nil {
			return nil, err
		}
		delta := 0
		if removed {
			delta = -1
		}
		count, err := s.comments.AdjustUpvotes(ctx, id, delta)
		if err != nil {
			return nil, err
		}
		return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: false}, nil
	}

	err = s.upvotes.Create(ctx, &models.Upvote{
		UserID:     userID,
		TargetType: models.TargetComment,
		TargetID:   id,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			count, cntErr := s.comments.AdjustUpvotes(ctx, id, 0)
			if cntErr != nil {
				return nil, cntErr
			}
			return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: true}, nil
		}
		return nil, err
	}

	count, err := s.comments.AdjustUpvotes(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	return &services.UpvoteResult{Success: true, Upvotes: count, UserHasUpvoted: true}, nil
}
