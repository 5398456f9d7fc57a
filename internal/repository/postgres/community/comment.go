package community

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentRepository implements the CommentRepository interface
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(config *postgres.RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const commentColumns = `id, post_id, author_id, content, upvotes, parent_comment_id,
	depth, is_deleted, deleted_by_admin, created_at, updated_at`

func scanComment(row pgx.Row, c *models.Comment) error {
	return row.Scan(
		&c.ID,
		&c.PostID,
		&c.AuthorID,
		&c.Content,
		&c.Upvotes,
		&c.ParentID,
		&c.Depth,
		&c.IsDeleted,
		&c.DeletedByAdmin,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// Create inserts a new comment
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (post_id, author_id, content, parent_comment_id, depth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		comment.PostID,
		comment.AuthorID,
		comment.Content,
		comment.ParentID,
		comment.Depth,
		comment.CreatedAt,
		comment.UpdatedAt,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

// GetByID retrieves a comment by ID
func (r *PostgresCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, commentColumns, r.tables.Comments)

	var comment models.Comment
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanComment(executor.QueryRow(ctx, query, id), &comment); err != nil {
		if postgres.IsPgNotFoundError(err) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}

	return &comment, nil
}

func (r *PostgresCommentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Comment, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := scanComment(rows, &comment); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}

// ListRoots returns all depth-0 comments of a post, oldest first
func (r *PostgresCommentRepository) ListRoots(ctx context.Context, postID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE post_id = $1 AND parent_comment_id IS NULL
		ORDER BY created_at ASC
	`, commentColumns, r.tables.Comments)

	return r.list(ctx, query, postID)
}

// ListReplies returns all depth-1 comments under a parent, oldest first
func (r *PostgresCommentRepository) ListReplies(ctx context.Context, parentID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_comment_id = $1
		ORDER BY created_at ASC
	`, commentColumns, r.tables.Comments)

	return r.list(ctx, query, parentID)
}

// CountReplies batch-counts replies per parent in one GROUP BY query
func (r *PostgresCommentRepository) CountReplies(ctx context.Context, parentIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	query := fmt.Sprintf(`
		SELECT parent_comment_id, COUNT(*) FROM %s
		WHERE parent_comment_id = ANY($1)
		GROUP BY parent_comment_id
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var parentID string
		var count int
		if err := rows.Scan(&parentID, &count); err != nil {
			return nil, fmt.Errorf("scan reply count: %w", err)
		}
		counts[parentID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}

	return counts, nil
}

// Update writes content and updated_at
func (r *PostgresCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	query := fmt.Sprintf(`
		UPDATE %s SET content = $2, updated_at = $3 WHERE id = $1
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, comment.ID, comment.Content, comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", comment.ID, domain.ErrNotFound)
	}

	return nil
}

// SoftDelete tombstones one comment
func (r *PostgresCommentRepository) SoftDelete(ctx context.Context, id string, byAdmin bool, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, deleted_by_admin = $2, updated_at = $3
		WHERE id = $1
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, byAdmin, at)
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SoftDeleteReplies tombstones every non-deleted reply under a root.
// Already-deleted replies keep their original deleted_by_admin flag.
func (r *PostgresCommentRepository) SoftDeleteReplies(ctx context.Context, parentID string, byAdmin bool, at time.Time) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, deleted_by_admin = $2, updated_at = $3
		WHERE parent_comment_id = $1 AND is_deleted = FALSE
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, parentID, byAdmin, at)
	if err != nil {
		return 0, fmt.Errorf("soft delete replies: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// AdjustUpvotes applies delta to the upvote counter, floored at zero
func (r *PostgresCommentRepository) AdjustUpvotes(ctx context.Context, id string, delta int) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET upvotes = GREATEST(0, upvotes + $2)
		WHERE id = $1
		RETURNING upvotes
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	var upvotes int
	if err := executor.QueryRow(ctx, query, id, delta).Scan(&upvotes); err != nil {
		if postgres.IsPgNotFoundError(err) {
			return 0, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("adjust comment upvotes: %w", err)
	}

	return upvotes, nil
}

// IDsByPost lists every comment ID belonging to a post
func (r *PostgresCommentRepository) IDsByPost(ctx context.Context, postID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE post_id = $1`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("list comment ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan comment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comment ids: %w", err)
	}

	return ids, nil
}

// DeleteByPost hard-deletes all comments of a post
func (r *PostgresCommentRepository) DeleteByPost(ctx context.Context, postID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE post_id = $1`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, postID); err != nil {
		return fmt.Errorf("delete comments by post: %w", err)
	}

	return nil
}
