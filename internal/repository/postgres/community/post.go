package community

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPostRepository implements the PostRepository interface
type PostgresPostRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(config *postgres.RepositoryConfig) repositories.PostRepository {
	return &PostgresPostRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const postColumns = `id, author_id, title, content, excerpt, tags, upvotes, views,
	comment_count, is_pinned, last_activity, created_at, updated_at`

func scanPost(row pgx.Row, post *models.Post) error {
	return row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&post.Excerpt,
		&post.Tags,
		&post.Upvotes,
		&post.Views,
		&post.CommentCount,
		&post.IsPinned,
		&post.LastActivity,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
}

// Create inserts a new post
func (r *PostgresPostRepository) Create(ctx context.Context, post *models.Post) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (author_id, title, content, excerpt, tags, last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		post.AuthorID,
		post.Title,
		post.Content,
		post.Excerpt,
		post.Tags,
		post.LastActivity,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID
func (r *PostgresPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, postColumns, r.tables.Posts)

	var post models.Post
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanPost(executor.QueryRow(ctx, query, id), &post); err != nil {
		if postgres.IsPgNotFoundError(err) {
			return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &post, nil
}

// orderClause maps a sort mode to its ORDER BY expression. Pin status is
// always the primary sort key; the requested mode orders within each
// pin group, with created_at as the tiebreak.
func orderClause(sort string) string {
	switch sort {
	case repositories.SortUpvotes:
		return "is_pinned DESC, upvotes DESC, created_at DESC"
	case repositories.SortViews:
		return "is_pinned DESC, views DESC, created_at DESC"
	case repositories.SortActive:
		return "is_pinned DESC, last_activity DESC"
	default:
		return "is_pinned DESC, created_at DESC"
	}
}

// List returns one page of posts matching the filter plus the total count
func (r *PostgresPostRepository) List(ctx context.Context, filter repositories.PostFilter) ([]models.Post, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern)
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}

	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.tables.Posts, where)

	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	listArgs := append(args, filter.Limit, filter.Offset)
	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, postColumns, r.tables.Posts, where, orderClause(filter.Sort), len(args)+1, len(args)+2)

	rows, err := executor.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	return posts, total, nil
}

// Update writes title, content, excerpt, tags, and updated_at
func (r *PostgresPostRepository) Update(ctx context.Context, post *models.Post) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, content = $3, excerpt = $4, tags = $5, updated_at = $6
		WHERE id = $1
	`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		post.ID, post.Title, post.Content, post.Excerpt, post.Tags, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete hard-deletes a post row
func (r *PostgresPostRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// IncrementViews bumps the view counter by one
func (r *PostgresPostRepository) IncrementViews(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET views = views + 1 WHERE id = $1`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	return nil
}

// AdjustUpvotes applies delta to the upvote counter, floored at zero
func (r *PostgresPostRepository) AdjustUpvotes(ctx context.Context, id string, delta int) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET upvotes = GREATEST(0, upvotes + $2)
		WHERE id = $1
		RETURNING upvotes
	`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	var upvotes int
	if err := executor.QueryRow(ctx, query, id, delta).Scan(&upvotes); err != nil {
		if postgres.IsPgNotFoundError(err) {
			return 0, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("adjust post upvotes: %w", err)
	}

	return upvotes, nil
}

// SetPinned sets the pin flag and bumps updated_at
func (r *PostgresPostRepository) SetPinned(ctx context.Context, id string, pinned bool, updatedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET is_pinned = $2, updated_at = $3 WHERE id = $1`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, pinned, updatedAt)
	if err != nil {
		return fmt.Errorf("pin post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// RecordCommentActivity increments comment_count and bumps last_activity
func (r *PostgresPostRepository) RecordCommentActivity(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET comment_count = comment_count + 1, last_activity = $2
		WHERE id = $1
	`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("record comment activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// AllTags returns every post's tag array for the in-process histogram
func (r *PostgresPostRepository) AllTags(ctx context.Context) ([][]string, error) {
	query := fmt.Sprintf(`SELECT tags FROM %s`, r.tables.Posts)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var all [][]string
	for rows.Next() {
		var tags []string
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		all = append(all, tags)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return all, nil
}
