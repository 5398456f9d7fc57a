package community

import (
	"context"
	"fmt"
	"log/slog"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUpvoteRepository implements the UpvoteRepository interface.
// The unique index on (user_id, target_type, target_id) is the backstop
// for the check-then-act toggle in the service layer.
type PostgresUpvoteRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewUpvoteRepository creates a new upvote repository
func NewUpvoteRepository(config *postgres.RepositoryConfig) repositories.UpvoteRepository {
	return &PostgresUpvoteRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a vote; a duplicate triple maps to domain.ErrConflict
func (r *PostgresUpvoteRepository) Create(ctx context.Context, vote *models.Upvote) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, target_type, target_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.tables.Upvotes)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		vote.UserID, vote.TargetType, vote.TargetID, vote.CreatedAt,
	).Scan(&vote.ID)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("vote on %s %s: %w", vote.TargetType, vote.TargetID, domain.ErrConflict)
		}
		return fmt.Errorf("create upvote: %w", err)
	}

	return nil
}

// Delete removes a vote and reports whether a row existed
func (r *PostgresUpvoteRepository) Delete(ctx context.Context, userID, targetType, targetID string) (bool, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = $1 AND target_type = $2 AND target_id = $3
	`, r.tables.Upvotes)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, userID, targetType, targetID)
	if err != nil {
		return false, fmt.Errorf("delete upvote: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Exists checks for a vote on a single target
func (r *PostgresUpvoteRepository) Exists(ctx context.Context, userID, targetType, targetID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s WHERE user_id = $1 AND target_type = $2 AND target_id = $3
		)
	`, r.tables.Upvotes)

	executor := postgres.GetExecutor(ctx, r.pool)
	var exists bool
	if err := executor.QueryRow(ctx, query, userID, targetType, targetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check upvote: %w", err)
	}

	return exists, nil
}

// ExistsBatch resolves vote state for a page of targets in one query
func (r *PostgresUpvoteRepository) ExistsBatch(ctx context.Context, userID, targetType string, targetIDs []string) (map[string]bool, error) {
	voted := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return voted, nil
	}

	query := fmt.Sprintf(`
		SELECT target_id FROM %s
		WHERE user_id = $1 AND target_type = $2 AND target_id = ANY($3)
	`, r.tables.Upvotes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, targetType, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("batch check upvotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var targetID string
		if err := rows.Scan(&targetID); err != nil {
			return nil, fmt.Errorf("scan upvote target: %w", err)
		}
		voted[targetID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch check upvotes: %w", err)
	}

	return voted, nil
}

// DeleteByTargets removes every vote against the given targets
func (r *PostgresUpvoteRepository) DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s WHERE target_type = $1 AND target_id = ANY($2)
	`, r.tables.Upvotes)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, targetType, targetIDs); err != nil {
		return fmt.Errorf("delete upvotes by target: %w", err)
	}

	return nil
}
