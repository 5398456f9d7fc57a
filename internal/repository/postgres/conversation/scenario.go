package conversation

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

// PostgresScenarioRepository implements the ScenarioRepository interface
type PostgresScenarioRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewScenarioRepository creates a new scenario repository
func NewScenarioRepository(config *postgres.RepositoryConfig) repositories.ScenarioRepository {
	return &PostgresScenarioRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a scenario (used by the seed CLI)
func (r *PostgresScenarioRepository) Create(ctx context.Context, scenario *models.Scenario) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, description, difficulty, category, initial_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Scenarios)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		scenario.Title,
		scenario.Description,
		scenario.Difficulty,
		scenario.Category,
		scenario.InitialMessage,
		scenario.CreatedAt,
		scenario.UpdatedAt,
	).Scan(&scenario.ID, &scenario.CreatedAt, &scenario.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create scenario: %w", err)
	}

	return nil
}

// GetByID retrieves a scenario by ID
func (r *PostgresScenarioRepository) GetByID(ctx context.Context, id string) (*models.Scenario, error) {
	query := fmt.Sprintf(`
		SELECT id, title, description, difficulty, category, initial_message, created_at, updated_at
		FROM %s WHERE id = $1
	`, r.tables.Scenarios)

	var scenario models.Scenario
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&scenario.ID,
		&scenario.Title,
		&scenario.Description,
		&scenario.Difficulty,
		&scenario.Category,
		&scenario.InitialMessage,
		&scenario.CreatedAt,
		&scenario.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNotFoundError(err) {
			return nil, fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get scenario: %w", err)
	}

	return &scenario, nil
}

// List returns all scenarios, oldest first
func (r *PostgresScenarioRepository) List(ctx context.Context) ([]models.Scenario, error) {
	query := fmt.Sprintf(`
		SELECT id, title, description, difficulty, category, initial_message, created_at, updated_at
		FROM %s ORDER BY created_at ASC
	`, r.tables.Scenarios)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []models.Scenario
	for rows.Next() {
		var scenario models.Scenario
		if err := rows.Scan(
			&scenario.ID,
			&scenario.Title,
			&scenario.Description,
			&scenario.Difficulty,
			&scenario.Category,
			&scenario.InitialMessage,
			&scenario.CreatedAt,
			&scenario.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		scenarios = append(scenarios, scenario)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}

	return scenarios, nil
}

// Count returns the number of scenarios
func (r *PostgresScenarioRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Scenarios)

	executor := postgres.GetExecutor(ctx, r.pool)
	var count int
	if err := executor.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scenarios: %w", err)
	}

	return count, nil
}
