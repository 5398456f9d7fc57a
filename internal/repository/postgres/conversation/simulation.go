package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSimulationRepository implements the SimulationRepository
// interface. The transcript is stored as a JSONB document; its shape is
// owned by models.Turn.
type PostgresSimulationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSimulationRepository creates a new simulation repository
func NewSimulationRepository(config *postgres.RepositoryConfig) repositories.SimulationRepository {
	return &PostgresSimulationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a completed simulation record
func (r *PostgresSimulationRepository) Create(ctx context.Context, record *models.SimulationRecord) error {
	transcript, err := json.Marshal(record.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, scenario_id, transcript, overall_score, feedback, started_at, completed_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, r.tables.Simulations)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		record.UserID,
		record.ScenarioID,
		transcript,
		record.OverallScore,
		record.Feedback,
		record.StartedAt,
		record.CompletedAt,
		record.DurationSecs,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("create simulation record: %w", err)
	}

	return nil
}

// GetByID retrieves a simulation record by ID
func (r *PostgresSimulationRepository) GetByID(ctx context.Context, id string) (*models.SimulationRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, scenario_id, transcript, overall_score, feedback, started_at, completed_at, duration_seconds
		FROM %s WHERE id = $1
	`, r.tables.Simulations)

	var record models.SimulationRecord
	var transcript []byte
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.UserID,
		&record.ScenarioID,
		&transcript,
		&record.OverallScore,
		&record.Feedback,
		&record.StartedAt,
		&record.CompletedAt,
		&record.DurationSecs,
	)

	if err != nil {
		if postgres.IsPgNotFoundError(err) {
			return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get simulation record: %w", err)
	}

	if err := json.Unmarshal(transcript, &record.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	return &record, nil
}

// List returns completed records newest first plus the total count
func (r *PostgresSimulationRepository) List(ctx context.Context, limit, offset int) ([]models.SimulationRecord, int, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Simulations)
	if err := executor.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count simulation records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, scenario_id, transcript, overall_score, feedback, started_at, completed_at, duration_seconds
		FROM %s
		ORDER BY completed_at DESC
		LIMIT $1 OFFSET $2
	`, r.tables.Simulations)

	rows, err := executor.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list simulation records: %w", err)
	}
	defer rows.Close()

	var records []models.SimulationRecord
	for rows.Next() {
		var record models.SimulationRecord
		var transcript []byte
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ScenarioID,
			&transcript,
			&record.OverallScore,
			&record.Feedback,
			&record.StartedAt,
			&record.CompletedAt,
			&record.DurationSecs,
		); err != nil {
			return nil, 0, fmt.Errorf("scan simulation record: %w", err)
		}
		if err := json.Unmarshal(transcript, &record.Transcript); err != nil {
			return nil, 0, fmt.Errorf("decode transcript: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list simulation records: %w", err)
	}

	return records, total, nil
}
