package repositories

import (
	"context"

	"kakehashi/internal/domain/models"
)

// ScenarioRepository holds the immutable conversation scenarios.
type ScenarioRepository interface {
	Create(ctx context.Context, scenario *models.Scenario) error
	GetByID(ctx context.Context, id string) (*models.Scenario, error)
	List(ctx context.Context) ([]models.Scenario, error)
	Count(ctx context.Context) (int, error)
}

// SimulationRepository persists completed simulation records. Exactly
// one record is written per ended session; active sessions never touch
// this repository.
type SimulationRepository interface {
	Create(ctx context.Context, record *models.SimulationRecord) error
	GetByID(ctx context.Context, id string) (*models.SimulationRecord, error)
	// List returns completed records newest first plus the total count.
	List(ctx context.Context, limit, offset int) ([]models.SimulationRecord, int, error)
}
