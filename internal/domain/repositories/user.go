package repositories

import (
	"context"

	"kakehashi/internal/domain/models"
)

// UserRepository resolves account records. The community engines read
// it for display identity and role checks only.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs batch-resolves users for a page of authors; missing IDs are
	// simply absent from the result map.
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}
