// Package datasets provides the PostgreSQL-backed repository for uploaded
// datasets and their equipment rows.
package datasets

import (
	"context"

	"github.com/equipsense/equipsense/internal/server/models"
)

type Repository interface {
	// Create inserts the dataset row and fills in the generated fields.
	Create(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error)

	// AddEquipment bulk-inserts the parsed rows for a dataset, preserving
	// file order.
	AddEquipment(ctx context.Context, datasetID string, items []models.Equipment) error

	// GetForUser returns the dataset only when it belongs to userID,
	// common.ErrorNotFound otherwise.
	GetForUser(ctx context.Context, id string, userID string) (*models.Dataset, error)

	// LatestForUser returns the user's most recent dataset,
	// common.ErrorNotFound when the user has none.
	LatestForUser(ctx context.Context, userID string) (*models.Dataset, error)

	// ListForUser returns up to limit datasets, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]*models.Dataset, error)

	// ListEquipment returns the dataset's rows in file order.
	ListEquipment(ctx context.Context, datasetID string) ([]models.Equipment, error)

	// TypeDistribution counts equipment rows per type.
	TypeDistribution(ctx context.Context, datasetID string) (map[string]int, error)

	// SetArchiveKey records the object-storage key of the archived raw file.
	SetArchiveKey(ctx context.Context, datasetID string, key string) error

	// PruneHistory deletes all but the newest keep datasets of the user
	// (equipment rows cascade) and returns the archive keys of the deleted
	// rows so the caller can clean up object storage.
	PruneHistory(ctx context.Context, userID string, keep int) ([]string, error)
}
