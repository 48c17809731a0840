package datasets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const datasetColumns = `id, user_id, filename, uploaded_at, archive_key,
	total_equipment, avg_flowrate, avg_pressure, avg_temperature`

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (*models.Dataset, error) {
	d := &models.Dataset{}
	err := row.Scan(&d.ID, &d.UserID, &d.Filename, &d.UploadedAt, &d.ArchiveKey,
		&d.TotalEquipment, &d.AvgFlowrate, &d.AvgPressure, &d.AvgTemperature)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error) {
	query := `
		INSERT INTO datasets (user_id, filename, total_equipment, avg_flowrate, avg_pressure, avg_temperature)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		dataset.UserID, dataset.Filename, dataset.TotalEquipment,
		dataset.AvgFlowrate, dataset.AvgPressure, dataset.AvgTemperature).
		Scan(&dataset.ID, &dataset.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dataset, nil
}

// insertChunk keeps multi-row inserts well under the PostgreSQL
// parameter limit (65535 / 6 columns).
const insertChunk = 500

func (r *PostgresRepository) AddEquipment(ctx context.Context, datasetID string, items []models.Equipment) error {
	for start := 0; start < len(items); start += insertChunk {
		end := start + insertChunk
		if end > len(items) {
			end = len(items)
		}
		if err := r.addEquipmentChunk(ctx, datasetID, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) addEquipmentChunk(ctx context.Context, datasetID string, items []models.Equipment) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO equipment (dataset_id, name, type, flowrate, pressure, temperature) VALUES `)
	args := make([]any, 0, len(items)*6)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, datasetID, item.Name, item.Type, item.Flowrate, item.Pressure, item.Temperature)
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUser(ctx context.Context, id string, userID string) (*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets
		WHERE id = $1 AND user_id = $2`
	dataset, err := scanDataset(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dataset, nil
}

func (r *PostgresRepository) LatestForUser(ctx context.Context, userID string) (*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets
		WHERE user_id = $1
		ORDER BY uploaded_at DESC LIMIT 1`
	dataset, err := scanDataset(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dataset, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets
		WHERE user_id = $1
		ORDER BY uploaded_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListEquipment(ctx context.Context, datasetID string) ([]models.Equipment, error) {
	query := `
		SELECT id, dataset_id, name, type, flowrate, pressure, temperature
		FROM equipment
		WHERE dataset_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Equipment
	for rows.Next() {
		var e models.Equipment
		err := rows.Scan(&e.ID, &e.DatasetID, &e.Name, &e.Type, &e.Flowrate, &e.Pressure, &e.Temperature)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) TypeDistribution(ctx context.Context, datasetID string) (map[string]int, error) {
	query := `
		SELECT type, count(*) FROM equipment
		WHERE dataset_id = $1
		GROUP BY type
	`
	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := map[string]int{}
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetArchiveKey(ctx context.Context, datasetID string, key string) error {
	query := `
		UPDATE datasets SET archive_key = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, datasetID, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PruneHistory(ctx context.Context, userID string, keep int) ([]string, error) {
	query := `
		DELETE FROM datasets
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM datasets WHERE user_id = $1
			ORDER BY uploaded_at DESC LIMIT $2
		)
		RETURNING archive_key
	`
	rows, err := r.db.QueryContext(ctx, query, userID, keep)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}
