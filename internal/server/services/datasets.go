package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/logging"
	"github.com/equipsense/equipsense/internal/server/analytics"
	"github.com/equipsense/equipsense/internal/server/config"
	"github.com/equipsense/equipsense/internal/server/csvx"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
)

// Archiver stores raw uploads in object storage. Implemented by
// storage.S3Archiver; a nil Archiver disables archival.
type Archiver interface {
	Archive(ctx context.Context, data []byte) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// DatasetService implements CSV uploads, summaries, history and report
// data. Datasets are always owner-scoped: one user never sees another's
// rows. Archival and archive cleanup are best-effort and only logged.
type DatasetService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	archiver     Archiver
	logger       logging.Logger
	historyLimit int
}

func NewDatasetService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, archiver Archiver, logger logging.Logger) *DatasetService {
	return &DatasetService{
		db:           db,
		repomanager:  m,
		archiver:     archiver,
		logger:       logger,
		historyLimit: cfg.DatasetHistoryLimit,
	}
}

// UserBrief is the uploader block nested in dataset payloads.
type UserBrief struct {
	ID        string `json:"id"`
	UserName  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// EquipmentItem is one stored equipment row in dataset payloads.
type EquipmentItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// DatasetDetail is the full dataset payload: metadata, uploader, stored
// averages and every equipment row. ArchiveURL carries a presigned
// download link for the raw file when one is archived.
type DatasetDetail struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	UploadedBy     *UserBrief      `json:"uploaded_by"`
	UploadedAt     time.Time       `json:"uploaded_at"`
	TotalEquipment int             `json:"total_equipment"`
	AvgFlowrate    float64         `json:"avg_flowrate"`
	AvgPressure    float64         `json:"avg_pressure"`
	AvgTemperature float64         `json:"avg_temperature"`
	Equipments     []EquipmentItem `json:"equipments"`
	EquipmentCount int             `json:"equipment_count"`
	ArchiveURL     string          `json:"archive_url,omitempty"`
}

// UploadResult pairs the stored dataset with the statistics computed from
// the uploaded rows.
type UploadResult struct {
	Dataset    *DatasetDetail
	Statistics *analytics.Stats
}

// Upload parses and validates the CSV, stores the dataset with its rows in
// one transaction, archives the raw bytes, and prunes the user's history
// down to the configured limit.
func (s *DatasetService) Upload(ctx context.Context, userID string, filename string, data []byte) (*UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, common.NewError(common.ErrorValidation, "File must be a CSV")
	}

	rows, err := csvx.Parse(data)
	if err != nil {
		return nil, err
	}

	items := make([]models.Equipment, len(rows))
	for i, row := range rows {
		items[i] = models.Equipment{
			Name:        row.Name,
			Type:        row.Type,
			Flowrate:    row.Flowrate,
			Pressure:    row.Pressure,
			Temperature: row.Temperature,
		}
	}
	stats := analytics.Compute(items)

	dataset := &models.Dataset{
		UserID:         userID,
		Filename:       filename,
		TotalEquipment: stats.TotalEquipment,
		AvgFlowrate:    stats.AvgFlowrate,
		AvgPressure:    stats.AvgPressure,
		AvgTemperature: stats.AvgTemperature,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Datasets(tx)
		created, err := repo.Create(ctx, dataset)
		if err != nil {
			return err
		}
		dataset = created
		return repo.AddEquipment(ctx, created.ID, items)
	})
	if err != nil {
		return nil, err
	}

	s.archive(ctx, dataset, data)

	if err := s.pruneHistory(ctx, userID); err != nil {
		return nil, err
	}

	detail, err := s.buildDetail(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Dataset: detail, Statistics: stats}, nil
}

// DatasetInfo is the metadata block of a summary.
type DatasetInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// EquipmentRow is one row of the summary equipment list, keyed like the
// CSV headers.
type EquipmentRow struct {
	Name        string  `json:"Equipment Name"`
	Type        string  `json:"Type"`
	Flowrate    float64 `json:"Flowrate"`
	Pressure    float64 `json:"Pressure"`
	Temperature float64 `json:"Temperature"`
}

// emptyStatistics is the zeroed statistics stub shown before any upload
// exists; unlike analytics.Stats it carries no min/max fields.
type emptyStatistics struct {
	TotalEquipment int     `json:"total_equipment"`
	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`
}

// Summary is the analytics payload for one dataset. For a user without
// datasets, Error is set and the remaining blocks are zeroed.
type Summary struct {
	Error            string         `json:"error,omitempty"`
	DatasetInfo      *DatasetInfo   `json:"dataset_info,omitempty"`
	Statistics       any            `json:"statistics"`
	TypeDistribution map[string]int `json:"type_distribution"`
	EquipmentList    []EquipmentRow `json:"equipment_list"`
}

func emptySummary() *Summary {
	return &Summary{
		Error:            "No datasets found for this user",
		Statistics:       emptyStatistics{},
		TypeDistribution: map[string]int{},
		EquipmentList:    []EquipmentRow{},
	}
}

// Summary returns the full summary for the given dataset, or for the
// user's latest when datasetID is empty. A user without datasets gets the
// empty-state payload rather than an error.
func (s *DatasetService) Summary(ctx context.Context, userID string, datasetID string) (*Summary, error) {
	if datasetID != "" {
		dataset, err := s.getOwned(ctx, datasetID, userID)
		if err != nil {
			return nil, err
		}
		return s.buildSummary(ctx, dataset)
	}

	dataset, err := s.repomanager.Datasets(s.db).LatestForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return emptySummary(), nil
		}
		return nil, err
	}
	return s.buildSummary(ctx, dataset)
}

// HistoryItem is one row of the upload history listing.
type HistoryItem struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	UploadedBy     string    `json:"uploaded_by"`
	UploadedAt     time.Time `json:"uploaded_at"`
	EquipmentCount int       `json:"equipment_count"`
	AvgFlowrate    float64   `json:"avg_flowrate"`
	AvgPressure    float64   `json:"avg_pressure"`
	AvgTemperature float64   `json:"avg_temperature"`
}

// History lists the user's retained datasets, newest first.
func (s *DatasetService) History(ctx context.Context, userID string) ([]*HistoryItem, error) {
	datasets, err := s.repomanager.Datasets(s.db).ListForUser(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return []*HistoryItem{}, nil
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*HistoryItem, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, &HistoryItem{
			ID:             d.ID,
			Filename:       d.Filename,
			UploadedBy:     user.UserName,
			UploadedAt:     d.UploadedAt,
			EquipmentCount: d.TotalEquipment,
			AvgFlowrate:    d.AvgFlowrate,
			AvgPressure:    d.AvgPressure,
			AvgTemperature: d.AvgTemperature,
		})
	}
	return items, nil
}

// Detail returns the full dataset payload, including a presigned download
// URL when the raw file is archived.
func (s *DatasetService) Detail(ctx context.Context, userID string, datasetID string) (*DatasetDetail, error) {
	dataset, err := s.repomanager.Datasets(s.db).GetForUser(ctx, datasetID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "Dataset not found")
		}
		return nil, err
	}

	detail, err := s.buildDetail(ctx, dataset)
	if err != nil {
		return nil, err
	}

	if dataset.ArchiveKey != "" && s.archiver != nil {
		url, err := s.archiver.PresignGet(ctx, dataset.ArchiveKey)
		if err != nil {
			s.logger.Warn(ctx, "presigning archive url failed", "dataset_id", dataset.ID, "error", err)
		} else {
			detail.ArchiveURL = url
		}
	}
	return detail, nil
}

// TypeDistribution returns row counts per equipment type for the given
// dataset, or for the user's latest when datasetID is empty. A user
// without datasets gets an empty map.
func (s *DatasetService) TypeDistribution(ctx context.Context, userID string, datasetID string) (map[string]int, error) {
	if datasetID == "" {
		latest, err := s.repomanager.Datasets(s.db).LatestForUser(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return map[string]int{}, nil
			}
			return nil, err
		}
		datasetID = latest.ID
	} else {
		if _, err := s.getOwned(ctx, datasetID, userID); err != nil {
			return nil, err
		}
	}
	return s.repomanager.Datasets(s.db).TypeDistribution(ctx, datasetID)
}

// ReportData is the material the PDF generator renders.
type ReportData struct {
	Info             *DatasetInfo
	Statistics       *analytics.Stats
	TypeDistribution map[string]int
	Equipment        []models.Equipment
}

// Report gathers everything the PDF report needs for one owned dataset.
func (s *DatasetService) Report(ctx context.Context, userID string, datasetID string) (*ReportData, error) {
	if datasetID == "" {
		return nil, common.NewError(common.ErrorValidation, "dataset_id parameter is required")
	}

	dataset, err := s.getOwned(ctx, datasetID, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, dataset.UserID)
	if err != nil {
		return nil, err
	}
	items, err := s.repomanager.Datasets(s.db).ListEquipment(ctx, dataset.ID)
	if err != nil {
		return nil, err
	}

	return &ReportData{
		Info: &DatasetInfo{
			ID:         dataset.ID,
			Filename:   dataset.Filename,
			UploadedAt: dataset.UploadedAt,
			UploadedBy: user.UserName,
		},
		Statistics:       analytics.Compute(items),
		TypeDistribution: analytics.TypeDistribution(items),
		Equipment:        items,
	}, nil
}

// getOwned loads a dataset enforcing ownership, with the summary-style
// not-found message.
func (s *DatasetService) getOwned(ctx context.Context, datasetID string, userID string) (*models.Dataset, error) {
	dataset, err := s.repomanager.Datasets(s.db).GetForUser(ctx, datasetID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, fmt.Sprintf("Dataset with ID %s not found", datasetID))
		}
		return nil, err
	}
	return dataset, nil
}

// archive stores the raw upload out of band. The dataset row is already
// committed, so failures here only log.
func (s *DatasetService) archive(ctx context.Context, dataset *models.Dataset, data []byte) {
	if s.archiver == nil {
		return
	}

	key, err := s.archiver.Archive(ctx, data)
	if err != nil {
		s.logger.Error(ctx, "dataset archival failed", "dataset_id", dataset.ID, "error", err)
		return
	}
	if err := s.repomanager.Datasets(s.db).SetArchiveKey(ctx, dataset.ID, key); err != nil {
		s.logger.Error(ctx, "recording archive key failed", "dataset_id", dataset.ID, "key", key, "error", err)
		return
	}
	dataset.ArchiveKey = key
}

// pruneHistory drops datasets beyond the history limit and cleans up their
// archived files.
func (s *DatasetService) pruneHistory(ctx context.Context, userID string) error {
	keys, err := s.repomanager.Datasets(s.db).PruneHistory(ctx, userID, s.historyLimit)
	if err != nil {
		return err
	}
	if s.archiver == nil {
		return nil
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.archiver.Remove(ctx, key); err != nil {
			s.logger.Warn(ctx, "archive cleanup failed", "key", key, "error", err)
		}
	}
	return nil
}

// buildDetail assembles the dataset payload with its uploader and rows.
func (s *DatasetService) buildDetail(ctx context.Context, dataset *models.Dataset) (*DatasetDetail, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, dataset.UserID)
	if err != nil {
		return nil, err
	}
	items, err := s.repomanager.Datasets(s.db).ListEquipment(ctx, dataset.ID)
	if err != nil {
		return nil, err
	}

	equipments := make([]EquipmentItem, 0, len(items))
	for _, item := range items {
		equipments = append(equipments, EquipmentItem{
			ID:          item.ID,
			Name:        item.Name,
			Type:        item.Type,
			Flowrate:    item.Flowrate,
			Pressure:    item.Pressure,
			Temperature: item.Temperature,
		})
	}

	return &DatasetDetail{
		ID:             dataset.ID,
		Filename:       dataset.Filename,
		UploadedBy:     &UserBrief{ID: user.ID, UserName: user.UserName, Email: user.Email, FirstName: user.FirstName, LastName: user.LastName},
		UploadedAt:     dataset.UploadedAt,
		TotalEquipment: dataset.TotalEquipment,
		AvgFlowrate:    dataset.AvgFlowrate,
		AvgPressure:    dataset.AvgPressure,
		AvgTemperature: dataset.AvgTemperature,
		Equipments:     equipments,
		EquipmentCount: len(equipments),
	}, nil
}

// buildSummary assembles the analytics payload, recomputing statistics
// from the stored rows.
func (s *DatasetService) buildSummary(ctx context.Context, dataset *models.Dataset) (*Summary, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, dataset.UserID)
	if err != nil {
		return nil, err
	}
	items, err := s.repomanager.Datasets(s.db).ListEquipment(ctx, dataset.ID)
	if err != nil {
		return nil, err
	}

	rows := make([]EquipmentRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, EquipmentRow{
			Name:        item.Name,
			Type:        item.Type,
			Flowrate:    item.Flowrate,
			Pressure:    item.Pressure,
			Temperature: item.Temperature,
		})
	}

	return &Summary{
		DatasetInfo: &DatasetInfo{
			ID:         dataset.ID,
			Filename:   dataset.Filename,
			UploadedAt: dataset.UploadedAt,
			UploadedBy: user.UserName,
		},
		Statistics:       analytics.Compute(items),
		TypeDistribution: analytics.TypeDistribution(items),
		EquipmentList:    rows,
	}, nil
}
