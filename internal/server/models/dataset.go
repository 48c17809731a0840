package models

import "time"

// Dataset is an uploaded CSV file together with its precomputed averages.
// ArchiveKey points at the compressed raw file in object storage and is
// empty when archival is disabled or failed.
type Dataset struct {
	ID             string
	UserID         string
	Filename       string
	UploadedAt     time.Time
	ArchiveKey     string
	TotalEquipment int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
}

// Equipment is a single row of a parsed dataset.
type Equipment struct {
	ID          int64
	DatasetID   string
	Name        string
	Type        string
	Flowrate    float64
	Pressure    float64
	Temperature float64
}
