package api

import "time"

// User mirrors the account block returned by the auth endpoints.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsAdmin   bool   `json:"is_admin_user"`
	Role      string `json:"role"`
}

// Tokens is the access/refresh pair issued on login and refresh.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Statistics is the summary block computed for a dataset.
type Statistics struct {
	TotalEquipment int     `json:"total_equipment"`
	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`
	MaxFlowrate    float64 `json:"max_flowrate"`
	MinFlowrate    float64 `json:"min_flowrate"`
	MaxPressure    float64 `json:"max_pressure"`
	MinPressure    float64 `json:"min_pressure"`
	MaxTemperature float64 `json:"max_temperature"`
	MinTemperature float64 `json:"min_temperature"`
}

// Dataset is the stored-dataset block of an upload response.
type Dataset struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	UploadedAt     time.Time `json:"uploaded_at"`
	TotalEquipment int       `json:"total_equipment"`
}

// UploadResult is the body of a successful upload.
type UploadResult struct {
	Message    string      `json:"message"`
	Dataset    *Dataset    `json:"dataset"`
	Statistics *Statistics `json:"statistics"`
}

// DatasetInfo is the metadata block of a summary.
type DatasetInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// EquipmentRow keeps the original CSV column names as JSON keys.
type EquipmentRow struct {
	Name        string  `json:"Equipment Name"`
	Type        string  `json:"Type"`
	Flowrate    float64 `json:"Flowrate"`
	Pressure    float64 `json:"Pressure"`
	Temperature float64 `json:"Temperature"`
}

// Summary is the body of the summary endpoint. When the user has no
// datasets the server sends Error and leaves DatasetInfo empty.
type Summary struct {
	Error            string         `json:"error"`
	DatasetInfo      *DatasetInfo   `json:"dataset_info"`
	Statistics       *Statistics    `json:"statistics"`
	TypeDistribution map[string]int `json:"type_distribution"`
	EquipmentList    []EquipmentRow `json:"equipment_list"`
}

// HistoryItem is one dataset row of the history listing.
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

// History is the body of the history endpoint.
type History struct {
	Count    int           `json:"count"`
	Datasets []HistoryItem `json:"datasets"`
}
