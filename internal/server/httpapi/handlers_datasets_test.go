package httpapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/analytics"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/services"
)

// newDatasetServer wires an authenticated regular user plus the dataset fake.
func newDatasetServer(t *testing.T, datasets *fakeDatasets) (*Server, string) {
	t.Helper()
	user := activeUser()
	srv := newTestServer(Services{Users: &fakeUsers{profileResp: user}, Datasets: datasets})
	return srv, bearerFor(t, user, time.Minute)
}

func doUpload(t *testing.T, h http.Handler, token string, filename string, contents []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := fw.Write(contents); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUpload_OK(t *testing.T) {
	datasets := &fakeDatasets{
		uploadResp: &services.UploadResult{
			Dataset:    &services.DatasetDetail{ID: "d1", Filename: "plant.csv"},
			Statistics: &analytics.Stats{TotalEquipment: 2, AvgFlowrate: 105.2},
		},
	}
	srv, token := newDatasetServer(t, datasets)
	csv := []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\nPump A,Pump,120.5,10.2,65\n")

	rec := doUpload(t, srv.Handler(), token, "plant.csv", csv)

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	m := decodeM(t, rec)
	if m["message"] != "File uploaded successfully" {
		t.Fatalf("unexpected message: %v", m["message"])
	}
	dataset, _ := m["dataset"].(map[string]any)
	if dataset["id"] != "d1" {
		t.Fatalf("unexpected dataset payload: %v", dataset)
	}
	stats, _ := m["statistics"].(map[string]any)
	if stats["total_equipment"] != float64(2) {
		t.Fatalf("unexpected statistics payload: %v", stats)
	}

	if datasets.uploadUserID != "u1" || datasets.uploadFilename != "plant.csv" {
		t.Fatalf("unexpected upload args: user=%q file=%q", datasets.uploadUserID, datasets.uploadFilename)
	}
	if !bytes.Equal(datasets.uploadData, csv) {
		t.Fatal("uploaded bytes were not passed through unchanged")
	}
}

func TestUpload_NoFile(t *testing.T) {
	srv, token := newDatasetServer(t, &fakeDatasets{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/upload", token, M{"file": "nope"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	if got := decodeM(t, rec)["error"]; got != "No file provided" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestUpload_RejectedCSV(t *testing.T) {
	datasets := &fakeDatasets{uploadErr: common.NewError(common.ErrorValidation, "File must be a CSV")}
	srv, token := newDatasetServer(t, datasets)

	rec := doUpload(t, srv.Handler(), token, "plant.txt", []byte("not,a,csv"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	if got := decodeM(t, rec)["error"]; got != "File must be a CSV" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestSummary_OK(t *testing.T) {
	datasets := &fakeDatasets{
		summaryResp: &services.Summary{
			DatasetInfo:      &services.DatasetInfo{ID: "d1", Filename: "plant.csv", UploadedBy: "alice"},
			Statistics:       &analytics.Stats{TotalEquipment: 2},
			TypeDistribution: map[string]int{"Pump": 2},
			EquipmentList:    []services.EquipmentRow{{Name: "Pump A", Type: "Pump"}},
		},
	}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/summary?dataset_id=d1", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	m := decodeM(t, rec)
	info, _ := m["dataset_info"].(map[string]any)
	if info["filename"] != "plant.csv" {
		t.Fatalf("unexpected dataset_info: %v", info)
	}
	dist, _ := m["type_distribution"].(map[string]any)
	if dist["Pump"] != float64(2) {
		t.Fatalf("unexpected type_distribution: %v", dist)
	}
	if datasets.summaryID != "d1" {
		t.Fatalf("dataset_id not passed through: %q", datasets.summaryID)
	}
}

// A user with no datasets still gets a 200; the empty state travels inside
// the body.
func TestSummary_NoDatasets(t *testing.T) {
	datasets := &fakeDatasets{
		summaryResp: &services.Summary{
			Error:            "No datasets found for this user",
			Statistics:       map[string]any{},
			TypeDistribution: map[string]int{},
			EquipmentList:    []services.EquipmentRow{},
		},
	}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/summary", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	m := decodeM(t, rec)
	if m["error"] != "No datasets found for this user" {
		t.Fatalf("unexpected body: %v", m)
	}
	if _, ok := m["dataset_info"]; ok {
		t.Fatalf("empty summary should omit dataset_info: %v", m)
	}
}

func TestHistory_OK(t *testing.T) {
	datasets := &fakeDatasets{historyResp: []*services.HistoryItem{
		{ID: "d2", Filename: "b.csv"},
		{ID: "d1", Filename: "a.csv"},
	}}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/history", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	m := decodeM(t, rec)
	if m["count"] != float64(2) {
		t.Fatalf("unexpected count: %v", m["count"])
	}
	items, _ := m["datasets"].([]any)
	if len(items) != 2 {
		t.Fatalf("unexpected datasets: %v", items)
	}
}

func TestDatasetDetail_OK(t *testing.T) {
	datasets := &fakeDatasets{detailResp: &services.DatasetDetail{
		ID:             "d1",
		Filename:       "plant.csv",
		UploadedBy:     &services.UserBrief{ID: "u1", UserName: "alice"},
		TotalEquipment: 2,
	}}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/dataset/d1", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	m := decodeM(t, rec)
	if m["id"] != "d1" || m["total_equipment"] != float64(2) {
		t.Fatalf("unexpected detail: %v", m)
	}
	if _, ok := m["archive_url"]; ok {
		t.Fatalf("archive_url should be omitted when empty: %v", m)
	}
	if datasets.detailID != "d1" {
		t.Fatalf("dataset id not passed through: %q", datasets.detailID)
	}
}

func TestDatasetDetail_NotFound(t *testing.T) {
	datasets := &fakeDatasets{detailErr: common.NewError(common.ErrorNotFound, "Dataset not found")}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/dataset/ghost", token, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
	if got := decodeM(t, rec)["error"]; got != "Dataset not found" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestTypeDistribution_OK(t *testing.T) {
	datasets := &fakeDatasets{distResp: map[string]int{"Pump": 3, "Valve": 1}}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/type-distribution", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	dist, _ := decodeM(t, rec)["type_distribution"].(map[string]any)
	if dist["Pump"] != float64(3) || dist["Valve"] != float64(1) {
		t.Fatalf("unexpected distribution: %v", dist)
	}
}

func TestReport_OK(t *testing.T) {
	datasets := &fakeDatasets{reportResp: &services.ReportData{
		Info: &services.DatasetInfo{
			ID:         "d1",
			Filename:   "plant.csv",
			UploadedBy: "alice",
			UploadedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		Statistics:       &analytics.Stats{TotalEquipment: 1, AvgFlowrate: 120.5},
		TypeDistribution: map[string]int{"Pump": 1},
		Equipment: []models.Equipment{
			{Name: "Pump A", Type: "Pump", Flowrate: 120.5, Pressure: 10.2, Temperature: 65},
		},
	}}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/report?dataset_id=d1", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `equipment_report_d1_plant.csv.pdf`) {
		t.Fatalf("unexpected content disposition: %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("response body is not a PDF")
	}
	if datasets.reportID != "d1" {
		t.Fatalf("dataset id not passed through: %q", datasets.reportID)
	}
}

func TestReport_RequiresDatasetID(t *testing.T) {
	datasets := &fakeDatasets{reportErr: common.NewError(common.ErrorValidation, "dataset_id parameter is required")}
	srv, token := newDatasetServer(t, datasets)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/report", token, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	if got := decodeM(t, rec)["error"]; got != "dataset_id parameter is required" {
		t.Fatalf("unexpected error: %v", got)
	}
}
