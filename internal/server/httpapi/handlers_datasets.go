package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/equipsense/equipsense/internal/server/report"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, M{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, M{"error": "Could not read uploaded file"})
		return
	}

	res, err := s.services.Datasets.Upload(r.Context(), user.ID, header.Filename, data)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, M{
		"message":    "File uploaded successfully",
		"dataset":    res.Dataset,
		"statistics": res.Statistics,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	summary, err := s.services.Datasets.Summary(r.Context(), user.ID, r.URL.Query().Get("dataset_id"))
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	items, err := s.services.Datasets.History(r.Context(), user.ID)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"count":    len(items),
		"datasets": items,
	})
}

func (s *Server) handleDatasetDetail(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	detail, err := s.services.Datasets.Detail(r.Context(), user.ID, chi.URLParam(r, "datasetID"))
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleTypeDistribution(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	dist, err := s.services.Datasets.TypeDistribution(r.Context(), user.ID, r.URL.Query().Get("dataset_id"))
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{"type_distribution": dist})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	data, err := s.services.Datasets.Report(r.Context(), user.ID, r.URL.Query().Get("dataset_id"))
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	pdf, err := report.Generate(data)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("equipment_report_%s_%s.pdf", data.Info.ID, data.Info.Filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
