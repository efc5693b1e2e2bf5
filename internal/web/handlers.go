package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stocktally/engine/internal/core"
	"github.com/stocktally/engine/internal/inventory"
)

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseIntParam parses an integer query parameter, returning ok=false when
// absent or unparseable.
func parseIntParam(r *http.Request, name string) (int, bool) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return 0, false
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return i, true
}

// handleIngest accepts a spreadsheet upload as multipart form data (field
// "file") and registers it with the engine.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Ingest.MaxFileSize); err != nil {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "expected multipart form upload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.Ingest.MaxFileSize+1))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.ProcessExcelFile(r.Context(), data, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.GetProcessedFiles())
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	company, err := s.service.GetCompanyData(r.Context(), path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	if err := s.service.RemoveFile(r.Context(), path); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	data, err := s.service.GetWorkbook(r.Context(), path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path+`.xlsx"`)
	w.Write(data)
}

// stockUpdateRequest is the body for POST /api/files/{path}/stock.
type stockUpdateRequest struct {
	Finish string `json:"finish"`
	ItemNo string `json:"item_no"`
	Delta  int    `json:"delta"`
}

// stockUpdateResponse reports the post-mutation quantity.
type stockUpdateResponse struct {
	ItemNo   string `json:"item_no"`
	Quantity int    `json:"quantity"`
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	var req stockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "invalid JSON body"})
		return
	}
	if req.Finish == "" || req.ItemNo == "" {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "finish and item_no are required"})
		return
	}
	if req.Delta == 0 {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "delta must be non-zero"})
		return
	}

	qty, err := s.service.UpdateStock(r.Context(), path, req.Finish, req.ItemNo, req.Delta)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stockUpdateResponse{ItemNo: req.ItemNo, Quantity: qty})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	hits, err := s.service.SearchItemsAdvanced(r.Context(), term)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hits)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, ok := parseIntParam(r, "threshold")
	if !ok {
		s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "threshold query parameter is required"})
		return
	}

	hits, err := s.service.GetLowStockItems(r.Context(), threshold)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hits)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	csvData, err := s.service.ExportAllToCSV(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := "inventory-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(csvData))
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	maxAge := s.cfg.Retention.MaxAge
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			s.respondError(w, r, &inventory.InvalidArgumentError{Reason: "max_age must be a duration like 720h"})
			return
		}
		maxAge = d
	}

	result, err := s.service.CleanupOldFiles(r.Context(), maxAge)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseIntParam(r, "limit")
	if !ok {
		limit = 50
	}

	entries, err := s.service.RecentActivity(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []inventory.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// statusResponse summarizes engine state for monitoring.
type statusResponse struct {
	Files  int                      `json:"files"`
	Ingest core.IngestLimiterStatus `json:"ingest"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Files:  s.service.FileCount(),
		Ingest: s.service.IngestLimiterStatus(),
	})
}
