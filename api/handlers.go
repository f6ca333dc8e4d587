package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "comfyqueue-scheduler"})
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	status := job.Unknown
	if statusParam != "" {
		parsed, err := job.ParseStatus(statusParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status: "+statusParam)
			return
		}
		status = parsed
	}

	jobs, err := s.store.ListByStatus(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(jobs))
}

func (s *Server) handleListAllJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListByStatus(r.Context(), job.Unknown)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(jobs))
}

func (s *Server) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "configName")
	j, err := s.store.GetByConfigName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(j))
}

func (s *Server) handleUpdatePriority(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "configName")

	var body priorityUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SetPriority(r.Context(), name, body.Priority); err != nil {
		s.respondStoreErr(w, err)
		return
	}

	j, err := s.store.GetByConfigName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDTO(j))
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "configName")

	if err := s.store.Retry(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			writeError(w, http.StatusBadRequest, "job is not failed, cannot retry")
			return
		}
		s.respondStoreErr(w, err)
		return
	}

	j, err := s.store.GetByConfigName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDTO(j))
}

func (s *Server) handleGodMode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "configName")

	if err := s.store.GodMode(r.Context(), name); err != nil {
		s.respondStoreErr(w, err)
		return
	}

	j, err := s.store.GetByConfigName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDTO(j))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[status.String()] = count
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalJobs:          stats.Total,
		ByStatus:           byStatus,
		AverageDurationSec: stats.AverageDurationSec,
	})
}

func (s *Server) handleRetryAllFailed(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.RetryAllFailed(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "retried": count})
}

func (s *Server) handleCancelAllPending(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CancelAllPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "cancelled": count})
}

func (s *Server) handleBulkRetry(w http.ResponseWriter, r *http.Request) {
	var body bulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "no IDs provided")
		return
	}

	count, err := s.store.BulkRetry(r.Context(), body.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "retried": count})
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var body bulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "no IDs provided")
		return
	}

	count, err := s.store.BulkDelete(r.Context(), body.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted": count})
}

func (s *Server) handleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var body sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}

	result, err := s.store.ExecuteSQL(r.Context(), body.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Columns != nil {
		rows := make([]map[string]any, len(result.Rows))
		for i, row := range result.Rows {
			m := make(map[string]any, len(result.Columns))
			for j, col := range result.Columns {
				if j < len(row) {
					m[col] = row[j]
				}
			}
			rows[i] = m
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type": "select", "columns": result.Columns, "rows": rows, "count": len(rows),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"type": "update", "affected_rows": result.RowsAffected})
}

func (s *Server) respondStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
