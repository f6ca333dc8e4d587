package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/comfyqueue/scheduler/job"
)

var csvHeader = []string{
	"ID", "Config Name", "Job Type", "Workflow", "Priority", "Status",
	"Retries", "Retry Limit", "Error", "Worker", "Started", "Ended", "Duration (s)",
}

// handleExportCSV streams every job as a CSV attachment, grounded on
// export_jobs_csv.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListByStatus(r.Context(), job.Unknown)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs_export.csv"`)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return
	}
	for _, j := range jobs {
		_ = writer.Write(jobToCSVRow(j))
	}
}

func jobToCSVRow(j *job.Job) []string {
	started, ended, duration := "", "", ""
	if j.StartTime != nil {
		started = j.StartTime.Format("2006-01-02T15:04:05Z07:00")
	}
	if j.EndTime != nil {
		ended = j.EndTime.Format("2006-01-02T15:04:05Z07:00")
	}
	if j.Duration != nil {
		duration = strconv.FormatFloat(j.Duration.Seconds(), 'f', 2, 64)
	}
	return []string{
		strconv.FormatInt(j.ID, 10),
		j.ConfigName,
		j.JobType.String(),
		j.WorkflowID,
		strconv.Itoa(j.Priority),
		j.Status.String(),
		strconv.Itoa(j.RetriesAttempted),
		strconv.Itoa(j.RetryLimit),
		j.ErrorTrace,
		j.WorkerID,
		started,
		ended,
		duration,
	}
}
