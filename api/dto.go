package api

import (
	"time"

	"github.com/comfyqueue/scheduler/job"
)

// jobDTO is the wire representation of a job.Job, matching the field set
// original_source/comfyui_agent/ui_server.py returned from sqlite rows.
type jobDTO struct {
	ID               int64      `json:"id"`
	ConfigName       string     `json:"config_name"`
	JobType          string     `json:"job_type"`
	WorkflowID       string     `json:"workflow_id"`
	Priority         int        `json:"priority"`
	Status           string     `json:"status"`
	RunCount         int        `json:"run_count"`
	RetriesAttempted int        `json:"retries_attempted"`
	RetryLimit       int        `json:"retry_limit"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	DurationSeconds  *float64   `json:"duration_seconds,omitempty"`
	ErrorTrace       string     `json:"error_trace,omitempty"`
	WorkerID         string     `json:"worker_id,omitempty"`
}

func toDTO(j *job.Job) jobDTO {
	dto := jobDTO{
		ID:               j.ID,
		ConfigName:       j.ConfigName,
		JobType:          j.JobType.String(),
		WorkflowID:       j.WorkflowID,
		Priority:         j.Priority,
		Status:           j.Status.String(),
		RunCount:         j.RunCount,
		RetriesAttempted: j.RetriesAttempted,
		RetryLimit:       j.RetryLimit,
		StartTime:        j.StartTime,
		EndTime:          j.EndTime,
		ErrorTrace:       j.ErrorTrace,
		WorkerID:         j.WorkerID,
	}
	if j.Duration != nil {
		s := j.Duration.Seconds()
		dto.DurationSeconds = &s
	}
	return dto
}

func toDTOs(jobs []*job.Job) []jobDTO {
	out := make([]jobDTO, len(jobs))
	for i, j := range jobs {
		out[i] = toDTO(j)
	}
	return out
}

// priorityUpdateRequest is the body of PUT /api/queue/{config_name}/priority.
type priorityUpdateRequest struct {
	Priority int `json:"priority" validate:"required,min=1,max=999"`
}

// bulkIDsRequest is the body shared by the bulk-retry and bulk-delete
// endpoints.
type bulkIDsRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// sqlRequest is the body of POST /api/sql.
type sqlRequest struct {
	Query string `json:"query" validate:"required"`
}

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	TotalJobs          int64            `json:"total_jobs"`
	ByStatus           map[string]int64 `json:"by_status"`
	AverageDurationSec float64          `json:"avg_duration_seconds"`
}
