package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/comfyqueue/scheduler/job"
)

// jobModel is the bun row mapping for the jobs table, grounded on the
// teacher's sql/model.go jobModel, adapted to this domain's Job shape.
type jobModel struct {
	bun.BaseModel `bun:"table:jobs"`

	ID         int64  `bun:"id,pk,autoincrement"`
	ConfigName string `bun:"config_name,notnull,unique"`
	JobType    string `bun:"job_type,notnull"`
	WorkflowID string `bun:"workflow_id,notnull"`
	Priority   int    `bun:"priority,notnull"`
	Status     uint8  `bun:"status,notnull,default:1"`

	RunCount         int `bun:"run_count,notnull,default:0"`
	RetriesAttempted int `bun:"retries_attempted,notnull,default:0"`
	RetryLimit       int `bun:"retry_limit,notnull,default:0"`

	StartTime *time.Time     `bun:"start_time,nullzero"`
	EndTime   *time.Time     `bun:"end_time,nullzero"`
	DurationS *float64       `bun:"duration_seconds,nullzero"`
	ErrorText string         `bun:"error_trace,nullzero"`
	Metadata  []byte         `bun:"metadata,type:blob,nullzero"`

	WorkerID       string     `bun:"worker_id,nullzero"`
	LeaseExpiresAt *time.Time `bun:"lease_expires_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (m *jobModel) toJob() *job.Job {
	jobType, _ := job.ParseType(m.JobType)
	j := &job.Job{
		ID:               m.ID,
		ConfigName:       m.ConfigName,
		JobType:          jobType,
		WorkflowID:       m.WorkflowID,
		Priority:         m.Priority,
		Status:           job.Status(m.Status),
		RunCount:         m.RunCount,
		RetriesAttempted: m.RetriesAttempted,
		RetryLimit:       m.RetryLimit,
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		ErrorTrace:       m.ErrorText,
		Metadata:         m.Metadata,
		WorkerID:         m.WorkerID,
		LeaseExpiresAt:   m.LeaseExpiresAt,
	}
	if m.DurationS != nil {
		d := time.Duration(*m.DurationS * float64(time.Second))
		j.Duration = &d
	}
	return j
}

func toModels(ms []*jobModel) []*job.Job {
	out := make([]*job.Job, len(ms))
	for i, m := range ms {
		out[i] = m.toJob()
	}
	return out
}
