package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// JobRun is one execution of a scheduled job.
type JobRun struct {
	ID            snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Job           string            `gorm:"size:64;not null;index:ix_job_runs_job_started,priority:1" json:"job"`
	CorrelationID string            `gorm:"size:26;not null" json:"correlation_id"`
	Status        Status            `gorm:"size:16;not null" json:"status"`
	Message       string            `gorm:"type:text" json:"message,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	StartedAt     time.Time         `gorm:"not null;index:ix_job_runs_job_started,priority:2" json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

func (JobRun) TableName() string {
	return "job_runs"
}

type ListJobRunFilter struct {
	Job   string
	Limit int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, run *JobRun) error
	Finish(ctx context.Context, db *gorm.DB, run *JobRun) error
	List(ctx context.Context, db *gorm.DB, filter ListJobRunFilter) ([]JobRun, error)
}

type Service interface {
	List(ctx context.Context, filter ListJobRunFilter) ([]JobRun, error)
}
