package repository

import (
	"context"

	"github.com/smallbiznis/crm/internal/jobrun/domain"
	"gorm.io/gorm"
)

const maxListLimit = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, run *domain.JobRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) Finish(ctx context.Context, db *gorm.DB, run *domain.JobRun) error {
	return db.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":      run.Status,
			"message":     run.Message,
			"metadata":    run.Metadata,
			"finished_at": run.FinishedAt,
		}).Error
}

// List returns the most recent runs first.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListJobRunFilter) ([]domain.JobRun, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}

	var runs []domain.JobRun
	stmt := db.WithContext(ctx).Model(&domain.JobRun{})
	if filter.Job != "" {
		stmt = stmt.Where("job = ?", filter.Job)
	}
	err := stmt.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
