package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/crm/internal/jobrun/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo}
}

func (s *Service) List(ctx context.Context, filter domain.ListJobRunFilter) ([]domain.JobRun, error) {
	filter.Job = strings.TrimSpace(filter.Job)
	runs, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	return runs, nil
}
