// Package heartbeat appends a liveness line to the heartbeat log on every
// tick, optionally probing the HTTP API first.
package heartbeat

import (
	"context"
	"strings"

	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/logsink"
	obslogger "github.com/smallbiznis/crm/internal/observability/logger"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobName = "heartbeat"

	timestampLayout = "02/01/2006-15:04:05"

	suffixResponsive    = " - GraphQL endpoint responsive"
	suffixNotResponding = " - GraphQL endpoint not responding"
	suffixCheckFailed   = " - GraphQL check failed: "
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Jobs    *config.JobsConfigHolder
	Sinks   *logsink.Registry
	Prober  Prober
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	jobs    *config.JobsConfigHolder
	sinks   *logsink.Registry
	prober  Prober
	metrics *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		log:     p.Log.Named("heartbeat"),
		clock:   p.Clock,
		jobs:    p.Jobs,
		sinks:   p.Sinks,
		prober:  p.Prober,
		metrics: p.Metrics,
	}
}

// Beat builds and records one heartbeat line and returns it.
func (s *Service) Beat(ctx context.Context) string {
	cfg := s.jobs.Get().Heartbeat
	log := obslogger.WithContext(ctx, s.log)

	line := s.clock.Now().Format(timestampLayout) + " CRM is alive"
	line += s.probe(ctx, cfg)

	sink, err := s.sinks.Open(cfg.LogPath)
	if err == nil {
		err = sink.WriteLine(line)
	}
	if err != nil {
		log.Warn("heartbeat log write failed", zap.String("path", cfg.LogPath), zap.Error(err))
	}

	log.Info(line)
	return line
}

// Run is the scheduled entry point. A heartbeat never fails its run.
func (s *Service) Run(ctx context.Context) error {
	s.Beat(ctx)
	return nil
}

func (s *Service) probe(ctx context.Context, cfg config.HeartbeatJobConfig) string {
	url := strings.TrimSpace(cfg.ProbeURL)
	if url == "" || s.prober == nil {
		s.metrics.IncHeartbeat("skipped")
		return ""
	}

	if cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ProbeTimeout)
		defer cancel()
	}

	ok, err := s.prober.Probe(ctx, url)
	switch {
	case err != nil:
		s.metrics.IncHeartbeat("error")
		obslogger.WithContext(ctx, s.log).Debug("heartbeat probe failed",
			zap.Error(apperror.Probe("hello probe failed", err)))
		return suffixCheckFailed + err.Error()
	case ok:
		s.metrics.IncHeartbeat("ok")
		return suffixResponsive
	default:
		s.metrics.IncHeartbeat("down")
		return suffixNotResponding
	}
}
