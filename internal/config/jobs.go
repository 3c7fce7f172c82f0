package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// JobsConfig controls cadence and behaviour of the background jobs.
type JobsConfig struct {
	Heartbeat     HeartbeatJobConfig     `mapstructure:"heartbeat"`
	Replenishment ReplenishmentJobConfig `mapstructure:"replenishment"`
	Reminders     ReminderJobConfig      `mapstructure:"reminders"`
}

type HeartbeatJobConfig struct {
	Schedule     string        `mapstructure:"schedule"`
	LogPath      string        `mapstructure:"log_path"`
	ProbeURL     string        `mapstructure:"probe_url"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type ReplenishmentJobConfig struct {
	Schedule  string        `mapstructure:"schedule"`
	LogPath   string        `mapstructure:"log_path"`
	Threshold int           `mapstructure:"threshold"`
	Increment int           `mapstructure:"increment"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ReminderJobConfig struct {
	Schedule     string        `mapstructure:"schedule"`
	LogPath      string        `mapstructure:"log_path"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func DefaultJobsConfig() JobsConfig {
	return JobsConfig{
		Heartbeat: HeartbeatJobConfig{
			Schedule:     "*/5 * * * *",
			LogPath:      "/tmp/crm_heartbeat_log.txt",
			ProbeURL:     "http://localhost:8000/api/hello",
			ProbeTimeout: 5 * time.Second,
		},
		Replenishment: ReplenishmentJobConfig{
			Schedule:  "0 */12 * * *",
			LogPath:   "/tmp/low_stock_updates_log.txt",
			Threshold: 10,
			Increment: 10,
			Timeout:   time.Minute,
		},
		Reminders: ReminderJobConfig{
			Schedule:     "0 8 * * *",
			LogPath:      "/tmp/order_reminders_log.txt",
			LookbackDays: 7,
			Timeout:      time.Minute,
		},
	}
}

type JobsConfigHolder struct {
	current atomic.Value // holds JobsConfig
}

// NewStaticJobsConfigHolder wraps a fixed config; used by tests and tools.
func NewStaticJobsConfigHolder(cfg JobsConfig) *JobsConfigHolder {
	holder := &JobsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewJobsConfigHolder reads jobs.yml when present and watches it for changes.
// Schedules are read once by the scheduler at start; thresholds, paths and
// probe settings are re-read on every run.
func NewJobsConfigHolder() (*JobsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("jobs")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/crm")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setJobsDefaults(v, DefaultJobsConfig())

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg, err := decodeJobsConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticJobsConfigHolder(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeJobsConfig(v)
			if err != nil {
				zap.L().Warn("jobs config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("jobs config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *JobsConfigHolder) Get() JobsConfig {
	return h.current.Load().(JobsConfig)
}

func setJobsDefaults(v *viper.Viper, d JobsConfig) {
	v.SetDefault("jobs.heartbeat.schedule", d.Heartbeat.Schedule)
	v.SetDefault("jobs.heartbeat.log_path", d.Heartbeat.LogPath)
	v.SetDefault("jobs.heartbeat.probe_url", d.Heartbeat.ProbeURL)
	v.SetDefault("jobs.heartbeat.probe_timeout", d.Heartbeat.ProbeTimeout)
	v.SetDefault("jobs.replenishment.schedule", d.Replenishment.Schedule)
	v.SetDefault("jobs.replenishment.log_path", d.Replenishment.LogPath)
	v.SetDefault("jobs.replenishment.threshold", d.Replenishment.Threshold)
	v.SetDefault("jobs.replenishment.increment", d.Replenishment.Increment)
	v.SetDefault("jobs.replenishment.timeout", d.Replenishment.Timeout)
	v.SetDefault("jobs.reminders.schedule", d.Reminders.Schedule)
	v.SetDefault("jobs.reminders.log_path", d.Reminders.LogPath)
	v.SetDefault("jobs.reminders.lookback_days", d.Reminders.LookbackDays)
	v.SetDefault("jobs.reminders.timeout", d.Reminders.Timeout)
}

func decodeJobsConfig(v *viper.Viper) (JobsConfig, error) {
	// Unmarshal merges defaults per leaf key; UnmarshalKey would take the
	// file's jobs subtree as a whole.
	var root struct {
		Jobs JobsConfig `mapstructure:"jobs"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return JobsConfig{}, err
	}
	if err := validateJobsConfig(root.Jobs); err != nil {
		return JobsConfig{}, err
	}
	return root.Jobs, nil
}

func validateJobsConfig(cfg JobsConfig) error {
	if cfg.Replenishment.Threshold <= 0 {
		return errors.New("jobs.replenishment.threshold must be positive")
	}
	if cfg.Replenishment.Increment <= 0 {
		return errors.New("jobs.replenishment.increment must be positive")
	}
	if cfg.Reminders.LookbackDays <= 0 {
		return errors.New("jobs.reminders.lookback_days must be positive")
	}
	if strings.TrimSpace(cfg.Heartbeat.LogPath) == "" ||
		strings.TrimSpace(cfg.Replenishment.LogPath) == "" ||
		strings.TrimSpace(cfg.Reminders.LogPath) == "" {
		return errors.New("jobs log paths cannot be empty")
	}
	return nil
}
