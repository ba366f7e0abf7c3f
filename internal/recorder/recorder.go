// Package recorder optionally persists polled readings to a local SQLite
// database. Recording is off by default; the monitor and sampler receive a
// no-op collector in that case.
package recorder

import (
	"context"
	"time"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"codeberg.org/helvik/tapowatt/internal/logger"
)

const (
	ErrInvalidConfig    = errors.ErrorCode("recorder_invalid_config")
	ErrInvalidDBPath    = errors.ErrorCode("recorder_invalid_db_path")
	ErrInvalidReading   = errors.ErrorCode("recorder_invalid_reading")
	ErrStorageInit      = errors.ErrorCode("recorder_storage_init_failed")
	ErrStorageAccess    = errors.ErrorCode("recorder_storage_access_failed")
	ErrStorageClose     = errors.ErrorCode("recorder_storage_close_failed")
	ErrOperationTimeout = errors.ErrorCode("recorder_operation_timeout")
)

// Mode tags a reading with the operation that produced it
type Mode string

const (
	ModeMeasure Mode = "measure"
	ModeMonitor Mode = "monitor"
)

// Reading is one persisted poll result
type Reading struct {
	Timestamp time.Time
	Watts     float64
	Mode      Mode
}

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, reading *Reading) error
	Close() error
}

type Config struct {
	DBPath  string
	Enabled bool
}

func (c Config) Validate() error {
	if c.Enabled && c.DBPath == "" {
		return errors.New(ErrInvalidDBPath)
	}

	return nil
}

type service struct {
	repo Repository
}

type noopCollector struct{}

// NewService returns a collector backed by SQLite, or a no-op collector
// when recording is disabled.
func NewService(cfg Config) (Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Recording disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, reading *Reading) error {
	if reading == nil {
		return errors.New(ErrInvalidReading)
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(ctx, reading); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Close() error {
	return s.repo.Close()
}

func (*noopCollector) Record(_ context.Context, _ *Reading) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
