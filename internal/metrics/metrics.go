// Package metrics records sensor samples and power transitions into a local
// sqlite database.
package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Metrics service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) RecordSample(ctx context.Context, rec *SampleRecord) error {
	errFactory := errors.New()

	if rec == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.AddSample(rec); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

func (s *service) RecordTransition(ctx context.Context, rec *TransitionRecord) error {
	errFactory := errors.New()

	if rec == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.AddTransition(rec); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

func (s *service) FlushDue(now time.Time) error {
	if err := s.repo.FlushDue(now); err != nil {
		return errors.New().Wrap(ErrMetricsCollection, err)
	}
	return nil
}

func (s *service) Flush() error {
	if err := s.repo.Flush(); err != nil {
		return errors.New().Wrap(ErrMetricsCollection, err)
	}
	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) Enabled() bool {
	return true
}

// No-op implementation
func (*noopRecorder) RecordSample(_ context.Context, _ *SampleRecord) error {
	return nil
}

func (*noopRecorder) RecordTransition(_ context.Context, _ *TransitionRecord) error {
	return nil
}

func (*noopRecorder) FlushDue(_ time.Time) error {
	return nil
}

func (*noopRecorder) Flush() error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}

func (*noopRecorder) Enabled() bool {
	return false
}
