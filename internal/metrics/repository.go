package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// repository buffers records and writes them in one transaction once the
// batch is full or FlushDue sees the batch timeout expire. Flushing is
// driven by the caller; there is no background goroutine.
type repository struct {
	db        *sql.DB
	logger    logger.Logger
	cfg       Config
	mu        sync.Mutex
	samples   []*SampleRecord
	trans     []*TransitionRecord
	lastFlush time.Time
	closed    bool
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository initialized")

	return &repository{
		db:        db,
		logger:    log,
		cfg:       cfg,
		samples:   make([]*SampleRecord, 0, cfg.BatchSize),
		lastFlush: time.Now(),
	}, nil
}

func (r *repository) AddSample(rec *SampleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrStorageClose)
	}

	r.samples = append(r.samples, rec)

	return r.flushIfFull()
}

func (r *repository) AddTransition(rec *TransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrStorageClose)
	}

	r.trans = append(r.trans, rec)

	return r.flushIfFull()
}

func (r *repository) FlushDue(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.BatchTimeout <= 0 || now.Sub(r.lastFlush) < r.cfg.BatchTimeout {
		return nil
	}

	return r.flush(now)
}

func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush(time.Now())
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.flush(time.Now()); err != nil {
		r.logger.Error().Err(err).Msg("Failed to flush metrics on close")
	}

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Metrics repository closed gracefully")

	return nil
}

func (r *repository) pending() int {
	return len(r.samples) + len(r.trans)
}

func (r *repository) flushIfFull() error {
	if r.pending() < r.cfg.BatchSize {
		return nil
	}
	return r.flush(time.Now())
}

func (r *repository) flush(now time.Time) error {
	r.lastFlush = now

	if r.pending() == 0 {
		return nil
	}

	if err := r.writeBatch(); err != nil {
		r.discardOverflow()
		return err
	}

	r.logger.Debug().
		Int("samples", len(r.samples)).
		Int("transitions", len(r.trans)).
		Msg("Flushed metrics to database")

	r.samples = r.samples[:0]
	r.trans = r.trans[:0]

	return nil
}

// discardOverflow drops everything buffered once failed flushes have let
// the buffer reach maxPendingBatches batches.
func (r *repository) discardOverflow() {
	if r.pending() < r.cfg.BatchSize*maxPendingBatches {
		return
	}

	r.logger.Warn().
		Int("samples", len(r.samples)).
		Int("transitions", len(r.trans)).
		Msg("Metrics buffer full after failed flushes, dropping records")

	r.samples = r.samples[:0]
	r.trans = r.trans[:0]
}

func (r *repository) writeBatch() error {
	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	rollback := func(cause error) error {
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, cause)
	}

	for _, rec := range r.samples {
		if _, err := tx.Exec(insertSampleSQL,
			int64(rec.Tick), rec.Value, rec.Mode, rec.RecordedAt.Unix()); err != nil {
			r.logger.Error().Err(err).Msg("Failed to insert sample")
			return rollback(err)
		}
	}

	for _, rec := range r.trans {
		if _, err := tx.Exec(insertTransitionSQL,
			int64(rec.Tick), rec.From, rec.To, rec.RecordedAt.Unix()); err != nil {
			r.logger.Error().Err(err).Msg("Failed to insert transition")
			return rollback(err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	return nil
}
