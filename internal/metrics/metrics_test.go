package metrics_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/metrics"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) metrics.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(dir, "metrics.db")
	cfg.BackupDir = filepath.Join(dir, "backups")
	cfg.BatchSize = 4
	cfg.BatchTimeout = time.Minute

	return cfg
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}

func TestDisabledUsesNoopRecorder(t *testing.T) {
	rec, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.False(t, rec.Enabled())
	assert.NoError(t, rec.RecordSample(context.Background(), &metrics.SampleRecord{Tick: 1}))
	assert.NoError(t, rec.RecordTransition(context.Background(), &metrics.TransitionRecord{Tick: 1}))
	assert.NoError(t, rec.FlushDue(time.Now()))
	assert.NoError(t, rec.Flush())
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*metrics.Config)
		wantErr bool
	}{
		{"disabled without path", func(c *metrics.Config) { c.DBPath = "" }, false},
		{"enabled without path", func(c *metrics.Config) { c.Enabled = true; c.DBPath = "" }, true},
		{"zero batch", func(c *metrics.Config) { c.Enabled = true; c.BatchSize = 0 }, true},
		{"negative timeout", func(c *metrics.Config) { c.Enabled = true; c.BatchTimeout = -time.Second }, true},
		{"enabled defaults", func(c *metrics.Config) { c.Enabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := metrics.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""

	_, err := metrics.NewService(cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidConfig))
}

func TestRecordsAreBatched(t *testing.T) {
	cfg := testConfig(t)
	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, rec.RecordSample(ctx, &metrics.SampleRecord{
			Tick: uint32(1000 * (i + 1)), Value: 25.5, Mode: "ACTIVE", RecordedAt: now,
		}))
	}
	assert.Zero(t, countRows(t, cfg.DBPath, "samples"), "batch not yet full")

	require.NoError(t, rec.RecordTransition(ctx, &metrics.TransitionRecord{
		Tick: 3500, From: "ACTIVE", To: "SLEEP", RecordedAt: now,
	}))
	assert.Equal(t, 3, countRows(t, cfg.DBPath, "samples"))
	assert.Equal(t, 1, countRows(t, cfg.DBPath, "transitions"))
}

func TestFlushDueHonoursBatchTimeout(t *testing.T) {
	cfg := testConfig(t)
	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.RecordSample(context.Background(), &metrics.SampleRecord{Tick: 1, Mode: "IDLE"}))

	require.NoError(t, rec.FlushDue(time.Now()))
	assert.Zero(t, countRows(t, cfg.DBPath, "samples"))

	require.NoError(t, rec.FlushDue(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, countRows(t, cfg.DBPath, "samples"))
}

func TestCloseFlushesPending(t *testing.T) {
	cfg := testConfig(t)
	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, rec.RecordSample(context.Background(), &metrics.SampleRecord{Tick: 7, Value: 22.1, Mode: "ACTIVE"}))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "second close is a no-op")

	assert.Equal(t, 1, countRows(t, cfg.DBPath, "samples"))

	err = rec.RecordSample(context.Background(), &metrics.SampleRecord{Tick: 8})
	assert.Error(t, err)
}

func TestFailedFlushesDropBufferAtCap(t *testing.T) {
	cfg := testConfig(t)
	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("ALTER TABLE samples RENAME TO samples_offline")
	require.NoError(t, err)

	ctx := context.Background()
	var failed int
	for i := 0; i < 5*cfg.BatchSize; i++ {
		if err := rec.RecordSample(ctx, &metrics.SampleRecord{Tick: uint32(i), Mode: "ACTIVE"}); err != nil {
			failed++
		}
	}
	// adds 4..16 fail until the cap drops the buffer, then add 20 fails again
	assert.Equal(t, 14, failed)

	_, err = db.Exec("ALTER TABLE samples_offline RENAME TO samples")
	require.NoError(t, err)

	// 16 records were dropped at the cap, the last batch is still buffered.
	require.NoError(t, rec.Flush())
	assert.Equal(t, cfg.BatchSize, countRows(t, cfg.DBPath, "samples"))
}

func TestRecordRejectsNilAndCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	err = rec.RecordSample(context.Background(), nil)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidMetrics))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = rec.RecordTransition(ctx, &metrics.TransitionRecord{})
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func TestSchemaMismatchIsBackedUpAndRecreated(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rec, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	backups, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, backups[0].Name(), "metrics_v99_")

	db, err = sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, metrics.SchemaVersion, version)
}
