// Package config loads node settings from defaults, an optional TOML file,
// .env files, SENSORNODE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/metrics"
	"codeberg.org/mutker/sensornode/internal/sampling"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "SENSORNODE"
	configName       = "sensornode"
	configType       = "toml"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Clock    ClockConfig    `mapstructure:"clock"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	PID      PIDConfig      `mapstructure:"pid"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Enabled bool   `mapstructure:"enabled"`
}

type LoopConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type ClockConfig struct {
	OffsetMs uint32 `mapstructure:"offset_ms"`
}

// TasksConfig holds the scheduler period of each task in milliseconds.
type TasksConfig struct {
	HeartbeatMs uint32 `mapstructure:"heartbeat_ms"`
	SampleMs    uint32 `mapstructure:"sample_ms"`
	PowerMs     uint32 `mapstructure:"power_ms"`
	CLIMs       uint32 `mapstructure:"cli_ms"`
}

// SamplingConfig holds the sampling interval per power mode; 0 disables
// sampling in that mode.
type SamplingConfig struct {
	ActiveMs uint32 `mapstructure:"active_ms"`
	IdleMs   uint32 `mapstructure:"idle_ms"`
	SleepMs  uint32 `mapstructure:"sleep_ms"`
	StopMs   uint32 `mapstructure:"stop_ms"`
}

type SensorConfig struct {
	FailEvery uint64 `mapstructure:"fail_every"`
}

type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type PIDConfig struct {
	Dir string `mapstructure:"dir"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"loop-interval": "loop.interval",
	"fail-every":    "sensor.fail_every",
	"metrics":       "metrics.enabled",
	"metrics-db":    "metrics.db_path",
	"pid-dir":       "pid.dir",
}

func setDefaults(v *viper.Viper) {
	def := metrics.DefaultConfig()
	periods := sampling.Default()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.enabled", true)
	v.SetDefault("loop.interval", time.Millisecond)
	v.SetDefault("clock.offset_ms", 0)
	v.SetDefault("tasks.heartbeat_ms", 500)
	v.SetDefault("tasks.sample_ms", 1000)
	v.SetDefault("tasks.power_ms", 500)
	v.SetDefault("tasks.cli_ms", 20)
	v.SetDefault("sampling.active_ms", periods.Active)
	v.SetDefault("sampling.idle_ms", periods.Idle)
	v.SetDefault("sampling.sleep_ms", periods.Sleep)
	v.SetDefault("sampling.stop_ms", periods.Stop)
	v.SetDefault("sensor.fail_every", 0)
	v.SetDefault("metrics.enabled", def.Enabled)
	v.SetDefault("metrics.db_path", def.DBPath)
	v.SetDefault("metrics.batch_size", def.BatchSize)
	v.SetDefault("metrics.batch_timeout", def.BatchTimeout)
	v.SetDefault("pid.dir", os.TempDir())
}

// RegisterFlags adds the node's command line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a TOML configuration file")
	fs.String("log-level", "info", "Minimum log level (debug, info, warn, error)")
	fs.Duration("loop-interval", time.Millisecond, "Delay between scheduler passes")
	fs.Uint64("fail-every", 0, "Fail every Nth simulated sensor read (0 disables)")
	fs.Bool("metrics", false, "Record samples and transitions to sqlite")
	fs.String("metrics-db", "", "Path to the metrics database")
	fs.String("pid-dir", "", "Directory holding the PID file")
}

// Load builds the configuration. fs may be nil; when it is not, it must
// already be parsed.
func Load(fs *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if fs != nil && o.configPath == "" {
		if path, err := fs.GetString("config"); err == nil {
			o.configPath = path
		}
	}

	// .env files are optional
	for _, file := range o.envFiles {
		_ = godotenv.Load(file)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, dir := range o.searchDirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if cfg.PID.Dir == "" {
		cfg.PID.Dir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Loop.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "loop.interval must be positive")
	}

	for key, ms := range map[string]uint32{
		"tasks.heartbeat_ms": c.Tasks.HeartbeatMs,
		"tasks.sample_ms":    c.Tasks.SampleMs,
		"tasks.power_ms":     c.Tasks.PowerMs,
		"tasks.cli_ms":       c.Tasks.CLIMs,
	} {
		if ms == 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, key+" must be positive")
		}
	}

	if c.Sampling.StopMs != 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "sampling.stop_ms must be 0")
	}

	if err := c.MetricsConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

// LogLevel returns the parsed minimum log level.
func (c *Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}

// Periods returns the sampling table.
func (c *Config) Periods() sampling.Periods {
	return sampling.Periods{
		Active: c.Sampling.ActiveMs,
		Idle:   c.Sampling.IdleMs,
		Sleep:  c.Sampling.SleepMs,
		Stop:   c.Sampling.StopMs,
	}
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:      c.Metrics.Enabled,
		DBPath:       c.Metrics.DBPath,
		BatchSize:    c.Metrics.BatchSize,
		BatchTimeout: c.Metrics.BatchTimeout,
	}
}
