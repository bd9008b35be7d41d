// Package node wires the scheduler, power controller, sensor sampling,
// command interpreter and metrics recorder into one cooperative loop.
package node

import (
	"context"
	"io"
	"time"

	"codeberg.org/mutker/sensornode/internal/cli"
	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/config"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/indicator"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/metrics"
	"codeberg.org/mutker/sensornode/internal/power"
	"codeberg.org/mutker/sensornode/internal/scheduler"
	"codeberg.org/mutker/sensornode/internal/sensor"
	"codeberg.org/mutker/sensornode/internal/transport"
)

const metricsFlushMs = 1000

// Deps are the node's collaborators. Transport is required; everything else
// falls back to a host implementation built from the configuration.
type Deps struct {
	Transport transport.Transport
	Clock     clock.Clock
	Sensor    sensor.Sensor
	LED       indicator.LED
	Recorder  metrics.Recorder
	// LogOutput receives framed log lines. Defaults to Transport.
	LogOutput io.Writer
}

type Node struct {
	cfg       *config.Config
	clock     clock.Clock
	transport transport.Transport
	sensor    sensor.Sensor
	led       indicator.LED
	recorder  metrics.Recorder
	logState  *logger.State
	logger    *logger.Console

	sched  *scheduler.Scheduler
	power  *power.Controller
	sample *sensor.SampleTask
	cli    *cli.Interpreter
}

func New(cfg *config.Config, deps Deps) (*Node, error) {
	errFactory := errors.New()

	if cfg == nil || deps.Transport == nil {
		return nil, errFactory.WithData(errors.ErrInitNode, "config and transport are required")
	}

	n := &Node{
		cfg:       cfg,
		clock:     deps.Clock,
		transport: deps.Transport,
		sensor:    deps.Sensor,
		led:       deps.LED,
		recorder:  deps.Recorder,
		logState:  logger.NewState(cfg.Log.Enabled, cfg.LogLevel()),
	}

	if n.clock == nil {
		n.clock = clock.NewHost(cfg.Clock.OffsetMs)
	}
	if n.sensor == nil {
		n.sensor = sensor.NewSimTemp(n.clock, cfg.Sensor.FailEvery)
	}
	if n.led == nil {
		n.led = indicator.NewHostLED()
	}

	out := deps.LogOutput
	if out == nil {
		out = deps.Transport
	}
	n.logger = logger.New(out, n.clock, n.logState)

	if n.recorder == nil {
		rec, err := metrics.NewService(cfg.MetricsConfig(), n.logger)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
		}
		n.recorder = rec
	}

	n.sched = scheduler.New(n.clock, n.logger)

	return n, nil
}

// Init brings the node up in firmware order: scheduler, power controller,
// sensor, task registration, then the command interpreter. A sensor that
// fails to initialize is logged and sampled anyway.
func (n *Node) Init() {
	n.logger.Info().Msg("Application initialization started")

	n.sched.Init()
	n.power = power.New(n.clock, n.logger)

	if err := n.sensor.Init(); err != nil {
		n.logger.ErrorWithCode(errors.New().Wrap(errors.ErrSensorInit, err)).
			Msg("Sensor initialization failed")
	}

	n.sample = sensor.NewSampleTask(n.sensor, n.power, n.cfg.Periods(), n.clock, n.logger)

	n.cli = cli.New(n.transport, n.logState, n.power, n.cfg.Periods(), n.logger)
	n.cli.SetTaskSource(n.sched)

	if n.recorder.Enabled() {
		n.sample.OnSample(n.recordSample)
		n.power.OnTransition(n.recordTransition)
	}

	tasks := n.cfg.Tasks
	for _, t := range []*scheduler.Task{
		{Name: "Heartbeat", Period: tasks.HeartbeatMs, Action: n.heartbeat},
		{Name: "SensorSample", Period: tasks.SampleMs, Action: n.sample.Run},
		{Name: "PowerManager", Period: tasks.PowerMs, Action: n.power.Update},
		{Name: "CLI", Period: tasks.CLIMs, Action: n.cli.Process},
	} {
		// rejections are logged by the scheduler
		_ = n.sched.Register(t)
	}

	if n.recorder.Enabled() {
		_ = n.sched.Register(&scheduler.Task{Name: "MetricsFlush", Period: metricsFlushMs, Action: n.flushMetrics})
	}

	n.logger.Info().Msg("Application initialization completed")

	n.cli.Start()
}

// Step runs one scheduler pass.
func (n *Node) Step() {
	n.sched.RunOnce()
}

// Run calls Step every loop interval until ctx is cancelled, then flushes
// buffered metrics.
func (n *Node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.Loop.Interval)
	defer ticker.Stop()

	for {
		n.Step()

		select {
		case <-ctx.Done():
			if err := n.recorder.Flush(); err != nil {
				n.warn(err, errors.ErrCollectMetrics, "Metrics: final flush failed")
			}
			return nil
		case <-ticker.C:
		}
	}
}

// Close detaches the interpreter and closes the metrics recorder.
func (n *Node) Close() error {
	if n.cli != nil {
		n.cli.Stop()
	}

	if err := n.recorder.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func (n *Node) Logger() *logger.Console { return n.logger }
func (n *Node) LogState() *logger.State { return n.logState }
func (n *Node) Power() *power.Controller { return n.power }
func (n *Node) Scheduler() *scheduler.Scheduler { return n.sched }
func (n *Node) CLI() *cli.Interpreter { return n.cli }
func (n *Node) SampleTask() *sensor.SampleTask { return n.sample }
func (n *Node) Recorder() metrics.Recorder { return n.recorder }

func (n *Node) heartbeat() {
	n.led.Toggle()
	n.logger.Info().Msg("Heartbeat task toggled LED")
}

func (n *Node) recordSample(s sensor.Sample, mode power.Mode) {
	err := n.recorder.RecordSample(context.Background(), &metrics.SampleRecord{
		Tick:       s.Timestamp,
		Value:      s.Value,
		Mode:       mode.String(),
		RecordedAt: time.Now(),
	})
	if err != nil {
		n.warn(err, errors.ErrCollectMetrics, "Metrics: failed to record sample")
	}
}

func (n *Node) recordTransition(tr power.Transition) {
	err := n.recorder.RecordTransition(context.Background(), &metrics.TransitionRecord{
		Tick:       tr.Tick,
		From:       tr.From.String(),
		To:         tr.To.String(),
		RecordedAt: time.Now(),
	})
	if err != nil {
		n.warn(err, errors.ErrCollectMetrics, "Metrics: failed to record transition")
	}
}

func (n *Node) flushMetrics() {
	if err := n.recorder.FlushDue(time.Now()); err != nil {
		n.warn(err, errors.ErrCollectMetrics, "Metrics: flush failed")
	}
}

func (n *Node) warn(err error, code errors.ErrorCode, msg string) {
	var e errors.Error
	if !errors.As(err, &e) {
		e = errors.New().Wrap(code, err)
	}
	n.logger.WarnWithCode(e).Msg(msg)
}
