package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/sensornode/internal/config"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/node"
	"codeberg.org/mutker/sensornode/internal/pid"
	"codeberg.org/mutker/sensornode/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var rootCmd = &cobra.Command{
	Use:   "sensornode",
	Short: "Power-aware sensor node with a serial-style command line",
	Long: `sensornode runs a cooperative task loop that samples a simulated
temperature sensor at a rate chosen by the current power mode.

The command line is served on stdin/stdout. Type 'help' once it is ready.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
	rootCmd.Flags().Bool("debug", false, "Log bootstrap messages at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	errFactory := errors.New()

	debug, _ := cmd.Flags().GetBool("debug")
	boot := logger.Bootstrap(os.Stderr, debug)

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		boot.Error().Err(err).Msg("Failed to load config")
		return err
	}
	boot.Debug().Str("pid_dir", cfg.PID.Dir).Bool("metrics", cfg.Metrics.Enabled).Msg("Config loaded")

	if err := pid.Write(cfg.PID.Dir); err != nil {
		boot.Error().Err(err).Msg("Failed to write PID file")
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PID.Dir); err != nil {
			boot.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	link := transport.NewStdio(gctx, os.Stdin, os.Stdout)
	defer link.Close()

	n, err := node.New(cfg, node.Deps{Transport: link})
	if err != nil {
		boot.Error().Err(err).Msg("Failed to create node")
		return errFactory.Wrap(errors.ErrInitNode, err)
	}
	n.Init()

	g.Go(func() error {
		if err := n.Run(gctx); err != nil {
			return errFactory.Wrap(errors.ErrMainLoop, err)
		}
		return nil
	})

	// the node keeps running after stdin closes
	g.Go(func() error {
		select {
		case <-link.Done():
			boot.Debug().Msg("Console input closed")
		case <-gctx.Done():
		}
		return nil
	})

	runErr := g.Wait()

	if err := n.Close(); err != nil {
		boot.Error().Err(err).Msg("Failed to shut down node")
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		boot.Error().Err(runErr).Msg("Error in main loop")
		return runErr
	}

	boot.Info().Msg("Exiting...")

	return nil
}
