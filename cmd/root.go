package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/computer2mqtt/app"
	"github.com/kilianp07/computer2mqtt/config"
	"github.com/kilianp07/computer2mqtt/infra/logger"
)

// Version is overridden at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgPath   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "computer2mqtt",
	Short:         "Run local commands triggered by MQTT messages",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARNING, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json or console)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

var notifyContext = signal.NotifyContext

// shutdownContext returns a context cancelled by the first of sigs. The signal
// handler is released as soon as that happens, so a second signal during a
// slow shutdown gets the default action and kills the process.
func shutdownContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, stop := notifyContext(parent, sigs...)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logger.NewWithOptions("main", logger.Options{
		Level:  logLevel,
		Format: logFormat,
		Out:    cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := shutdownContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting computer2mqtt %s", Version)
	log.Infof("Loading configuration from %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		return fmt.Errorf("load config: %w", err)
	}
	cfg.LogSummary(log.With("config"))

	svc, err := app.New(cfg, log.With("service"))
	if err != nil {
		log.Errorf("Failed to start: %v", err)
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	if err := svc.Run(ctx); err != nil {
		return err
	}
	log.Infof("Shutdown complete")
	return nil
}
