package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"protonfusion/internal/app"
	"protonfusion/internal/config"
	"protonfusion/internal/logger"
	"protonfusion/internal/opencv/codec"
	"protonfusion/internal/opencv/memory"
)

var (
	// Global flags
	configPath string
	logLevel   string
	timeout    time.Duration

	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "protonfusion",
	Short: "Symbolic image fusion with element-driven transforms",
	Long: `protonfusion recolours an image with Fibonacci and element-table modulation,
derives a quantum-resonance variant, and fuses them into a composite chosen by a
perspective mode (direct, mirror, mutual). Every composite is tagged with a short
code and glyph and recorded in the snapshot log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		log = logger.NewConsoleLogger(logger.ParseLevel(cfg.Logging.Level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "protonfusion.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(glyphCmd)
	rootCmd.AddCommand(elementsCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext applies the timeout flag and cancels on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// newApplication builds the application, wiring the OpenCV codec when the
// configuration asks for it.
func newApplication(ctx context.Context) (*app.Application, error) {
	var opts []app.Option

	if cfg.Codec.Backend == config.BackendOpenCV {
		memoryManager := memory.NewManager(log, 0)
		memoryManager.Start(ctx, 30*time.Second)
		oc := codec.New(memoryManager, log, cfg.Output.JPEGQuality)
		opts = append(opts, app.WithCodec(oc, oc, memoryManager.Shutdown))
	}

	return app.NewApplication(cfg, log, opts...)
}

func shutdown(a *app.Application) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Error("Application", err, nil)
	}
}
