package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notewire/notewire/internal/config"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/injector"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "notewired",
		Short:        "Note synchronization daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "notewired:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := injector.ProvideApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("assemble daemon: %w", err)
	}
	defer app.Shutdown()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	loggedOut := make(chan struct{})
	session := app.StartSession(ctx, func() { close(loggedOut) })

	app.Logger.Info("Daemon started",
		log.String("backend", cfg.Backend.URL))

	select {
	case sig := <-stopCh:
		app.Logger.Info("Shutting down", log.String("signal", sig.String()))
	case <-loggedOut:
		app.Logger.Info("Logged out, shutting down")
	case <-ctx.Done():
	}

	if !session.Ended() {
		// leave pending debounce windows a moment to flush
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
