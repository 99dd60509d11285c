// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/promoscout/promoscout/internal/api"
	"github.com/promoscout/promoscout/internal/app"
	"github.com/promoscout/promoscout/internal/config"
	"github.com/promoscout/promoscout/internal/schedule"
)

func main() {
	godotenv.Load()

	configFile := flag.String("config", "configs/promoscout.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	server := api.NewServer(application.Store, application.Pipeline, application.Logger, api.Options{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:  cfg.Server.WriteTimeoutDuration(),
		Metrics:       application.Metrics,
		EnableMetrics: cfg.Server.EnableMetrics,
	})

	if cfg.Schedule.Enabled {
		scheduler := schedule.New(
			schedule.RunnerFunc(func(ctx context.Context) error {
				_, err := application.Pipeline.RunOnce(ctx)
				return err
			}),
			application.Logger,
			schedule.Options{
				Interval:   cfg.Schedule.IntervalDuration(),
				RunOnStart: cfg.Schedule.RunOnStart,
			},
		)
		go scheduler.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	application.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
