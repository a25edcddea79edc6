package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/formdrill/formdrill/internal/attempt"
	"github.com/formdrill/formdrill/internal/browser"
	"github.com/formdrill/formdrill/internal/config"
	"github.com/formdrill/formdrill/internal/dispatch"
	"github.com/formdrill/formdrill/internal/metrics"
	"github.com/formdrill/formdrill/internal/output"
	"github.com/formdrill/formdrill/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Debug().Err(err).Msg("tracing shutdown failed")
		}
	}()

	launcher, err := browser.NewPlaywrightLauncher(browser.LauncherOptions{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := launcher.Close(); err != nil {
			logger.Debug().Err(err).Msg("launcher close failed")
		}
	}()

	executor := attempt.NewExecutor(attempt.Options{
		PageURL:      cfg.PageURL,
		EndpointURL:  cfg.EndpointURL,
		BasePayload:  toBrowserFields(cfg.BasePayload),
		Marker:       cfg.Marker,
		WaitSelector: cfg.WaitSelector,
		NavTimeout:   cfg.NavTimeout,
	}, launcher, logger, provider.Tracer())

	collector := metrics.NewCollector()
	runID := attempt.NewRunID()

	if !cfg.JSONOutput {
		output.PrintHeader(os.Stdout, output.RunInfo{
			RunID:    runID,
			PageURL:  cfg.PageURL,
			Reps:     cfg.Reps,
			Parallel: cfg.Parallel,
			Workers:  cfg.Workers,
			Delay:    cfg.Delay,
			Headless: cfg.Headless,
		})
		if cfg.Parallel {
			output.PrintParallelStart(os.Stdout, cfg.Reps, cfg.Workers)
		}
	}

	next := 1
	onResult := func(res attempt.Result) {
		collector.RecordAttempt(res.Latency, res.OK, res.StatusLabel())
		if cfg.JSONOutput {
			return
		}
		output.PrintAttemptLine(os.Stdout, res)
		if !cfg.Parallel && next < cfg.Reps {
			next++
			output.PrintSequentialStart(os.Stdout, next, cfg.Reps)
		}
	}

	controller := dispatch.New(dispatch.Options{
		Reps:       cfg.Reps,
		Parallel:   cfg.Parallel,
		Workers:    cfg.Workers,
		Delay:      cfg.Delay,
		DelayStart: cfg.DelayStart,
		Rate:       cfg.Rate,
		Executor:   executor,
		OnResult:   onResult,
		Logger:     logger,
	})

	if !cfg.JSONOutput && !cfg.Parallel {
		output.PrintSequentialStart(os.Stdout, 1, cfg.Reps)
	}

	collector.Start()
	results := controller.Run(ctx)
	stats := collector.Stats(collector.Elapsed())

	if cfg.JSONOutput {
		return output.PrintJSONReport(os.Stdout, runID, results, stats)
	}

	output.PrintReport(os.Stdout, results, stats)
	return nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func toBrowserFields(fields []config.PayloadField) []browser.FormField {
	out := make([]browser.FormField, len(fields))
	for i, f := range fields {
		out[i] = browser.FormField{Name: f.Name, Value: f.Value}
	}
	return out
}
