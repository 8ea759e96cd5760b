package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/rootdomain/internal/rootdomain/common/clock"
	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/config"
	"github.com/haukened/rootdomain/internal/rootdomain/gateways/source"
	"github.com/haukened/rootdomain/internal/rootdomain/gateways/transport"
	"github.com/haukened/rootdomain/internal/rootdomain/repos/ruleset"
	"github.com/haukened/rootdomain/internal/rootdomain/repos/ruleset/bolt"
	"github.com/haukened/rootdomain/internal/rootdomain/services/extractor"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rootdomaind"
)

// Application holds all the components of the lookup server
type Application struct {
	config    *config.AppConfig
	transport *transport.HTTPTransport
	handler   http.Handler
	rules     *ruleset.Ruleset
	closers   []io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"app":             appName,
		"version":         version,
		"env":             cfg.Env,
		"log_level":       cfg.LogLevel,
		"listen":          cfg.Listen,
		"ruleset_path":    cfg.RulesetPath,
		"ruleset_urls":    cfg.RulesetURLs,
		"ruleset_private": cfg.RulesetPrivate,
		"snapshot_db":     cfg.SnapshotDB,
	}, "Starting root domain server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	app, err := buildApplication(ctx, cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error releasing resources")
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Error(map[string]any{"error": err}, "Server failed")
		return
	}

	log.Info(nil, "Root domain server stopped gracefully")
}

// buildApplication loads the ruleset and wires the service and transport layers.
func buildApplication(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()
	app := &Application{config: cfg}

	src, err := buildSource(cfg, logger, app)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to build ruleset source: %w", err)
	}

	rules, err := loadRuleset(ctx, src, cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}
	app.rules = rules

	ex, err := extractor.NewExtractor(extractor.ExtractorOptions{
		Rules:  rules,
		Logger: logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to build extractor: %w", err)
	}

	app.handler = transport.NewRouter(ex, logger)
	app.transport = transport.NewHTTPTransport(cfg.Listen, logger)
	return app, nil
}

// buildSource chains the local file ahead of the download mirrors. When a
// snapshot database is configured the chain is wrapped so the last good text
// survives outages of both.
func buildSource(cfg *config.AppConfig, logger log.Logger, app *Application) (source.Source, error) {
	var sources []source.Source
	if cfg.RulesetPath != "" {
		sources = append(sources, source.FileSource{Path: cfg.RulesetPath})
	}
	if len(cfg.RulesetURLs) > 0 {
		httpSrc, err := source.NewHTTPSource(source.HTTPOptions{
			URLs:    cfg.RulesetURLs,
			Timeout: cfg.RulesetTimeout,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, httpSrc)
	}

	chain, err := source.NewChain(logger, sources...)
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotDB == "" {
		return chain, nil
	}

	store, err := bolt.New(cfg.SnapshotDB)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store)

	log.Info(map[string]any{
		"path":    cfg.SnapshotDB,
		"version": store.Stats().Version,
	}, "Ruleset snapshot store opened")

	opts := ruleset.Options{IncludePrivate: cfg.RulesetPrivate}
	return source.NewSnapshotSource(source.SnapshotOptions{
		Live:  chain,
		Store: store,
		Validate: func(text string) error {
			_, err := ruleset.Load(text, opts, nil)
			return err
		},
		Clock:  clock.RealClock{},
		Logger: logger,
	})
}

func loadRuleset(ctx context.Context, src source.Source, cfg *config.AppConfig, logger log.Logger) (*ruleset.Ruleset, error) {
	rc, name, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ruleset.LoadReader(rc, ruleset.Options{
		Source:         name,
		IncludePrivate: cfg.RulesetPrivate,
	}, logger)
}

// Run starts the HTTP API and blocks until ctx is cancelled or the server
// fails, then drains in-flight requests within the shutdown timeout.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.handler); err != nil {
		return fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "HTTP",
		"rules":     app.rules.Stats().Rules,
	}, "Root domain server started")

	g, gctx := errgroup.WithContext(ctx)
	done := app.transport.Done()

	g.Go(func() error {
		select {
		case err := <-done:
			if gctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("serve loop exited")
			}
			return fmt.Errorf("HTTP transport failed: %w", err)
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(nil, "Shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		if err := app.transport.Stop(shutdownCtx); err != nil {
			log.Warn(map[string]any{
				"timeout": app.config.ShutdownTimeout.String(),
				"error":   err,
			}, "Shutdown timeout exceeded")
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info(nil, "Graceful shutdown completed")
		return nil
	})

	return g.Wait()
}

// Close releases resources opened while building the application.
func (app *Application) Close() error {
	var errs []error
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
