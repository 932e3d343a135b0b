package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/adapter"
	"github.com/ltwin/communication-translator/adapter/archive"
	"github.com/ltwin/communication-translator/adapter/redis"
	"github.com/ltwin/communication-translator/adapter/webhook"
	"github.com/ltwin/communication-translator/cli/config"
	"github.com/ltwin/communication-translator/client"
	"github.com/ltwin/communication-translator/export"
	"github.com/ltwin/communication-translator/history"
	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/metrics"
	"github.com/ltwin/communication-translator/session"
)

// loadConfig reads .env and the config file, then applies global flag
// overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return nil, err
	}

	if v := c.String("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if v := c.Duration("timeout"); v > 0 {
		cfg.Timeout.Duration = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log-file"); v != "" {
		cfg.Log.File = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Interactive sessions only log to a
// file so the screen is not corrupted.
func newLogger(c *cli.Context, cfg *config.Config, interactive bool) (*log.Logger, error) {
	switch {
	case cfg.Log.File != "":
		return log.New(log.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	case interactive:
		return log.NewNop(), nil
	default:
		return log.New(log.Options{Level: cfg.Log.Level, Writer: c.App.ErrWriter})
	}
}

// app bundles the shared collaborators of the streaming commands.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	client    *client.Client
	collector *metrics.Collector
	observers []session.Observer
	notifier  *adapter.Notifier
}

// newApp wires the client, metrics, history and notification adapter.
func newApp(c *cli.Context, cfg *config.Config, interactive bool, formatter string) (*app, error) {
	logger, err := newLogger(c, cfg, interactive)
	if err != nil {
		return nil, err
	}

	cl, err := client.New(client.Config{
		BaseURL: cfg.Endpoint,
		Timeout: cfg.Timeout.Duration,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    cl,
		collector: metrics.NewCollector(cfg.Endpoint, formatter),
	}

	if !cfg.History.Disabled {
		store, err := openHistory(cfg)
		if err != nil {
			return nil, err
		}
		a.observers = append(a.observers, history.NewRecorder(store, logger))
	}

	if cfg.Adapter.Enabled() {
		ad, err := newAdapter(c.Context, cfg)
		if err != nil {
			return nil, err
		}
		a.notifier = adapter.NewNotifier(ad, cfg.Adapter.Timeout.Duration, logger, a.collector)
		a.observers = append(a.observers, a.notifier)
	}

	logger.Debug("commtrans configured", map[string]any{
		"endpoint":  cfg.Endpoint,
		"formatter": formatter,
		"history":   !cfg.History.Disabled,
		"adapter":   cfg.Adapter.Type,
	})
	return a, nil
}

// newController creates a controller that uses the app's collaborators.
func (a *app) newController(opts session.Options) (*session.Controller, error) {
	opts.Transport = a.client
	opts.Logger = a.logger
	opts.Collector = a.collector
	opts.Observers = a.observers
	return session.NewController(opts)
}

// newExporter resolves an export target.
func (a *app) newExporter(ctx context.Context, c *cli.Context, target string) (export.Exporter, error) {
	ex, err := export.Parse(ctx, target, export.Options{
		Stdout:   c.App.Writer,
		Terminal: os.Stderr,
		S3: export.S3Config{
			Region:       a.cfg.S3.Region,
			Endpoint:     a.cfg.S3.Endpoint,
			UsePathStyle: a.cfg.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("export target %q: %w", target, err)
	}
	return ex, nil
}

// Close flushes pending notifications and logs.
func (a *app) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("failed to close adapter", map[string]any{"error": err.Error()})
		}
	}
	_ = a.logger.Sync()
}

// openHistory returns the configured history store.
func openHistory(cfg *config.Config) (*history.Store, error) {
	path := cfg.History.Path
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return history.NewStore(path), nil
}

// newAdapter builds the notification adapter for cfg.Adapter.
func newAdapter(ctx context.Context, root *config.Config) (adapter.Adapter, error) {
	cfg := root.Adapter
	retries := webhook.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "archive":
		return archive.New(ctx, archive.Config{
			Target:  cfg.URL,
			Dataset: cfg.Dataset,
			S3:      archiveS3(root.S3),
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %q", cfg.Type)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func archiveS3(cfg config.S3Config) archive.S3Config {
	return archive.S3Config{
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.PathStyle,
	}
}
