package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/cli/render"
	"github.com/ltwin/communication-translator/client"
	"github.com/ltwin/communication-translator/types"
)

// HealthResponse is the response for the health command.
type HealthResponse struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Status    string `json:"status" yaml:"status"`
	Version   string `json:"version" yaml:"version"`
	LatencyMs int64  `json:"latency_ms" yaml:"latency_ms"`
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the translation service is reachable",
		Flags:  ReadOnlyFlags(),
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitFailed)
	}
	logger, err := newLogger(c, cfg, false)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	defer func() { _ = logger.Sync() }()
	logs := logger.Sugar().With("command", "health", "endpoint", cfg.Endpoint)

	cl, err := client.New(client.Config{BaseURL: cfg.Endpoint, Timeout: cfg.Timeout.Duration})
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	start := time.Now()
	status, err := cl.Health(c.Context)
	if err != nil {
		// A status error means the service answered but is not healthy.
		if client.IsStatusError(err) {
			logs.Warnf("health check rejected: %v", err)
			return cli.Exit(fmt.Sprintf("%s is unhealthy: %s", cfg.Endpoint, types.UserMessage(err)), exitTransport)
		}
		logs.Warnf("health check failed: %v", err)
		return cli.Exit(fmt.Sprintf("%s is unreachable: %s", cfg.Endpoint, types.UserMessage(err)), exitTransport)
	}

	latency := time.Since(start).Milliseconds()
	logs.Debugf("service %s version %s answered in %dms", status.Status, status.Version, latency)

	return r.Render(HealthResponse{
		Endpoint:  cl.BaseURL(),
		Status:    status.Status,
		Version:   status.Version,
		LatencyMs: latency,
	})
}
