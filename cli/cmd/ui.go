package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/cli/tui"
	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/session"
	"github.com/ltwin/communication-translator/types"
)

// UICommand returns the interactive page command.
func UICommand() *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Open the interactive translation page",
		Flags: []cli.Flag{
			directionFlag(),
			&cli.StringFlag{
				Name:  "theme",
				Usage: "Initial theme: light or dark",
			},
			exportFlag("Copy target for ctrl+y (default: clipboard)"),
		},
		Action: uiAction,
	}
}

func uiAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitFailed)
	}
	mode, err := types.ParseMode(firstNonEmpty(c.String("direction"), cfg.Direction))
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	theme, err := output.ParseTheme(firstNonEmpty(c.String("theme"), cfg.Theme))
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	formatter, err := output.NewFormatter(cfg.Formatter, theme, cfg.Wrap)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	a, err := newApp(c, cfg, true, cfg.Formatter)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	defer a.Close()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	exporter, err := a.newExporter(ctx, c, firstNonEmpty(c.String("export"), cfg.Export, "clipboard"))
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	bridge := tui.NewBridge(theme)
	ctrl, err := a.newController(session.Options{
		Formatter: formatter,
		Surface:   bridge,
		Listener:  bridge,
		Exporter:  exporter,
		Mode:      mode,
		Theme:     theme,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	return tui.Run(ctx, ctrl, bridge)
}
