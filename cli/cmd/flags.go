// Package cmd provides CLI commands for the commtrans binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// GlobalFlags returns the flags accepted before any command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to commtrans.yaml (default: ./commtrans.yaml when present)",
			EnvVars: []string{"COMMTRANS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "Translation service base URL",
			EnvVars: []string{"COMMTRANS_ENDPOINT"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Connect and response-header timeout",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to a rotated file",
		},
	}
}

// directionFlag selects the translation direction.
func directionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "direction",
		Aliases: []string{"d"},
		Usage:   "Direction: auto, product_to_dev, dev_to_product",
	}
}

// exportFlag names where the result is exported.
func exportFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:  "export",
		Usage: usage,
	}
}

// isTTY returns true if f is a character device.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
