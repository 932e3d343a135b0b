// Package main provides the commtrans CLI entrypoint.
//
// Usage:
//
//	commtrans [global options] <command> [options]
//
// Exit codes for translate:
//   - 0: translation completed
//   - 1: validation or stream failure, or an interrupted session
//   - 2: the service could not be reached or rejected the request
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/cli/cmd"
	"github.com/ltwin/communication-translator/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:                 "commtrans",
		Usage:                "Translate between product requirements and technical language",
		Version:              fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:                cmd.GlobalFlags(),
		Commands:             cmd.Commands(commit),
		ExitErrHandler:       exitErrHandler,
		EnableBashCompletion: true,
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler prints the error, if any, and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code for err and the message to print.
// cli.Exit("", N) carries no message; its Error() is "exit status N".
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
