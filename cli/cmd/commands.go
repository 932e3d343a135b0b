package cmd

import "github.com/urfave/cli/v2"

// Commands returns every top-level command.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		TranslateCommand(),
		UICommand(),
		HealthCommand(),
		HistoryCommand(),
		VersionCommand(commit),
	}
}
