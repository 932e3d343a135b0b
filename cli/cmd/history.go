package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/adapter/archive"
	"github.com/ltwin/communication-translator/cli/render"
	"github.com/ltwin/communication-translator/history"
	"github.com/ltwin/communication-translator/iox"
)

// listWarningThreshold is the result count above which history list warns
// when --limit is not set.
const listWarningThreshold = 100

// HistoryCommand returns the history command with subcommands.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show past translation sessions",
		Subcommands: []*cli.Command{
			historyListCommand(),
			historyShowCommand(),
			historyArchivedCommand(),
		},
	}
}

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List sessions, newest first",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "state",
				Usage: "Filter by state: completed, failed, cancelled",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of sessions to return (0 = no limit)",
				Value: 0,
			},
		),
		Action: historyListAction,
	}
}

// historyRow is the table layout of one record.
type historyRow struct {
	record history.Record
}

func (historyRow) Columns() []string {
	return []string{"id", "started", "mode", "state", "detected", "chars", "duration"}
}

func (h historyRow) Row() []string {
	r := h.record
	detected := r.DetectedDirection
	if detected != "" {
		detected += fmt.Sprintf(" (%d%%)", int(r.Confidence*100+0.5))
	}
	return []string{
		shortID(r.ID),
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		r.Mode,
		r.State,
		detected,
		strconv.Itoa(utf8.RuneCountInString(r.Content)),
		(time.Duration(r.DurationMs) * time.Millisecond).String(),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historyListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	store, err := historyStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	records, err := store.List()
	if err != nil {
		if !history.IsFatalRecordError(err) || len(records) == 0 {
			return cli.Exit(fmt.Sprintf("cannot read history: %v", err), exitFailed)
		}
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
	}

	records = filterRecords(records, c.String("state"), c.Int("limit"))

	if len(records) > listWarningThreshold && c.Int("limit") == 0 && isTTY(os.Stderr) {
		fmt.Fprintf(c.App.ErrWriter, "Warning: returning %d sessions. Consider using --limit to reduce output.\n\n", len(records))
	}

	if r.Format() == render.FormatTable {
		rows := make([]historyRow, len(records))
		for i, rec := range records {
			rows[i] = historyRow{record: rec}
		}
		return r.Render(rows)
	}
	return r.Render(records)
}

// filterRecords returns records newest first, keeping those in state and
// at most limit of them.
func filterRecords(records []history.Record, state string, limit int) []history.Record {
	out := make([]history.Record, 0, len(records))
	for _, rec := range slices.Backward(records) {
		if state != "" && rec.State != state {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func historyShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one session",
		ArgsUsage: "<session-id or unique prefix>",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{
				Name:  "output",
				Usage: "Print only the translated text",
			},
		),
		Action: historyShowAction,
	}
}

func historyShowAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("history show requires exactly one session id", exitFailed)
	}

	store, err := historyStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	rec, err := store.Get(c.Args().First())
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return cli.Exit(fmt.Sprintf("no session matches %q", c.Args().First()), exitFailed)
		}
		return cli.Exit(err.Error(), exitFailed)
	}

	if c.Bool("output") {
		_, err := fmt.Fprintln(c.App.Writer, rec.Output)
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(rec)
}

func historyStore(c *cli.Context) (*history.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return openHistory(cfg)
}

func historyArchivedCommand() *cli.Command {
	return &cli.Command{
		Name:  "archived",
		Usage: "List sessions from the archive adapter's dataset, newest first",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "target",
				Usage: "Archive location: a directory, file://path or s3://bucket/prefix (default: adapter.url)",
			},
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "Dataset ID (default: adapter.dataset or " + archive.DefaultDataset + ")",
			},
			&cli.StringFlag{
				Name:  "day",
				Usage: "Filter by UTC day (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Filter by mode: auto, product_to_dev, dev_to_product",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Filter by state: completed, failed, cancelled",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of sessions to return (0 = no limit)",
			},
		),
		Action: historyArchivedAction,
	}
}

func historyArchivedAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitFailed)
	}

	target, dataset := c.String("target"), c.String("dataset")
	if cfg.Adapter.Type == "archive" {
		target = firstNonEmpty(target, cfg.Adapter.URL)
		dataset = firstNonEmpty(dataset, cfg.Adapter.Dataset)
	}
	if target == "" {
		return cli.Exit("no archive configured: pass --target or set adapter.type: archive", exitFailed)
	}

	a, err := archive.New(c.Context, archive.Config{
		Target:  target,
		Dataset: dataset,
		S3:      archiveS3(cfg.S3),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	defer iox.DiscardClose(a)

	entries, err := a.Recent(c.Context, archive.Filter{
		Day:   c.String("day"),
		Mode:  c.String("mode"),
		State: c.String("state"),
	}, c.Int("limit"))
	if err != nil {
		if len(entries) == 0 {
			return cli.Exit(fmt.Sprintf("cannot read archive: %v", err), exitFailed)
		}
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
	}
	return r.Render(entries)
}
