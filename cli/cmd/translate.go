package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/export"
	"github.com/ltwin/communication-translator/iox"
	"github.com/ltwin/communication-translator/metrics"
	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/session"
	"github.com/ltwin/communication-translator/types"
)

// Exit codes for translate.
const (
	exitCompleted = 0
	exitFailed    = 1
	exitTransport = 2
)

// maxInputBytes bounds stdin and --file reads.
const maxInputBytes = 1 << 20

// TranslateCommand returns the translate command.
func TranslateCommand() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "Translate text and stream the result to stdout",
		ArgsUsage: "[text...]",
		Flags: []cli.Flag{
			directionFlag(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"i"},
				Usage:   "Read the text from a file (- for stdin)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print plain text as it streams instead of rendered markdown",
			},
			exportFlag("Also export the result: clipboard, -, a file path, file://path or s3://bucket/prefix"),
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print a session summary to stderr",
			},
			NoColorFlag,
		},
		Action: translateAction,
	}
}

func translateAction(c *cli.Context) error {
	content, err := readInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitFailed)
	}
	mode, err := types.ParseMode(firstNonEmpty(c.String("direction"), cfg.Direction))
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	theme, err := output.ParseTheme(cfg.Theme)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	formatterName := cfg.Formatter
	if c.Bool("plain") || !isTTY(os.Stdout) {
		formatterName = "plain"
	}
	formatter, err := output.NewFormatter(formatterName, theme, cfg.Wrap)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	a, err := newApp(c, cfg, false, formatterName)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	defer a.Close()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	var exporter export.Exporter
	if target := firstNonEmpty(c.String("export"), cfg.Export); target != "" {
		if exporter, err = a.newExporter(ctx, c, target); err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}
	}

	surface := newStreamSurface(c.App.Writer, c.App.ErrWriter, formatterName == "plain", c.Bool("no-color"))
	ctrl, err := a.newController(session.Options{
		Formatter: formatter,
		Surface:   surface,
		Listener:  session.Hooks{Copied: surface.copied},
		Exporter:  exporter,
		Mode:      mode,
		Theme:     theme,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	defer ctrl.Close()

	startTime := time.Now()
	if err := ctrl.Dispatch(ctx, session.Submit{Content: content}); err != nil {
		// The surface already printed the validation message.
		return cli.Exit("", exitFailed)
	}

	s, err := ctrl.Await(ctx)
	surface.Finish()
	if s == nil {
		return cli.Exit(fmt.Sprintf("translation did not start: %v", err), exitFailed)
	}

	if s.State() == types.StateCompleted && exporter != nil {
		if err := ctrl.Dispatch(ctx, session.Copy{}); err == nil {
			_, _ = ctrl.Await(ctx)
		} else {
			surface.copied(exporter.Target(), err)
		}
	}

	if c.Bool("summary") {
		printSummary(c.App.ErrWriter, s, a.collector.Snapshot(), time.Since(startTime))
	}

	return exitFor(s)
}

// readInput returns the text to translate from args, --file or stdin.
func readInput(c *cli.Context) (string, error) {
	if c.Args().Present() {
		return strings.Join(c.Args().Slice(), " "), nil
	}

	if path := c.String("file"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("cannot read input file: %w", err)
		}
		defer iox.DiscardClose(f)
		return readAll(f)
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok && isTTY(f) && c.String("file") != "-" {
		return "", errors.New("no input: pass text as arguments, use --file, or pipe it on stdin")
	}
	return readAll(in)
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return "", fmt.Errorf("cannot read input: %w", err)
	}
	return string(data), nil
}

// exitFor maps the final session state to the process exit code.
func exitFor(s *session.Session) error {
	switch s.State() {
	case types.StateCompleted:
		return nil
	case types.StateFailed:
		if s.Failure() == session.FailureTransport {
			return cli.Exit("", exitTransport)
		}
		return cli.Exit("", exitFailed)
	default:
		return cli.Exit(fmt.Sprintf("translation %s: %s", s.State(), s.Reason()), exitFailed)
	}
}

func printSummary(w io.Writer, s *session.Session, snap metrics.Snapshot, wall time.Duration) {
	fmt.Fprintf(w, "\nsession_id=%s, mode=%s, state=%s, duration=%s\n",
		s.ID(),
		s.Request().Mode(),
		s.State(),
		wall.Round(time.Millisecond),
	)
	if s.Failure() != session.FailureNone {
		fmt.Fprintf(w, "failure=%s, reason=%s\n", s.Failure(), s.Reason())
	}
	if m := s.Meta(); m != nil {
		fmt.Fprintf(w, "detected=%s, confidence=%d%%\n", m.DetectedDirection, m.ConfidencePercent())
	}

	fmt.Fprintf(w, "\n=== Stream ===\n")
	fmt.Fprintf(w, "Bytes:            %d\n", snap.BytesReceived)
	fmt.Fprintf(w, "Frames:           %d\n", snap.FramesDecoded)
	fmt.Fprintf(w, "Text Deltas:      %d\n", snap.TextDeltas)
	fmt.Fprintf(w, "Meta Events:      %d\n", snap.MetaEvents)
	fmt.Fprintf(w, "Decode Warnings:  %d\n", snap.DecodeWarnings)
	fmt.Fprintf(w, "Discarded:        %d\n", snap.FragmentsDiscarded)

	if snap.ExportSuccess+snap.ExportFailure > 0 {
		fmt.Fprintf(w, "\n=== Export ===\n")
		fmt.Fprintf(w, "Succeeded:        %d\n", snap.ExportSuccess)
		fmt.Fprintf(w, "Failed:           %d\n", snap.ExportFailure)
	}
}
