package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/asynkron/whippatch/internal/logging"
	"github.com/asynkron/whippatch/internal/probe"
	"github.com/asynkron/whippatch/internal/report"
	"github.com/asynkron/whippatch/internal/tui"
	"github.com/asynkron/whippatch/internal/whip"
	"github.com/asynkron/whippatch/pkg/patch"
)

// Exit codes returned by Run.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitDeclined = 3
)

// reviewChanges asks the operator to confirm a pending write.
var reviewChanges = func(ctx context.Context, markdown string) (bool, error) {
	return tui.Review(ctx, markdown)
}

// Run applies the built-in whip patch using the provided CLI arguments.
// It returns a POSIX-style exit code: zero whenever the filesystem work
// succeeded, even if some steps found nothing to change.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return ExitFailure
		}
	}

	opts, code, ok := parseArgs(args, stderr)
	if !ok {
		return code
	}

	logger := logging.NewZapLogger(opts.level, stderr)
	defer func() { _ = logger.Sync() }()
	log := logger.WithFields(logging.Field("target", opts.Target))
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())

	steps, err := whip.Steps()
	if err != nil {
		log.Error(ctx, "failed to load built-in steps", err)
		report.New(stderr).Error(err)
		return ExitFailure
	}

	if opts.List {
		return printPlan(stdout, opts.Target, steps)
	}

	probeProject(ctx, log, opts.Target)

	printer := report.New(stdout)
	result, err := patch.ApplyFilesystem(ctx, opts.Target, steps, patch.FilesystemOptions{
		Options: patch.Options{Guard: opts.Guard},
		DryRun:  opts.DryRun || opts.Review,
		Backup:  opts.Backup,
	})
	if err != nil {
		log.Error(ctx, "patch failed", err)
		printer.Error(err)
		return ExitFailure
	}
	logOutcomes(ctx, log, result.Outcomes)

	if opts.Review && result.Changed {
		accepted, err := reviewChanges(ctx, report.ResultMarkdown(steps, result, opts.DiffContext))
		if err != nil {
			log.Error(ctx, "review failed", err)
			printer.Error(err)
			return ExitFailure
		}
		if !accepted {
			log.Info(ctx, "review declined")
			fmt.Fprintln(stdout, "Review declined; nothing was written.")
			return ExitDeclined
		}
		if err := patch.Commit(&result, opts.Backup); err != nil {
			log.Error(ctx, "write failed", err)
			printer.Error(err)
			return ExitFailure
		}
	}

	if opts.Diff {
		printer.Diff(result, opts.DiffContext)
	}
	printer.Result(steps, result)
	log.Info(ctx, "run complete", logging.Field("changed", result.Changed), logging.Field("written", result.Written))
	return ExitOK
}

func parseArgs(args []string, stderr io.Writer) (*Options, int, bool) {
	opts := &Options{}
	flagSet := pflag.NewFlagSet("whippatch", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVarP(&opts.DryRun, "dry-run", "n", false, "Apply the steps in memory and report without writing the file.")
	flagSet.BoolVarP(&opts.Diff, "diff", "d", false, "Print a line diff of the changes.")
	flagSet.IntVar(&opts.DiffContext, "diff-context", 3, "Unchanged lines to show around each change in diffs; negative shows the whole file.")
	flagSet.BoolVarP(&opts.Backup, "backup", "b", false, "Keep a copy of the original file next to it with a .orig suffix.")
	flagSet.BoolVarP(&opts.Guard, "guard", "g", false, "Skip insertions whose payload is already present, making re-runs a no-op.")
	flagSet.BoolVarP(&opts.Review, "review", "r", false, "Review the changes interactively before writing.")
	flagSet.BoolVarP(&opts.List, "list", "l", false, "Print the ordered patch steps and exit.")
	flagSet.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default $"+envLogLevel+" or warn).")
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, "Usage: whippatch [flags] [path]")
		fmt.Fprintln(stderr, "\nReplace the typed easter egg trigger with a floating whip button.")
		fmt.Fprintf(stderr, "\nThe target defaults to $%s or %s.\n", envTarget, whip.DefaultTarget)
		fmt.Fprintln(stderr, "\nFlags:")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ExitOK, false
		}
		return nil, ExitUsage, false
	}
	switch flagSet.NArg() {
	case 0:
	case 1:
		opts.Target = flagSet.Arg(0)
	default:
		fmt.Fprintf(stderr, "expected at most one path, got %d\n", flagSet.NArg())
		return nil, ExitUsage, false
	}

	opts.setDefaults()
	if err := opts.validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, ExitUsage, false
	}
	return opts, ExitOK, true
}

func printPlan(stdout io.Writer, target string, steps []patch.Step) int {
	md := report.PlanMarkdown(target, steps)
	plain := true
	if f, ok := stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		plain = false
	}
	rendered, err := report.RenderMarkdown(md, 100, plain)
	if err != nil {
		rendered = md
	}
	fmt.Fprint(stdout, rendered)
	return ExitOK
}

// probeProject logs what kind of project holds target. It never fails the run.
func probeProject(ctx context.Context, log logging.Logger, target string) {
	root := probe.FindRoot(target)
	if root == "" {
		log.Debug(ctx, "no package.json found above target")
		return
	}
	result, err := probe.Run(probe.NewContext(root))
	if err != nil {
		log.Warn(ctx, "project probe failed", logging.Field("root", root), logging.Field("error", err.Error()))
		return
	}
	if result == nil {
		return
	}
	log.Info(ctx, result.Summary(), logging.Field("indicators", result.Indicators))
	if !result.React() {
		log.Warn(ctx, "target is not inside a React project", logging.Field("root", root))
	}
}

func logOutcomes(ctx context.Context, log logging.Logger, outcomes []patch.Outcome) {
	for _, o := range outcomes {
		fields := []logging.LogField{
			logging.Field("step", o.Step),
			logging.Field("number", o.Number),
			logging.Field("status", string(o.Status)),
		}
		if o.Applied() {
			log.Debug(ctx, "step applied", append(fields, logging.Field("matches", o.Matches))...)
			continue
		}
		log.Warn(ctx, "step skipped", fields...)
	}
}
