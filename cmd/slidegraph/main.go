package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnemet/SlideGraph/internal/app"
	"github.com/gnemet/SlideGraph/internal/config"
	"github.com/gnemet/SlideGraph/internal/hierarchy"
	"github.com/gnemet/SlideGraph/internal/logging"
	"github.com/gnemet/SlideGraph/internal/observer"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const usage = `usage: slidegraph <command> [flags] [path]

commands:
  extract   extract one package or every package under a directory
  watch     extract packages as they appear in a stage directory
  tree      rebuild hierarchies from exported asset CSV files
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd := os.Args[1]; cmd {
	case "extract":
		err = runExtract(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	case "tree":
		err = runTree(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "slidegraph:", err)
		}
		os.Exit(1)
	}
}

// load parses the command's flags and the configuration. The first
// positional argument overrides input.path.
func load(name string, args []string) (*config.Config, *pflag.FlagSet, *zap.Logger, error) {
	flags := config.Flags(name)
	if err := flags.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}
	if flags.NArg() > 0 {
		cfg.Input.Path = flags.Arg(0)
	}
	return cfg, flags, logging.Must(cfg.Logging), nil
}

func runExtract(ctx context.Context, args []string) error {
	cfg, _, log, err := load("extract", args)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, afero.NewOsFs(), log)
	if err != nil {
		return err
	}

	sum, runErr := a.Pipeline.Run(ctx, cfg.Input.Path)
	if err := a.Close(); err != nil {
		log.Error("failed to close outputs", zap.Error(err))
		runErr = multierr.Append(runErr, err)
	}
	if runErr != nil {
		return runErr
	}

	if err := a.Publish(ctx); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	log.Info("extraction finished",
		zap.String("run_id", sum.RunID),
		zap.Int("packages", sum.Packages),
		zap.Strings("failed", sum.Failed),
		zap.Any("records", sum.Records),
		zap.Int("unresolved", sum.Unresolved),
		zap.Int("consistency_warnings", sum.Warnings),
	)
	if len(sum.Failed) > 0 {
		return fmt.Errorf("%d packages failed", len(sum.Failed))
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	cfg, _, log, err := load("watch", args)
	if err != nil {
		return err
	}
	defer log.Sync()

	fsys := afero.NewOsFs()
	a, err := app.New(ctx, cfg, fsys, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close outputs", zap.Error(err))
		}
	}()

	obs := observer.NewObserver(fsys, cfg.Input.Path, a.Pipeline, observer.Options{
		Debounce: cfg.Watch.Debounce,
		Archive:  cfg.Watch.Archive,
		Logger:   log,
	})
	return obs.Start(ctx)
}

func runTree(args []string) error {
	cfg, flags, log, err := load("tree", args)
	if err != nil {
		return err
	}
	defer log.Sync()

	if flags.NArg() == 0 {
		return errors.New("tree needs at least one asset CSV file")
	}

	fsys := afero.NewOsFs()
	var rows []table.AssetRow
	for _, path := range flags.Args() {
		r, err := table.ReadAssetsFile(fsys, path)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}

	docs := hierarchy.FromRows(rows, app.HierarchyOptions(cfg.Output)...)
	return hierarchy.Encode(os.Stdout, cfg.Output.HierarchyFormat, docs)
}
