package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/groom/pkg/groom/config"
	"github.com/jamesainslie/groom/pkg/groom/engine"
	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/journal"
	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/output"
	"github.com/jamesainslie/groom/pkg/groom/owner"
	"github.com/jamesainslie/groom/pkg/groom/pool"
	"github.com/jamesainslie/groom/pkg/groom/progress"
	"github.com/jamesainslie/groom/pkg/groom/rename"
	"github.com/jamesainslie/groom/pkg/groom/runlock"
	"github.com/jamesainslie/groom/pkg/groom/shutdown"
	"github.com/jamesainslie/groom/pkg/groom/tuner"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// templateStr is the --template flag.
var templateStr string

// statusLine is the observer fed by the workers and closed after the run.
type statusLine interface {
	pool.Observer
	Finish(types.RunStats)
}

// runGroom is the root command handler.
func runGroom(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initializeLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("cli")

	rootArg, err := config.ExpandPath(args[0])
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}
	root, err := engine.ValidateRoot(rootArg)
	if err != nil {
		log.Error("invalid root", "path", args[0], "error", err)
		return err
	}

	formatter, err := buildFormatter(cfg)
	if err != nil {
		return err
	}

	excludeDirs, err := exclude.NewSet(cfg.Exclude.Dirs...)
	if err != nil {
		return fmt.Errorf("exclude.dirs: %w", err)
	}
	excludeFiles, err := exclude.NewSet(cfg.Exclude.Files...)
	if err != nil {
		return fmt.Errorf("exclude.files: %w", err)
	}

	var (
		jrnl *journal.Journal
		run  *journal.Run
	)
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.JournalPath())
		if err != nil {
			return err
		}
		defer func() { _ = jrnl.Close() }()

		run, err = jrnl.BeginRun(root, cfg.Action, cfg.DryRun)
		if err != nil {
			return err
		}
	}

	var recorder rename.Recorder
	var runID string
	if run != nil {
		recorder = run
		runID = run.ID()
	}

	proc, processDirs, err := buildProcessor(cfg, recorder)
	if err != nil {
		return err
	}

	tuned := tuner.CalculateWithOverride(tuner.Detect(), cfg.Workers)
	printVerbose("Workers: %d, walk workers: %d", tuned.Workers, tuned.WalkWorkers)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrl := shutdown.New(shutdownMode(cfg), cancel)
	ctrl.Start()
	defer ctrl.Stop()

	status := newStatusLine(cfg)

	sum, err := engine.Run(ctx, engine.Options{
		Root:         root,
		RunID:        runID,
		Workers:      tuned.Workers,
		Follow:       cfg.FollowSymlinks,
		ParallelWalk: cfg.ParallelWalk,
		WalkWorkers:  tuned.WalkWorkers,
		ExcludeDirs:  excludeDirs,
		ExcludeFiles: excludeFiles,
		PollInterval: cfg.PollInterval,
		Processor:    proc,
		ProcessDirs:  processDirs,
		Observer:     status,
		Watch:        cfg.Watch,
		LockDir:      runlock.DefaultDir(),
	})
	if sum != nil {
		status.Finish(sum.Stats)
	}
	if err != nil {
		return err
	}

	if run != nil {
		if err := run.Finish(sum.Stats); err != nil {
			log.Warn("failed to finish journal run", "run", run.ID(), "error", err)
		}
	}

	if cfg.Quiet && cfg.Output == config.DefaultOutput {
		return nil
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, buildResult(cfg, sum)); err != nil {
		return fmt.Errorf("failed to format summary: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// initializeLogging sets up the file sink and the stderr console sink.
func initializeLogging(cfg *config.Config) error {
	lc, err := loggingConfig(cfg)
	if err != nil {
		return err
	}
	if err := logging.Init(lc); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// loggingConfig translates the logging section. -v raises both sinks to
// debug; -q keeps only errors on the console.
func loggingConfig(cfg *config.Config) (logging.Config, error) {
	lc := logging.Config{
		Level:        cfg.Logging.Level,
		Rotation:     cfg.Rotation(),
		Components:   cfg.Logging.Components,
		ConsoleLevel: "info",
	}
	if cfg.Logging.Path != "" {
		path, err := config.ExpandPath(cfg.Logging.Path)
		if err != nil {
			return lc, err
		}
		lc.Path = path
	}

	switch {
	case cfg.Verbose:
		lc.Level = "debug"
		lc.ConsoleLevel = "debug"
	case cfg.Quiet:
		lc.ConsoleLevel = "error"
	}
	return lc, nil
}

// buildProcessor returns the per-item action and whether it also applies to
// directories.
func buildProcessor(cfg *config.Config, recorder rename.Recorder) (pool.Processor, bool, error) {
	switch cfg.Action {
	case config.ActionChown:
		uids, err := owner.ParseMappings(cfg.Owner.UIDs)
		if err != nil {
			return nil, false, fmt.Errorf("owner.uids: %w", err)
		}
		gids, err := owner.ParseMappings(cfg.Owner.GIDs)
		if err != nil {
			return nil, false, fmt.Errorf("owner.gids: %w", err)
		}
		return owner.New(owner.Options{UIDs: uids, GIDs: gids, DryRun: cfg.DryRun}), true, nil
	case config.ActionStrip:
		return rename.New(rename.Options{
			Substring: cfg.Substring,
			DryRun:    cfg.DryRun,
			Recorder:  recorder,
		}), false, nil
	default:
		return nil, false, fmt.Errorf("%w: unknown action %q", config.ErrInvalidConfig, cfg.Action)
	}
}

// shutdownMode picks how a signal ends the run. Watch mode and journaled
// runs stop gracefully so the summary and journal are written.
func shutdownMode(cfg *config.Config) shutdown.Mode {
	if cfg.Graceful || cfg.Watch || cfg.Journal.Enabled {
		return shutdown.Graceful
	}
	return shutdown.Immediate
}

// newStatusLine returns the live status line, or a no-op when stdout is
// reserved for machine-readable output or -q is set.
func newStatusLine(cfg *config.Config) statusLine {
	if cfg.Quiet {
		return progress.Discard{}
	}
	switch cfg.Output {
	case "pretty", "template":
		interval := cfg.ProgressInterval
		if interval == 0 {
			interval = progress.EveryUpdate
		}
		return progress.New(os.Stdout, interval)
	default:
		return progress.Discard{}
	}
}

// buildFormatter resolves -o, applying --template when given.
func buildFormatter(cfg *config.Config) (output.Formatter, error) {
	if cfg.Output == "template" && templateStr != "" {
		return output.NewTemplateFormatter(templateStr), nil
	}
	formatter, err := output.Get(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, output.Available())
	}
	return formatter, nil
}

// buildResult converts the engine summary for the formatters.
func buildResult(cfg *config.Config, sum *engine.Summary) *output.Result {
	r := &output.Result{
		RunID:       sum.RunID,
		Root:        sum.Root,
		Action:      cfg.Action,
		DryRun:      cfg.DryRun,
		Stats:       sum.Stats,
		DirsListed:  sum.Walk.DirsListed,
		WalkErrors:  sum.Walk.Errors,
		Interrupted: sum.Interrupted,
	}
	if sum.Stats.Failed > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s items failed, see %s",
			types.FormatCount(sum.Stats.Failed), logging.FilePath()))
	}
	if sum.Walk.Errors > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s directories could not be listed",
			types.FormatCount(sum.Walk.Errors)))
	}
	return r
}
