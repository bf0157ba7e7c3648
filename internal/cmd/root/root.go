// Package root implements the jote command itself.
package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/informaticsmatters/jote/internal/cmdutil"
	"github.com/informaticsmatters/jote/internal/config"
	"github.com/informaticsmatters/jote/internal/iostreams"
	"github.com/informaticsmatters/jote/internal/logger"
	"github.com/informaticsmatters/jote/internal/runner"
)

// RunOptions carries everything the root command needs to run tests.
type RunOptions struct {
	IOStreams      *iostreams.IOStreams
	Settings       func() (*config.Settings, error)
	ComposeVersion func(context.Context) (string, error)

	Collection    string
	Job           string
	Test          string
	DryRun        bool
	KeepResults   bool
	Verbose       bool
	ExitOnFailure bool
	RunTimeout    time.Duration
}

// NewCmdRoot creates the root command for the jote CLI.
func NewCmdRoot(f *cmdutil.Factory, runF func(context.Context, *RunOptions) error) *cobra.Command {
	opts := &RunOptions{
		IOStreams:      f.IOStreams,
		Settings:       f.Settings,
		ComposeVersion: f.ComposeVersion,
	}
	var debug bool

	cmd := &cobra.Command{
		Use:   "jote",
		Short: "Data Manager Job Tester",
		Long: `Jote tests Data Manager Jobs against the tests declared in their
job definitions. Each test runs in an isolated directory under
data-manager/jote in the current working directory: jote writes a
docker-compose file there, runs the Job container to completion and
applies the declared output checks.

Definitions are the YAML files in the data-manager directory; test
input files are expected in the data directory.`,
		Example: `  # Run every test in every definition
  jote

  # Run the tests of one collection
  jote --collection dm-jobs

  # Run a single test
  jote -c dm-jobs -j concat -t simple`,
		SilenceUsage: true,
		Version:      f.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initializeLogger(debug, opts.Settings)
			logger.Debug().Str("version", f.Version).Msg("jote starting")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Test != "" && opts.Job == "" {
				return fmt.Errorf("--test requires --job")
			}
			if opts.Job != "" && opts.Collection == "" {
				return fmt.Errorf("--job requires --collection")
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return runRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "",
		"The Job collection to test. If not specified the Jobs in all collections are candidates for testing")
	cmd.Flags().StringVarP(&opts.Job, "job", "j", "",
		"The Job to test. Requires --collection")
	cmd.Flags().StringVarP(&opts.Test, "test", "t", "",
		"A specific test to run. Requires --job")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "d", false,
		"Parse the Job definitions and build the test directories without running any test")
	cmd.Flags().BoolVarP(&opts.KeepResults, "keep-results", "k", false,
		"Keep the material created for each successful test instead of removing it")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Display test stdout")
	cmd.Flags().BoolVarP(&opts.ExitOnFailure, "exit-on-failure", "x", false,
		"Stop at the first test failure instead of continuing with the next test")
	cmd.Flags().DurationVar(&opts.RunTimeout, "run-timeout", 0,
		"Hard limit for a single test run (default from settings, normally 10m)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false,
		"Enable debug logging")

	cmd.MarkFlagsMutuallyExclusive("dry-run", "keep-results")

	return cmd
}

func runRun(ctx context.Context, opts *RunOptions) error {
	ios := opts.IOStreams

	settings, err := opts.Settings()
	if err != nil {
		return err
	}

	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = settings.RunTimeout
	}

	r := runner.New(ios, settings, opts.ComposeVersion, runner.Options{
		Collection:    opts.Collection,
		Job:           opts.Job,
		Test:          opts.Test,
		DryRun:        opts.DryRun,
		KeepResults:   opts.KeepResults,
		Verbose:       opts.Verbose,
		ExitOnFailure: opts.ExitOnFailure,
		Timeout:       timeout,
	})

	summary, err := r.Run(ctx)
	if err != nil {
		return err
	}

	suffix := ""
	if opts.DryRun {
		suffix = " [DRY RUN]"
	}
	fmt.Fprintln(ios.ErrOut, "  ---")
	if summary.Failed > 0 {
		return fmt.Errorf("done (FAILURE) passed=%d failed=%d%s",
			summary.Passed, summary.Failed, suffix)
	}
	fmt.Fprintf(ios.ErrOut, "Done (OK) passed=%d%s\n", summary.Passed, suffix)

	return nil
}

// initializeLogger sets up the logger, with file logging when the
// settings ask for it. Falls back to console-only logging on any error.
func initializeLogger(debug bool, load func() (*config.Settings, error)) {
	settings, err := load()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to load settings")
		return
	}
	if err := logger.InitWithFile(debug, settings.LogsDirectory); err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable")
	}
}
