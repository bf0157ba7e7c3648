// Package runner drives job tests end to end: it loads definitions,
// builds the per-test compose environment, executes the job container
// and applies the declared checks.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/informaticsmatters/jote/internal/compose"
	"github.com/informaticsmatters/jote/internal/config"
	"github.com/informaticsmatters/jote/internal/iostreams"
	"github.com/informaticsmatters/jote/internal/jobs"
	"github.com/informaticsmatters/jote/internal/logger"
)

// Options select and shape a test run.
type Options struct {
	// Collection, Job and Test narrow the run. Empty means all.
	Collection string
	Job        string
	Test       string

	// DryRun parses definitions and builds test directories without
	// running any container.
	DryRun bool
	// KeepResults leaves the test directory in place after a pass.
	KeepResults bool
	// Verbose echoes container stdout after each run.
	Verbose bool
	// ExitOnFailure stops at the first failing test.
	ExitOnFailure bool

	// Timeout bounds each "up" invocation. Zero means the compose
	// package default.
	Timeout time.Duration

	// ComposeBin overrides the orchestration CLI for every test. Empty
	// means the compose package default.
	ComposeBin string
}

// Summary is the outcome of a run.
type Summary struct {
	Found  int
	Passed int
	Failed int
}

// Runner executes job tests one at a time.
type Runner struct {
	ios      *iostreams.IOStreams
	settings *config.Settings
	opts     Options

	// composeVersion is the memoized version capability handed down by
	// the factory: queried at most once per process, on the first build.
	composeVersion func(context.Context) (string, error)
	versionLogged  bool
}

// New builds a Runner.
func New(ios *iostreams.IOStreams, settings *config.Settings,
	composeVersion func(context.Context) (string, error), opts Options) *Runner {
	return &Runner{
		ios:            ios,
		settings:       settings,
		opts:           opts,
		composeVersion: composeVersion,
	}
}

// Run loads the job definitions and executes every selected test in
// sequence. Test failures are counted in the Summary; the error return
// is reserved for harness faults (unreadable definitions and the like).
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	logger.Info().
		Str("run_id", uuid.NewString()).
		Str("definitions", r.settings.DefinitionDirectory).
		Msg("jote starting")

	definitions, numTests, err := jobs.Load(r.settings.DefinitionDirectory)
	if err != nil {
		return nil, err
	}

	noun := "tests"
	if numTests == 1 {
		noun = "test"
	}
	fmt.Fprintf(r.ios.ErrOut, "# Found %d %s\n", numTests, noun)
	if r.opts.Collection != "" {
		fmt.Fprintf(r.ios.ErrOut, "# Limiting to Collection %s\n", r.opts.Collection)
	}
	if r.opts.Job != "" {
		fmt.Fprintf(r.ios.ErrOut, "# Limiting to Job %s\n", r.opts.Job)
	}
	if r.opts.Test != "" {
		fmt.Fprintf(r.ios.ErrOut, "# Limiting to Test %s\n", r.opts.Test)
	}

	summary := &Summary{Found: numTests}
	for _, definition := range definitions {
		if r.opts.Collection != "" && r.opts.Collection != definition.Collection {
			continue
		}
		for _, jobName := range definition.JobNames() {
			if r.opts.Job != "" && r.opts.Job != jobName {
				continue
			}
			job := definition.Jobs[jobName]
			for _, testName := range job.TestNames() {
				if r.opts.Test != "" && r.opts.Test != testName {
					continue
				}

				if err := r.runTest(ctx, definition.Collection, jobName, testName, job); err != nil {
					fmt.Fprintln(r.ios.ErrOut, "! FAILURE")
					fmt.Fprintf(r.ios.ErrOut, "! %v\n", err)
					summary.Failed++
					if r.opts.ExitOnFailure {
						return summary, nil
					}
				} else {
					summary.Passed++
				}
			}
		}
	}

	return summary, nil
}

// runTest executes a single test. A non-nil error means the test
// failed; the caller owns reporting and counting.
func (r *Runner) runTest(ctx context.Context, collection, jobName, testName string, job jobs.Job) error {
	fmt.Fprintln(r.ios.ErrOut, "  ---")
	fmt.Fprintf(r.ios.ErrOut, "+ collection=%s job=%s test=%s\n", collection, jobName, testName)

	test := job.Tests[testName]

	command, err := jobs.RenderCommand(job.Command, test)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.ios.ErrOut, "> image=%s\n", job.Image.Ref())
	fmt.Fprintf(r.ios.ErrOut, "> command=%q\n", command)

	c, err := compose.New(r.ios, compose.Options{
		Collection:       collection,
		Job:              jobName,
		Test:             testName,
		Image:            job.Image.Ref(),
		ImageType:        job.Image.Type,
		Memory:           job.Image.Memory,
		Cores:            job.Image.Cores,
		ProjectDirectory: job.Image.ProjectDirectory,
		WorkingDirectory: job.Image.WorkingDirectory,
		Command:          command,
		Environment:      test.Environment,
		ComposeBin:       r.opts.ComposeBin,
	})
	if err != nil {
		return err
	}

	r.logVersionOnce(ctx)

	projectPath, err := c.Create()
	if err != nil {
		return err
	}
	testPath, err := c.TestPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.ios.ErrOut, "# path=%s\n", testPath)

	if len(test.Inputs) > 0 {
		if err := jobs.CopyInputs(r.ios, r.settings.DataDirectory, test.Inputs, projectPath); err != nil {
			return err
		}
	}

	if r.opts.DryRun {
		// Parse-and-build only: no container run, no output checks.
		return c.Delete()
	}

	result, err := c.Run(ctx, r.opts.Timeout)
	if err != nil {
		return err
	}

	if result.ExitCode != test.Checks.ExitCode {
		fmt.Fprintf(r.ios.ErrOut, "! exit_code=%d expected_exit_code=%d\n",
			result.ExitCode, test.Checks.ExitCode)
		fmt.Fprintln(r.ios.ErrOut, "! Container output follows...")
		fmt.Fprintln(r.ios.Out, result.Stdout)
		return fmt.Errorf("exit code %d, expected %d", result.ExitCode, test.Checks.ExitCode)
	}

	if r.opts.Verbose {
		fmt.Fprintln(r.ios.Out, result.Stdout)
	}

	if len(test.Checks.Outputs) > 0 {
		if err := jobs.CheckOutputs(r.ios, projectPath, test.Checks.Outputs); err != nil {
			return err
		}
	}

	if r.opts.KeepResults {
		return nil
	}
	return c.Delete()
}

// logVersionOnce reports the orchestration CLI version on the first
// build of the run. A failed query only costs the log line.
func (r *Runner) logVersionOnce(ctx context.Context) {
	if r.versionLogged {
		return
	}
	r.versionLogged = true

	version, err := r.composeVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine docker-compose version")
		return
	}
	fmt.Fprintf(r.ios.ErrOut, "# Compose: docker-compose (%s)\n", version)
}
