// Package compose prepares and runs a single containerized Job test.
//
// It simulates the directory layout and environment the Data Manager and
// Job Operator establish around a production Job: it creates per-test
// project and instance directories, writes a docker-compose file into the
// test directory, runs "docker-compose up" to execute the Job, and can
// remove the test directory afterwards.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/informaticsmatters/jote/internal/iostreams"
	"github.com/informaticsmatters/jote/internal/logger"
)

// InstanceDirectory is the simulated instance directory, created by the
// Data Manager prior to launching the corresponding Job. Jobs know this
// directory because their container has it set via the environment
// variable DM_INSTANCE_DIRECTORY. It is deliberately the same fixed
// value for every test.
const InstanceDirectory = ".instance-88888888-8888-8888-8888-888888888888"

// ImageTypeNextflow is the image type that triggers the write of a
// nextflow.config into the test project directory. Any other image type
// is an opaque pass-through.
const ImageTypeNextflow = "nextflow"

// DefaultRunTimeout is the default limit for a single "up" invocation.
const DefaultRunTimeout = 10 * time.Minute

// downTimeout bounds the best-effort "down" that follows every run.
const downTimeout = 4 * time.Minute

const (
	composeFileName  = "docker-compose.yml"
	nextflowFileName = "nextflow.config"
	projectDirName   = "project"

	// serviceName is the single service in the generated compose file.
	serviceName = "job"
)

// nextflowConfig enables the container-less nextflow execution mode.
// It is written verbatim; there are no template variables.
const nextflowConfig = `
docker.enabled = true
docker.runOptions = '-u $(id -u):$(id -g)'
`

// EnvVar is one extra environment variable passed to the Job container.
// A slice of these preserves the caller's insertion order, which a Go
// map would not.
type EnvVar struct {
	Name  string
	Value string
}

// Options describes one Job test. It is copied at construction; later
// mutation of the caller's values does not affect a built Compose.
type Options struct {
	Collection string
	Job        string
	Test       string

	// Image is the full container image reference (name:tag).
	Image string
	// ImageType discriminates Job engine styles (see ImageTypeNextflow).
	ImageType string

	// Memory must carry a "Mi" or "Gi" suffix.
	Memory string
	// Cores is the CPU core count for the container.
	Cores int

	// ProjectDirectory is the project path as seen inside the container.
	ProjectDirectory string
	// WorkingDirectory is the container working directory.
	WorkingDirectory string

	// Command is the rendered Job entrypoint command.
	Command string

	// Environment is copied in order into the compose environment list,
	// after the fixed DM_INSTANCE_DIRECTORY entry.
	Environment []EnvVar

	// UserID and GroupID override the container identity. When nil, the
	// executing process's own uid/gid are resolved at render time, not
	// here (the late binding is deliberate).
	UserID  *int
	GroupID *int

	// ComposeBin overrides the orchestration CLI ("docker-compose" when
	// empty). Tests substitute a stub script.
	ComposeBin string
}

// RunResult carries the outcome of a Job container run. A non-zero
// ExitCode is not itself a harness failure; the caller classifies it
// against the Job's documented expectations.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Compose handles the docker-compose execution for an individual test.
type Compose struct {
	ios  *iostreams.IOStreams
	opts Options

	// memLimit is the compose-style memory limit ("512m", "2g"),
	// converted from the Mi/Gi quantity at construction.
	memLimit string

	// composeBin is the orchestration CLI; tests substitute a stub.
	composeBin string
}

// New validates opts and builds a Compose for one test. The memory
// quantity must parse and carry a Mi or Gi suffix; anything else is a
// contract violation, not a recoverable condition.
func New(ios *iostreams.IOStreams, opts Options) (*Compose, error) {
	memLimit, err := convertMemory(opts.Memory)
	if err != nil {
		return nil, err
	}

	opts.Environment = slices.Clone(opts.Environment)

	composeBin := opts.ComposeBin
	if composeBin == "" {
		composeBin = "docker-compose"
	}

	return &Compose{
		ios:        ios,
		opts:       opts,
		memLimit:   memLimit,
		composeBin: composeBin,
	}, nil
}

// convertMemory translates a Kubernetes-style binary quantity to the
// docker-compose form: "512Mi" becomes "512m", "2Gi" becomes "2g".
func convertMemory(memory string) (string, error) {
	var limit string
	if v, ok := strings.CutSuffix(memory, "Mi"); ok {
		limit = v + "m"
	} else if v, ok := strings.CutSuffix(memory, "Gi"); ok {
		limit = v + "g"
	} else {
		return "", fmt.Errorf("memory %q must have a Mi or Gi suffix", memory)
	}
	if _, err := units.RAMInBytes(memory); err != nil {
		return "", fmt.Errorf("invalid memory quantity %q: %w", memory, err)
	}
	return limit, nil
}

// TestRoot returns the root of the testing directory,
// relative to the current working directory.
func TestRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, "data-manager", "jote"), nil
}

// TestPath returns the path to the root directory for this test.
func (c *Compose) TestPath() (string, error) {
	root, err := TestRoot()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.%s.%s", c.opts.Collection, c.opts.Job, c.opts.Test)
	return filepath.Join(root, name), nil
}

// ProjectPath returns the path to the project directory for this test.
func (c *Compose) ProjectPath() (string, error) {
	testPath, err := c.TestPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(testPath, projectDirName), nil
}

// Create writes the docker-compose file and creates the test directory
// structure, returning the full path to the test project directory.
// Any directory left over from a previous build of the same test is
// removed first.
func (c *Compose) Create() (string, error) {
	fmt.Fprintln(c.ios.ErrOut, "# Compose: Creating test environment...")

	testPath, err := c.TestPath()
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(testPath); err != nil {
		return "", err
	}

	projectPath, err := c.ProjectPath()
	if err != nil {
		return "", err
	}
	instancePath := filepath.Join(projectPath, InstanceDirectory)
	if err := os.MkdirAll(instancePath, 0o755); err != nil {
		return "", err
	}

	// Run as a specific user/group ID? The process identity is read
	// here, at render time, not at construction time.
	uid := os.Getuid()
	if c.opts.UserID != nil {
		uid = *c.opts.UserID
	}
	gid := os.Getgid()
	if c.opts.GroupID != nil {
		gid = *c.opts.GroupID
	}

	content, err := c.renderDescriptor(uid, gid, projectPath)
	if err != nil {
		return "", err
	}
	composePath := filepath.Join(testPath, composeFileName)
	if err := os.WriteFile(composePath, content, 0o644); err != nil {
		return "", err
	}
	logger.Debug().
		Str("path", composePath).
		Int("uid", uid).
		Int("gid", gid).
		Msg("wrote compose file")

	// Nextflow runs outside a container from the project directory,
	// which is where it looks for its config by default.
	if c.opts.ImageType == ImageTypeNextflow {
		nextflowPath := filepath.Join(projectPath, nextflowFileName)
		if err := os.WriteFile(nextflowPath, []byte(nextflowConfig), 0o644); err != nil {
			return "", err
		}
		logger.Debug().Str("path", nextflowPath).Msg("wrote nextflow config")
	}

	fmt.Fprintln(c.ios.ErrOut, "# Compose: Created")

	return projectPath, nil
}

// Run executes the Job container, expecting the docker-compose file
// written by Create. It blocks until the container exits or timeout
// elapses (DefaultRunTimeout when timeout is zero). Whatever happens, a
// best-effort "down" follows the run and the process working directory
// is restored before returning.
func (c *Compose) Run(ctx context.Context, timeout time.Duration) (*RunResult, error) {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	executionDirectory, err := c.TestPath()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(c.ios.ErrOut, `# Compose: Executing the test ("docker-compose up")...`)
	fmt.Fprintf(c.ios.ErrOut, "# Compose: Execution directory is %q\n", executionDirectory)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(executionDirectory); err != nil {
		return nil, err
	}
	defer func() {
		// The working directory is process-wide state: a leaked change
		// would corrupt every subsequent operation, so restoration must
		// happen on every exit path.
		if err := os.Chdir(cwd); err != nil {
			logger.Error().Err(err).Str("dir", cwd).Msg("failed to restore working directory")
		}
	}()
	defer c.down(ctx)

	upCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	up := exec.CommandContext(upCtx, c.composeBin,
		"up", "--exit-code-from", serviceName, "--abort-on-container-exit")
	up.Stdout = &stdout
	up.Stderr = &stderr
	if c.ios.IsOutputTTY() {
		// An interactive user watches the Job as it runs; the buffers
		// still capture everything for the result.
		up.Stdout = io.MultiWriter(&stdout, c.ios.Out)
		up.Stderr = io.MultiWriter(&stderr, c.ios.ErrOut)
	}

	runErr := up.Run()

	if errors.Is(upCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%q timed out after %s: %w",
			c.composeBin+" up", timeout, upCtx.Err())
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run %q: %w", c.composeBin+" up", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	fmt.Fprintf(c.ios.ErrOut, "# Compose: Executed (exit code %d)\n", exitCode)

	return &RunResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// down tears the compose stack back down. The result is discarded: the
// stack may legitimately be gone already, and a failed teardown must not
// mask the run outcome. It runs on its own deadline, detached from any
// cancellation of the run context.
func (c *Compose) down(ctx context.Context) {
	downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), downTimeout)
	defer cancel()

	cmd := exec.CommandContext(downCtx, c.composeBin, "down")
	if err := cmd.Run(); err != nil {
		logger.Debug().Err(err).Msg("compose down failed (ignored)")
	}
}

// Delete removes a test directory created by Create. It is a no-op when
// the directory does not exist and is safe to call repeatedly.
func (c *Compose) Delete() error {
	fmt.Fprintln(c.ios.ErrOut, "# Compose: Deleting the test...")

	testPath, err := c.TestPath()
	if err != nil {
		return err
	}
	if err := os.RemoveAll(testPath); err != nil {
		return err
	}

	fmt.Fprintln(c.ios.ErrOut, "# Compose: Deleted")

	return nil
}
