// Package jobs loads Data Manager job definitions and provides the
// test-support pieces built around them: command rendering, input
// staging and output checks.
package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/informaticsmatters/jote/internal/compose"
)

// Defaults applied when a definition omits container resources.
const (
	DefaultMemory = "1Gi"
	DefaultCores  = 1
)

// Definition is one job definition file: a collection of jobs.
type Definition struct {
	Collection string         `yaml:"collection"`
	Jobs       map[string]Job `yaml:"jobs"`
}

// Job describes a single containerized job and its tests.
type Job struct {
	Image   Image           `yaml:"image"`
	Command string          `yaml:"command"`
	Tests   map[string]Test `yaml:"tests"`
}

// Image describes the job container and where it runs.
type Image struct {
	Name             string `yaml:"name"`
	Tag              string `yaml:"tag"`
	Type             string `yaml:"type"`
	Memory           string `yaml:"memory"`
	Cores            int    `yaml:"cores"`
	ProjectDirectory string `yaml:"project-directory"`
	WorkingDirectory string `yaml:"working-directory"`
}

// Ref returns the full image reference (name:tag).
func (i Image) Ref() string {
	return i.Name + ":" + i.Tag
}

// Test is one named test of a job.
type Test struct {
	Options     map[string]any    `yaml:"options"`
	Inputs      map[string]string `yaml:"inputs"`
	Environment OrderedEnv        `yaml:"environment"`
	Checks      Checks            `yaml:"checks"`
}

// Checks declares the expected outcome of a test.
type Checks struct {
	ExitCode int           `yaml:"exitCode"`
	Outputs  []OutputCheck `yaml:"outputs"`
}

// OutputCheck is a set of checks against one output file.
type OutputCheck struct {
	Name   string      `yaml:"name"`
	Checks []FileCheck `yaml:"checks"`
}

// FileCheck is a single check. Exactly one field is set per entry.
type FileCheck struct {
	Exists    *bool `yaml:"exists"`
	LineCount *int  `yaml:"lineCount"`
}

// OrderedEnv is an ordered set of environment variables. YAML mappings
// lose their order through a Go map, so the unmarshaller walks the
// mapping node directly.
type OrderedEnv []compose.EnvVar

// UnmarshalYAML implements yaml.Unmarshaler preserving mapping order.
func (e *OrderedEnv) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("environment must be a mapping (line %d)", node.Line)
	}
	env := make(OrderedEnv, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		env = append(env, compose.EnvVar{
			Name:  node.Content[i].Value,
			Value: node.Content[i+1].Value,
		})
	}
	*e = env
	return nil
}

// TestCount returns the number of tests across all jobs.
func (d *Definition) TestCount() int {
	count := 0
	for _, job := range d.Jobs {
		count += len(job.Tests)
	}
	return count
}

// JobNames returns the job names in a stable order.
func (d *Definition) JobNames() []string {
	names := make([]string, 0, len(d.Jobs))
	for name := range d.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestNames returns the test names of a job in a stable order.
func (j Job) TestNames() []string {
	names := make([]string, 0, len(j.Tests))
	for name := range j.Tests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads every definition file (all the YAML files in dir) and
// returns the definitions that contain at least one test, along with
// the total number of tests found.
func Load(dir string) ([]Definition, int, error) {
	filenames, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(filenames)

	var definitions []Definition
	numTests := 0
	for _, filename := range filenames {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, 0, err
		}

		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, 0, fmt.Errorf("failed to parse %s: %w", filename, err)
		}

		count := def.TestCount()
		if count == 0 {
			continue
		}

		applyDefaults(&def)
		definitions = append(definitions, def)
		numTests += count
	}

	return definitions, numTests, nil
}

func applyDefaults(def *Definition) {
	for name, job := range def.Jobs {
		if job.Image.Memory == "" {
			job.Image.Memory = DefaultMemory
		}
		if job.Image.Cores == 0 {
			job.Image.Cores = DefaultCores
		}
		def.Jobs[name] = job
	}
}
