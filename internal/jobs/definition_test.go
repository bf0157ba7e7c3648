package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleDefinition = `---
collection: dm-jobs
jobs:
  concat:
    image:
      name: busybox
      tag: latest
      project-directory: /project
      working-directory: /project
    command: 'echo {{.greeting}}'
    tests:
      simple:
        options:
          greeting: hi
        environment:
          ZEBRA: first
          ALPHA: second
        checks:
          exitCode: 0
  split:
    image:
      name: busybox
      tag: '1.36'
      memory: 2Gi
      cores: 4
      project-directory: /project
      working-directory: /project
    command: 'split input.txt'
    tests:
      lines:
        checks:
          exitCode: 0
      bytes:
        checks:
          exitCode: 1
`

const noTestsDefinition = `---
collection: dm-utils
jobs:
  orphan:
    image:
      name: busybox
      tag: latest
      project-directory: /project
      working-directory: /project
    command: 'true'
`

func writeDefinitions(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeDefinitions(t, map[string]string{
		"jobs.yaml":  sampleDefinition,
		"utils.yaml": noTestsDefinition,
	})

	definitions, numTests, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, numTests)
	require.Len(t, definitions, 1, "definitions without tests are dropped")
	assert.Equal(t, "dm-jobs", definitions[0].Collection)
	assert.Equal(t, []string{"concat", "split"}, definitions[0].JobNames())
	assert.Equal(t, []string{"bytes", "lines"}, definitions[0].Jobs["split"].TestNames())
}

func TestLoadAppliesResourceDefaults(t *testing.T) {
	dir := writeDefinitions(t, map[string]string{"jobs.yaml": sampleDefinition})

	definitions, _, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, definitions, 1)

	concat := definitions[0].Jobs["concat"]
	assert.Equal(t, DefaultMemory, concat.Image.Memory)
	assert.Equal(t, DefaultCores, concat.Image.Cores)

	split := definitions[0].Jobs["split"]
	assert.Equal(t, "2Gi", split.Image.Memory)
	assert.Equal(t, 4, split.Image.Cores)
}

func TestLoadEmptyDirectory(t *testing.T) {
	definitions, numTests, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, definitions)
	assert.Zero(t, numTests)
}

func TestLoadBadYAML(t *testing.T) {
	dir := writeDefinitions(t, map[string]string{"bad.yaml": ":\n  - ]["})
	_, _, err := Load(dir)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestOrderedEnvPreservesOrder(t *testing.T) {
	dir := writeDefinitions(t, map[string]string{"jobs.yaml": sampleDefinition})

	definitions, _, err := Load(dir)
	require.NoError(t, err)

	env := definitions[0].Jobs["concat"].Tests["simple"].Environment
	assert.Equal(t, OrderedEnv{
		{Name: "ZEBRA", Value: "first"},
		{Name: "ALPHA", Value: "second"},
	}, env)
}

func TestOrderedEnvRejectsNonMapping(t *testing.T) {
	var env OrderedEnv
	err := yaml.Unmarshal([]byte("- A=1\n- B=2\n"), &env)
	assert.ErrorContains(t, err, "must be a mapping")
}

func TestImageRef(t *testing.T) {
	img := Image{Name: "busybox", Tag: "latest"}
	assert.Equal(t, "busybox:latest", img.Ref())
}
