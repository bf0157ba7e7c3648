// Package config loads jote runtime settings.
//
// Settings come from an optional .jote.yaml in the working directory,
// overridden by JOTE_* environment variables. Everything has a default,
// so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SettingsFileName is the optional per-repository settings file.
const SettingsFileName = ".jote.yaml"

// Defaults applied when neither the settings file nor the environment
// provides a value.
const (
	DefaultDefinitionDirectory = "data-manager"
	DefaultDataDirectory       = "data"
	DefaultRunTimeout          = 10 * time.Minute
)

// Settings holds the runtime configuration for a jote run.
type Settings struct {
	// DefinitionDirectory is where job definition YAML files live.
	DefinitionDirectory string

	// DataDirectory is where test input files live.
	DataDirectory string

	// RunTimeout is the hard limit for a single "up" invocation.
	RunTimeout time.Duration

	// LogsDirectory enables file logging when non-empty.
	LogsDirectory string
}

// Loader reads settings for a given working directory.
type Loader struct {
	workDir string
	viper   *viper.Viper
}

// NewLoader creates a settings loader rooted at workDir.
func NewLoader(workDir string) *Loader {
	return &Loader{
		workDir: workDir,
		viper:   viper.New(),
	}
}

// Load reads the optional settings file and environment overrides.
func (l *Loader) Load() (*Settings, error) {
	v := l.viper

	v.SetDefault("definition_directory", DefaultDefinitionDirectory)
	v.SetDefault("data_directory", DefaultDataDirectory)
	v.SetDefault("run_timeout", DefaultRunTimeout)
	v.SetDefault("logs_directory", "")

	v.SetEnvPrefix("JOTE")
	v.AutomaticEnv()

	settingsPath := filepath.Join(l.workDir, SettingsFileName)
	if _, err := os.Stat(settingsPath); err == nil {
		v.SetConfigFile(settingsPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	return &Settings{
		DefinitionDirectory: v.GetString("definition_directory"),
		DataDirectory:       v.GetString("data_directory"),
		RunTimeout:          v.GetDuration("run_timeout"),
		LogsDirectory:       v.GetString("logs_directory"),
	}, nil
}
