// Package config loads sift.yaml into a domain.Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds sift.yaml in cwd or one of its parents. Relative paths in the
// file are resolved against the file's directory. Without a file the defaults
// are returned, resolved against cwd.
func (l *Loader) Load(cwd string) (domain.Config, error) {
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}

	configPath, found := findConfiguration(cwd)
	if !found {
		cfg := domain.DefaultConfig()
		cfg.StateDir = resolvePath(cwd, cfg.StateDir)
		return cfg, nil
	}

	var file Siftfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return domain.Config{}, zerr.With(err, "path", configPath)
	}

	if file.Version != "" && file.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s: unknown version %q, reading it as version %s",
			configPath, file.Version, SupportedVersion))
	}

	cfg, err := buildConfig(filepath.Dir(configPath), &file)
	if err != nil {
		return domain.Config{}, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func buildConfig(baseDir string, file *Siftfile) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	for _, root := range file.Roots {
		cfg.Roots = append(cfg.Roots, resolvePath(baseDir, root))
	}

	if len(file.Include) > 0 {
		cfg.Include = file.Include
	}
	cfg.Exclude = file.Exclude
	if err := ValidatePatterns(cfg.Include, cfg.Exclude); err != nil {
		return domain.Config{}, err
	}

	if file.IntervalMS != nil {
		if *file.IntervalMS <= 0 {
			return domain.Config{}, zerr.With(domain.ErrInvalidInterval, "interval_ms", *file.IntervalMS)
		}
		cfg.Interval = time.Duration(*file.IntervalMS) * time.Millisecond
	}
	if file.DebounceMS != nil {
		if *file.DebounceMS <= 0 {
			return domain.Config{}, zerr.With(domain.ErrInvalidInterval, "debounce_ms", *file.DebounceMS)
		}
		cfg.Debounce = time.Duration(*file.DebounceMS) * time.Millisecond
	}

	if file.MaxKeys < 0 {
		return domain.Config{}, zerr.With(domain.ErrInvalidMaxKeys, "max_keys", file.MaxKeys)
	}
	cfg.MaxKeys = file.MaxKeys

	if file.StateDir != "" {
		cfg.StateDir = file.StateDir
	}
	cfg.StateDir = resolvePath(baseDir, cfg.StateDir)

	if file.Watch != nil {
		cfg.Watch = *file.Watch
	}
	cfg.ContinueOnError = file.ContinueOnError

	if file.Output != "" && file.Output != "-" {
		cfg.Output = resolvePath(baseDir, file.Output)
	}

	return cfg, nil
}

// ValidatePatterns checks that every include and exclude glob is well formed.
func ValidatePatterns(include, exclude []string) error {
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrInvalidPattern.Error()), "pattern", pattern)
		}
	}
	return nil
}

// resolvePath expands a leading ~ and makes path absolute relative to baseDir.
func resolvePath(baseDir, path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by findConfiguration
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
