// Package config provides the configuration loader for hotload.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path. Relative directories in the file
// are resolved against the directory holding it.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var file Hotloadfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	cfg, err := file.toDomain(filepath.Dir(path))
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does not exist.
func LoadOrDefault(path string) (*domain.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return domain.DefaultConfig(), nil
	}
	return Load(path)
}

// Resolve picks the configuration file: an explicit path must exist, otherwise
// HOTLOAD_CONFIG, otherwise hotload.yaml in cwd which may be absent.
func Resolve(explicit, cwd string) (*domain.Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if env := os.Getenv(domain.ConfigEnvVar); env != "" {
		return Load(env)
	}
	return LoadOrDefault(filepath.Join(cwd, domain.ConfigFileName))
}

func (f *Hotloadfile) toDomain(dir string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	if f.CacheRoot != "" {
		cfg.CacheRoot = resolvePath(dir, f.CacheRoot)
	}
	if f.ScratchDir != "" {
		cfg.ScratchDir = resolvePath(dir, f.ScratchDir)
	}
	if f.EntryPoint != "" {
		cfg.EntryClass = f.EntryPoint
	}
	if f.Parallelism < 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "parallelism must not be negative"), "parallelism", f.Parallelism)
	}
	if f.Parallelism > 0 {
		cfg.Parallelism = f.Parallelism
	}
	cfg.JSONLogs = f.Log.JSON
	cfg.Trace = f.Trace

	if f.Translator != nil {
		if err := f.Translator.apply(&cfg.Translator); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (t *TranslatorDTO) apply(cfg *domain.TranslatorConfig) error {
	if len(t.Command) > 0 {
		if !slices.ContainsFunc(t.Command, func(arg string) bool {
			return strings.Contains(arg, domain.InPlaceholder)
		}) {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "translator command must reference {in}"), "command", t.Command)
		}
		cfg.Command = slices.Clone(t.Command)
	}
	if t.Output != "" {
		if filepath.Base(t.Output) != t.Output {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "translator output must be a file name"), "output", t.Output)
		}
		cfg.Output = t.Output
	}
	if t.Timeout != "" {
		d, err := time.ParseDuration(t.Timeout)
		if err != nil {
			return errors.Join(domain.ErrConfigInvalid, zerr.With(zerr.Wrap(err, "malformed translator timeout"), "timeout", t.Timeout))
		}
		if d < 0 {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "translator timeout must not be negative"), "timeout", t.Timeout)
		}
		cfg.Timeout = d
	}
	return nil
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
