// Package app implements the application layer for hotload.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

// App holds the diagnostics and maintenance operations exposed by the CLI.
type App struct {
	cfg        *domain.Config
	cache      ports.ImageCache
	translator ports.Translator
	logger     ports.Logger
	tracer     ports.Tracer
}

// New creates a new App instance.
func New(
	cfg *domain.Config,
	cache ports.ImageCache,
	translator ports.Translator,
	log ports.Logger,
	tracer ports.Tracer,
) *App {
	return &App{
		cfg:        cfg,
		cache:      cache,
		translator: translator,
		logger:     log,
		tracer:     tracer,
	}
}

// Config returns the effective configuration.
func (a *App) Config() *domain.Config {
	return a.cfg
}

// CacheEntries lists every entry in the image cache.
func (a *App) CacheEntries(ctx context.Context) ([]domain.EntryInfo, error) {
	_, span := a.tracer.Start(ctx, "cache.ls")
	defer span.End()

	entries, err := a.cache.Entries()
	if err != nil {
		span.RecordError(err)
		return nil, zerr.Wrap(err, "failed to list cache entries")
	}
	span.SetAttribute("entries", len(entries))
	return entries, nil
}

// CacheStats summarizes the image cache.
func (a *App) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	_, span := a.tracer.Start(ctx, "cache.stat")
	defer span.End()

	stats, err := a.cache.Stats()
	if err != nil {
		span.RecordError(err)
		return domain.CacheStats{}, zerr.Wrap(err, "failed to read cache stats")
	}
	return stats, nil
}

// CacheClear removes the entries named by hashes, or every entry when none
// are given.
func (a *App) CacheClear(ctx context.Context, hashes []string) error {
	_, span := a.tracer.Start(ctx, "cache.clear")
	defer span.End()

	if len(hashes) == 0 {
		a.logger.Info("removing image cache...")
		if err := a.cache.ClearAll(); err != nil {
			span.RecordError(err)
			return zerr.Wrap(err, "failed to clear image cache")
		}
		a.logger.Info("removed image cache")
		return nil
	}

	var errs error
	for _, hash := range hashes {
		if err := a.cache.Clear(hash); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to clear entry"), "hash", hash))
			continue
		}
		a.logger.Info(fmt.Sprintf("removed entry %s", hash))
	}
	if errs != nil {
		span.RecordError(errs)
	}
	return errs
}

// VerifyReport is the result of a cache verification pass.
type VerifyReport struct {
	Checked int
	Healthy []string
	Removed []string
}

// CacheVerify checks every entry, including image checksums. Entries that
// fail are removed by the cache.
func (a *App) CacheVerify(ctx context.Context) (VerifyReport, error) {
	ctx, span := a.tracer.Start(ctx, "cache.verify")
	defer span.End()

	entries, err := a.cache.Entries()
	if err != nil {
		span.RecordError(err)
		return VerifyReport{}, zerr.Wrap(err, "failed to list cache entries")
	}

	var report VerifyReport
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		if a.verifyEntry(entry.Hash) {
			report.Healthy = append(report.Healthy, entry.Hash)
			continue
		}
		report.Removed = append(report.Removed, entry.Hash)
	}
	span.SetAttribute("removed", len(report.Removed))
	return report, nil
}

func (a *App) verifyEntry(hash string) bool {
	if !a.cache.HasCompleteEntry(hash) {
		_ = a.cache.Clear(hash)
		return false
	}
	_, err := a.cache.Load(hash)
	return err == nil
}

// TranslateOptions configures a one-off translation.
type TranslateOptions struct {
	// ClassName defaults to the file name without its .class suffix.
	ClassName string
	// Output defaults to the input path with the translator's artifact extension.
	Output string
}

// Translate runs the configured native compiler on a single class file and
// returns the path of the written image.
func (a *App) Translate(ctx context.Context, path string, opts TranslateOptions) (string, error) {
	bytecode, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to read class file"), "path", path)
	}

	name := opts.ClassName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".class")
	}

	native, err := a.translator.Translate(ctx, domain.GeneratedClass{Name: name, Bytecode: bytecode})
	if err != nil {
		return "", err
	}

	out := opts.Output
	if out == "" {
		out = strings.TrimSuffix(path, ".class") + filepath.Ext(a.cfg.Translator.Output)
	}
	if err := os.WriteFile(out, native, domain.FilePerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write image"), "path", out)
	}
	a.logger.Info(fmt.Sprintf("translated %s (%d bytes)", name, len(native)))
	return out, nil
}

// Hash returns the source hash of the program stored at path.
func (a *App) Hash(path string) (string, error) {
	text, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to read program"), "path", path)
	}
	return domain.NewSourceProgram(string(text)).Hash, nil
}

// Shutdown flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	return a.tracer.Shutdown(ctx)
}
