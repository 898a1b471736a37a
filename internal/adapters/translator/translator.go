// Package translator runs the external native compiler on a single class.
package translator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	waitDelay = 2 * time.Second
	tailLines = 8
)

var _ ports.Translator = (*Translator)(nil)

// Translator implements ports.Translator with os/exec. It holds no mutable
// state, so concurrent calls are safe.
type Translator struct {
	cfg     domain.TranslatorConfig
	scratch string
	logger  ports.Logger
	tracer  ports.Tracer
}

// New creates a translator that runs cfg.Command inside scratch.
func New(cfg domain.TranslatorConfig, scratch string, logger ports.Logger, tracer ports.Tracer) *Translator {
	return &Translator{
		cfg:     cfg,
		scratch: scratch,
		logger:  logger,
		tracer:  tracer,
	}
}

// Translate writes the class bytecode to a private scratch directory, runs the
// configured tool once and returns the produced artifact.
func (t *Translator) Translate(ctx context.Context, class domain.GeneratedClass) (_ []byte, err error) {
	ctx, span := t.tracer.Start(ctx, "translate", ports.WithAttribute("class", class.Name))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if len(t.cfg.Command) == 0 {
		return nil, zerr.Wrap(domain.ErrConfigInvalid, "translator command is empty")
	}

	if err := os.MkdirAll(t.scratch, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", t.scratch)
	}
	dir, err := os.MkdirTemp(t.scratch, "translate-*")
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", t.scratch)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			t.logger.Error(zerr.With(zerr.Wrap(rmErr, "failed to remove scratch directory"), "path", dir))
		}
	}()

	in := filepath.Join(dir, classFileName(class.Name))
	out := filepath.Join(dir, "out")
	if err := os.WriteFile(in, class.Bytecode, domain.PrivateFilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", in)
	}
	if err := os.Mkdir(out, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", out)
	}

	if err := t.run(ctx, class.Name, expand(t.cfg.Command, in, out), dir); err != nil {
		return nil, err
	}

	artifact := filepath.Join(out, t.cfg.Output)
	//nolint:gosec // Path is inside a scratch directory owned by this call
	data, err := os.ReadFile(artifact)
	if err != nil || len(data) == 0 {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", artifact)
		}
		noOutput := zerr.With(zerr.Wrap(domain.ErrTranslationNoOutput, "missing artifact"), "class", class.Name)
		return nil, errors.Join(domain.ErrTranslationFailed, zerr.With(noOutput, "artifact", t.cfg.Output))
	}

	span.SetAttribute("bytes", len(data))
	return data, nil
}

func (t *Translator) run(ctx context.Context, className string, argv []string, dir string) error {
	runCtx := ctx
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec // configured command
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	stdout := &logWriter{emit: t.logger.Info}
	stderr := &logWriter{emit: t.logger.Warn}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zerr.With(zerr.Wrap(ctxErr, "translation cancelled"), "class", className)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		timeout := zerr.With(zerr.Wrap(domain.ErrTranslationTimeout, "translator killed"), "class", className)
		return errors.Join(domain.ErrTranslationFailed, zerr.With(timeout, "timeout", t.cfg.Timeout.String()))
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	failed := zerr.With(zerr.Wrap(err, "translator command failed"), "class", className)
	failed = zerr.With(failed, "exit_code", exitCode)
	if tail := stderr.Tail(); tail != "" {
		failed = zerr.With(failed, "stderr", tail)
	}
	return errors.Join(domain.ErrTranslationFailed, failed)
}

func expand(template []string, in, out string) []string {
	argv := make([]string, len(template))
	r := strings.NewReplacer(domain.InPlaceholder, in, domain.OutPlaceholder, out)
	for i, arg := range template {
		argv[i] = r.Replace(arg)
	}
	return argv
}

// classFileName maps a class name to a flat file name.
func classFileName(name string) string {
	base := strings.NewReplacer("/", "_", "\\", "_", ".", "_").Replace(name)
	if base == "" {
		base = "class"
	}
	return base + ".class"
}
