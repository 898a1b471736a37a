// Package hotload embeds the hot-load engine in a host application.
//
// The host supplies the language frontend, the runtime linker and the
// surface results are reported to. The engine translates classes defined
// while a program is evaluated into native images, caches them by source
// hash, and reuses them on later runs of the same program.
package hotload

import (
	"context"

	"go.trai.ch/hotload/internal/adapters/cas"
	"go.trai.ch/hotload/internal/adapters/logger"
	"go.trai.ch/hotload/internal/adapters/telemetry"
	"go.trai.ch/hotload/internal/adapters/translator"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/hotload/internal/engine/coordinator"
	"go.trai.ch/hotload/internal/engine/interceptor"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.trai.ch/zerr"
)

type (
	// Config is the engine configuration.
	Config = domain.Config
	// TranslatorConfig describes the external native compiler.
	TranslatorConfig = domain.TranslatorConfig
	// Outcome is the result of a run.
	Outcome = domain.Outcome
	// Failure describes a failed run.
	Failure = domain.Failure
	// GeneratedClass is bytecode produced by the frontend.
	GeneratedClass = domain.GeneratedClass
	// CompiledImage is a translated native image.
	CompiledImage = domain.CompiledImage

	Frontend     = ports.Frontend
	Form         = ports.Form
	ClassDefiner = ports.ClassDefiner
	Class        = ports.Class
	Loader       = ports.Loader
	Linker       = ports.Linker
	Surface      = ports.Surface
	Logger       = ports.Logger
	Translator   = ports.Translator
	ImageCache   = ports.ImageCache

	// RunRequest describes one run.
	RunRequest = coordinator.RunRequest
	// Slot is the host's context-loader slot.
	Slot = loader.Slot
)

// Outcome kinds.
const (
	OutcomeSuccess   = domain.OutcomeSuccess
	OutcomeFailure   = domain.OutcomeFailure
	OutcomeCancelled = domain.OutcomeCancelled
)

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

// NewSlot returns a slot holding no chain.
func NewSlot() *Slot {
	return loader.NewSlot(nil)
}

// SlotFromContext returns the slot attached to a run's evaluation context.
func SlotFromContext(ctx context.Context) (*Slot, bool) {
	return loader.SlotFromContext(ctx)
}

// Options configures an Engine.
type Options struct {
	// Config defaults to DefaultConfig.
	Config *Config
	// Frontend evaluates programs. Required.
	Frontend Frontend
	// Linker builds runtime loaders over native images. Required.
	Linker Linker
	// Parent resolves the host application's own classes.
	Parent Loader
	// Logger defaults to the pretty terminal logger.
	Logger Logger
	// Translator overrides the external compiler described by Config.
	Translator Translator
}

// Engine runs programs with native image caching.
type Engine struct {
	coordinator *coordinator.Coordinator
	cache       *cas.Store
	tracer      ports.Tracer
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Frontend == nil || opts.Linker == nil {
		return nil, zerr.Wrap(domain.ErrConfigInvalid, "frontend and linker are required")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}

	log := opts.Logger
	if log == nil {
		l := logger.New()
		l.SetJSON(cfg.JSONLogs)
		log = l
	}

	var tracer ports.Tracer = telemetry.NewNoOpTracer()
	if cfg.Trace {
		tracer = telemetry.NewOTelTracer("hotload", telemetry.NewLogBridge(log))
	}

	store, err := cas.NewStore(cfg.CacheRoot, log)
	if err != nil {
		return nil, err
	}

	tr := opts.Translator
	if tr == nil {
		tr = translator.New(cfg.Translator, cfg.ScratchDir, log, tracer)
	}

	ic := interceptor.New(tr, store, log, tracer)
	c := coordinator.New(opts.Frontend, opts.Linker, store, ic, log, tracer, coordinator.Options{
		Parent:      opts.Parent,
		EntryClass:  cfg.EntryClass,
		Parallelism: cfg.Parallelism,
	})

	return &Engine{coordinator: c, cache: store, tracer: tracer}, nil
}

// Run evaluates req and reports the outcome to surface.
func (e *Engine) Run(ctx context.Context, req RunRequest, surface Surface) Outcome {
	return e.coordinator.Run(ctx, req, surface)
}

// Warm compiles and caches source without executing it. It reports whether
// the entry was already cached.
func (e *Engine) Warm(ctx context.Context, source, entryClass string) (bool, error) {
	return e.coordinator.Warm(ctx, source, entryClass)
}

// Cache returns the image cache.
func (e *Engine) Cache() ImageCache {
	return e.cache
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	return e.tracer.Shutdown(ctx)
}
