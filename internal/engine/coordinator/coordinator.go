// Package coordinator drives a run end to end: cache lookup, form-by-form
// evaluation through the interceptor, commit, and entry point invocation.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/hotload/internal/engine/interceptor"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// RunRequest describes one run.
type RunRequest struct {
	// Source is the full program text.
	Source string
	// EntryClass overrides the configured entry point class.
	EntryClass string
	// Env is the environment-context argument of the entry point.
	Env any
	// View is the surface argument of the entry point.
	View any
	// Slot is the host's context-loader slot. A private slot is used when nil.
	Slot *loader.Slot
}

// Options configures a Coordinator.
type Options struct {
	// Parent resolves the host application's own classes.
	Parent ports.Loader
	// EntryClass is the default entry point class.
	EntryClass string
	// Parallelism bounds concurrent translations while warming.
	Parallelism int
}

// Coordinator orchestrates runs. Runs for the same source hash are serialized;
// runs for different sources proceed concurrently.
type Coordinator struct {
	frontend    ports.Frontend
	linker      ports.Linker
	cache       ports.ImageCache
	interceptor *interceptor.Interceptor
	logger      ports.Logger
	tracer      ports.Tracer
	opts        Options

	locks *keyedMutex
	warm  singleflight.Group
}

// New creates a Coordinator.
func New(
	frontend ports.Frontend,
	linker ports.Linker,
	cache ports.ImageCache,
	ic *interceptor.Interceptor,
	logger ports.Logger,
	tracer ports.Tracer,
	opts Options,
) *Coordinator {
	if opts.EntryClass == "" {
		opts.EntryClass = domain.DefaultEntryClass
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = domain.DefaultParallelism
	}
	return &Coordinator{
		frontend:    frontend,
		linker:      linker,
		cache:       cache,
		interceptor: ic,
		logger:      logger,
		tracer:      tracer,
		opts:        opts,
		locks:       newKeyedMutex(),
	}
}

// run is the state of one Run call.
type run struct {
	req     RunRequest
	entry   string
	program domain.SourceProgram
	builder *loader.Builder
	slot    *loader.Slot
}

// Run executes req and reports the outcome to surface. A cancelled run
// reports nothing and leaves no cache entry behind.
func (c *Coordinator) Run(ctx context.Context, req RunRequest, surface ports.Surface) domain.Outcome {
	out := c.execute(ctx, req)

	switch out.Kind {
	case domain.OutcomeSuccess:
		surface.ReportSuccess(out.Result)
	case domain.OutcomeFailure:
		c.logger.Error(out.Err)
		surface.ReportFailure(*out.Failure)
	case domain.OutcomeCancelled:
	}
	return out
}

func (c *Coordinator) execute(ctx context.Context, req RunRequest) (out domain.Outcome) {
	r := &run{
		req:     req,
		entry:   req.EntryClass,
		program: domain.NewSourceProgram(req.Source),
		builder: loader.NewBuilder(c.linker, c.opts.Parent),
		slot:    req.Slot,
	}
	if r.entry == "" {
		r.entry = c.opts.EntryClass
	}
	if r.slot == nil {
		r.slot = loader.NewSlot(nil)
	}

	ctx, span := c.tracer.Start(ctx, "run", ports.WithAttribute("hash", r.program.Hash))
	defer func() {
		span.SetAttribute("outcome", out.Kind.String())
		span.SetAttribute("from_cache", out.FromCache)
		if out.Kind == domain.OutcomeFailure {
			span.RecordError(out.Err)
		}
		span.End()
	}()

	unlock, err := c.locks.Lock(ctx, r.program.Hash)
	if err != nil {
		return cancelled(err)
	}
	defer unlock()

	restore := r.slot.Install(r.builder.Head())
	defer func() {
		if out.Kind != domain.OutcomeSuccess {
			restore()
		}
	}()
	ctx = loader.ContextWithSlot(ctx, r.slot)

	if c.cache.HasCompleteEntry(r.program.Hash) {
		if cachedOut, hit := c.fromCache(ctx, r); hit {
			return cachedOut
		}
	}
	return c.fresh(ctx, r)
}

// fromCache serves r from a complete entry. It reports hit=false when the
// entry vanished between the check and the load.
func (c *Coordinator) fromCache(ctx context.Context, r *run) (domain.Outcome, bool) {
	hash := r.program.Hash

	images, err := c.cache.Load(hash)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.Outcome{}, false
		}
		return c.fail(r, err, domain.FailureInternal, 0), true
	}

	chain, err := r.builder.Seed(images)
	if err != nil {
		c.invalidate(hash)
		err = errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "failed to load cached images"), "hash", hash))
		return c.fail(r, err, domain.FailureClassResolution, 0), true
	}
	r.slot.Set(chain)

	if err := c.verifyDependencies(hash, r.entry, chain); err != nil {
		c.invalidate(hash)
		return c.fail(r, err, domain.FailureClassResolution, 0), true
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err), true
	}

	out := c.invoke(ctx, r, chain)
	out.FromCache = true
	return out, true
}

// verifyDependencies checks that every class the entry point depends on
// resolves. Missing metadata is not an error.
func (c *Coordinator) verifyDependencies(hash, entry string, chain *loader.Chain) error {
	meta, err := c.cache.Metadata(hash)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("skipping dependency check for %s: %v", hash, err))
		return nil
	}
	if meta == nil {
		return nil
	}
	for _, name := range meta.Dependencies.Requires(entry) {
		if _, err := chain.Resolve(name); err != nil {
			return errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "dependency does not resolve"), "class", name))
		}
	}
	return nil
}

// fresh evaluates r form by form with the interceptor in capture mode and
// commits the entry once every form succeeded.
func (c *Coordinator) fresh(ctx context.Context, r *run) (out domain.Outcome) {
	hash := r.program.Hash
	session := interceptor.NewSession(hash, interceptor.ModeCapture, r.builder, r.slot)
	definer := c.interceptor.Definer(session)

	committed := false
	defer func() {
		if !committed {
			session.Close()
			c.discard(hash)
		}
	}()

	for form, err := range c.frontend.Forms(r.program) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		if err != nil {
			err = errors.Join(domain.ErrEvaluationFailed, zerr.Wrap(err, "failed to read form"))
			return c.fail(r, err, domain.FailureEvaluation, 0)
		}
		if err := form.Eval(ctx, definer); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(ctxErr)
			}
			if classify(err, domain.FailureEvaluation) == domain.FailureEvaluation {
				err = errors.Join(domain.ErrEvaluationFailed, err)
			}
			return c.fail(r, err, domain.FailureEvaluation, form.Line())
		}
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	if err := c.interceptor.Commit(ctx, session, r.entry); err != nil {
		c.logger.Error(zerr.Wrap(err, "run result will not be cached"))
	} else {
		committed = true
	}

	return c.invoke(ctx, r, session.Chain())
}

// shape is one candidate entry point signature.
type shape struct {
	name string
	args func(r *run) []any
}

var shapes = []shape{
	{name: "()", args: func(*run) []any { return nil }},
	{name: "(context)", args: func(r *run) []any { return []any{r.req.Env} }},
	{name: "(context, surface)", args: func(r *run) []any { return []any{r.req.Env, r.req.View} }},
}

// invoke resolves the entry class and tries each shape in order until one
// does not report an arity mismatch.
func (c *Coordinator) invoke(ctx context.Context, r *run, chain *loader.Chain) domain.Outcome {
	cls, err := chain.Resolve(r.entry)
	if err != nil {
		// An entry without its entry point class can never run.
		c.invalidate(r.program.Hash)
		err = errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "entry point class does not resolve"), "class", r.entry))
		return c.fail(r, err, domain.FailureClassResolution, 0)
	}

	attempted := make([]string, 0, len(shapes))
	var attempts []error
	for _, s := range shapes {
		result, err := cls.Invoke(ctx, s.args(r)...)
		if err == nil {
			return domain.Outcome{Kind: domain.OutcomeSuccess, Result: result}
		}
		if !errors.Is(err, domain.ErrArityMismatch) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(ctxErr)
			}
			err = errors.Join(domain.ErrEvaluationFailed, zerr.With(zerr.Wrap(err, "entry point failed"), "shape", s.name))
			return c.fail(r, err, domain.FailureEvaluation, 0)
		}
		attempted = append(attempted, s.name)
		attempts = append(attempts, zerr.With(err, "shape", s.name))
	}

	err = zerr.With(zerr.Wrap(domain.ErrEntryPointArity, "tried "+strings.Join(attempted, ", ")), "class", r.entry)
	err = zerr.With(err, "shapes", attempted)
	return c.fail(r, errors.Join(append([]error{err}, attempts...)...), domain.FailureEntryPointArity, 0)
}

func (c *Coordinator) fail(r *run, err error, fallback domain.FailureKind, line int) domain.Outcome {
	kind := classify(err, fallback)
	f := describeFailure(err, kind, r.program, line)
	if kind == domain.FailureEntryPointArity {
		names := make([]string, len(shapes))
		for i, s := range shapes {
			names[i] = s.name
		}
		f.Message = fmt.Sprintf("no entry point of %s matched, tried %s", r.entry, strings.Join(names, ", "))
	}
	return domain.Outcome{Kind: domain.OutcomeFailure, Failure: f, Err: err}
}

func cancelled(err error) domain.Outcome {
	return domain.Outcome{Kind: domain.OutcomeCancelled, Err: err}
}

// invalidate drops an entry that failed to load so the next run recompiles.
func (c *Coordinator) invalidate(hash string) {
	c.logger.Warn("invalidating cache entry " + hash)
	c.discard(hash)
}

// discard removes partial output of a run.
func (c *Coordinator) discard(hash string) {
	if err := c.cache.Clear(hash); err != nil {
		c.logger.Error(err)
	}
}
