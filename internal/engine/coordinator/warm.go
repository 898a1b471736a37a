package coordinator

import (
	"context"
	"errors"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/engine/interceptor"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.trai.ch/zerr"
)

// Warm fills the cache for source without executing it. Forms are compiled in
// collection mode and the collected classes are translated in parallel.
// Concurrent warms of the same source share one execution and the context of
// the first caller.
func (c *Coordinator) Warm(ctx context.Context, source, entryClass string) (cached bool, err error) {
	program := domain.NewSourceProgram(source)
	if entryClass == "" {
		entryClass = c.opts.EntryClass
	}

	v, err, _ := c.warm.Do(program.Hash, func() (any, error) {
		return c.warmOnce(ctx, program, entryClass)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// warmOnce reports true when the entry already existed.
func (c *Coordinator) warmOnce(ctx context.Context, program domain.SourceProgram, entryClass string) (_ bool, err error) {
	hash := program.Hash

	ctx, span := c.tracer.Start(ctx, "warm")
	span.SetAttribute("hash", hash)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	unlock, err := c.locks.Lock(ctx, hash)
	if err != nil {
		return false, err
	}
	defer unlock()

	if c.cache.HasCompleteEntry(hash) {
		return true, nil
	}

	builder := loader.NewBuilder(c.linker, c.opts.Parent)
	slot := loader.NewSlot(builder.Head())
	session := interceptor.NewSession(hash, interceptor.ModeCollect, builder, slot)
	definer := c.interceptor.Definer(session)

	defer func() {
		if err != nil {
			session.Close()
			c.discard(hash)
		}
	}()

	for form, err := range c.frontend.Forms(program) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if err != nil {
			return false, errors.Join(domain.ErrEvaluationFailed, zerr.Wrap(err, "failed to read form"))
		}
		if err := form.Compile(ctx, definer); err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to compile form"), "line", form.Line())
		}
	}

	if err := c.interceptor.TranslateCollected(ctx, session, c.opts.Parallelism); err != nil {
		return false, err
	}
	if err := c.interceptor.Commit(ctx, session, entryClass); err != nil {
		return false, err
	}
	return false, nil
}
