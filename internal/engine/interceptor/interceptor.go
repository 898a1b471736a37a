package interceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Interceptor is the single choke point every generated class passes through.
// It is stateless; per-run state lives in a Session.
type Interceptor struct {
	translator ports.Translator
	cache      ports.ImageCache
	logger     ports.Logger
	tracer     ports.Tracer
}

// New creates an Interceptor.
func New(translator ports.Translator, cache ports.ImageCache, logger ports.Logger, tracer ports.Tracer) *Interceptor {
	return &Interceptor{
		translator: translator,
		cache:      cache,
		logger:     logger,
		tracer:     tracer,
	}
}

// Definer binds s to a ports.ClassDefiner handed to the frontend.
func (i *Interceptor) Definer(s *Session) ports.ClassDefiner {
	return &definer{interceptor: i, session: s}
}

type definer struct {
	interceptor *Interceptor
	session     *Session
}

func (d *definer) DefineClass(ctx context.Context, name string, bytecode []byte) (ports.Class, error) {
	return d.interceptor.DefineClass(ctx, d.session, domain.GeneratedClass{Name: name, Bytecode: bytecode})
}

func (d *definer) Loader() ports.Loader {
	return d.session.Chain()
}

// DefineClass handles one class definition event of the session's run.
// A class that already resolves is returned as is. In collection mode the
// bytecode is recorded and a nil class returned. Otherwise the class is
// translated, linked into a new chain that becomes active, optionally written
// to the cache, and resolved from the new chain.
//
// The session lock is not held while resolving, so class initialization may
// define further classes through the same session.
func (i *Interceptor) DefineClass(ctx context.Context, s *Session, class domain.GeneratedClass) (ports.Class, error) {
	if err := s.checkOpen(class.Name); err != nil {
		return nil, err
	}
	if existing, err := s.slot.Load().Resolve(class.Name); err == nil {
		return existing, nil
	}

	ctx, span := i.tracer.Start(ctx, "define_class", ports.WithAttribute("class", class.Name))
	defer span.End()

	chain, err := i.link(ctx, s, class)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if chain == nil {
		return nil, nil
	}

	resolved, err := chain.Resolve(class.Name)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "defined class does not resolve"), "class", class.Name))
	}
	return resolved, nil
}

// link records or translates class under the session lock and returns the
// chain holding it. It returns a nil chain in collection mode.
func (i *Interceptor) link(ctx context.Context, s *Session, class domain.GeneratedClass) (*loader.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return nil, zerr.With(zerr.Wrap(domain.ErrSessionClosed, "define rejected"), "class", class.Name)
	}

	if s.mode == ModeCollect {
		if err := s.transition(StateCollecting); err != nil {
			return nil, err
		}
		if _, ok := s.seen[class.Name]; !ok {
			s.seen[class.Name] = struct{}{}
			s.collected = append(s.collected, class)
		}
		return nil, nil
	}

	// A concurrent definition of the same class may have won the race.
	if current := s.slot.Load(); current.Contains(class.Name) {
		return current, nil
	}

	if err := s.transition(StateTranslating); err != nil {
		return nil, err
	}

	native, err := i.translator.Translate(ctx, class)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to define class"), "class", class.Name)
	}
	s.translations++

	chain, err := s.builder.Extend(s.slot.Load(), domain.CompiledImage{ClassName: class.Name, Native: native})
	if err != nil {
		return nil, errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "failed to load image"), "class", class.Name))
	}
	s.slot.Set(chain)

	images := chain.Images()
	image := images[len(images)-1]
	s.produced = append(s.produced, image)

	if s.mode == ModeCapture {
		if err := i.cache.PutImage(s.hash, image); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to capture image"), "class", class.Name)
		}
	}
	return chain, nil
}

// TranslateCollected translates every class recorded in collection mode with
// at most parallelism concurrent translator calls, writes the images to the
// cache, links them in one shot and checks that each resolves.
func (i *Interceptor) TranslateCollected(ctx context.Context, s *Session, parallelism int) error {
	ctx, span := i.tracer.Start(ctx, "translate_collected")
	defer span.End()

	chain, err := i.linkCollected(ctx, s, parallelism, span)
	if err != nil {
		span.RecordError(err)
		return err
	}
	for _, name := range chain.ClassNames() {
		if _, err := chain.Resolve(name); err != nil {
			span.RecordError(err)
			return errors.Join(domain.ErrClassResolution, zerr.With(zerr.Wrap(err, "collected class does not resolve"), "class", name))
		}
	}
	return nil
}

func (i *Interceptor) linkCollected(ctx context.Context, s *Session, parallelism int, span ports.Span) (*loader.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeCollect {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSessionState, "session is not collecting"), "mode", s.mode.String())
	}
	if err := s.transition(StateTranslating); err != nil {
		return nil, err
	}
	if parallelism < 1 {
		parallelism = 1
	}

	span.SetAttribute("classes", len(s.collected))

	natives := make([][]byte, len(s.collected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for idx, class := range s.collected {
		g.Go(func() error {
			native, err := i.translator.Translate(gctx, class)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to translate collected class"), "class", class.Name)
			}
			natives[idx] = native
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.translations += len(s.collected)

	images := make([]domain.CompiledImage, len(s.collected))
	for idx, class := range s.collected {
		images[idx] = domain.CompiledImage{ClassName: class.Name, Native: natives[idx], Ordinal: idx}
		if err := i.cache.PutImage(s.hash, images[idx]); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to capture image"), "class", class.Name)
		}
	}

	chain, err := s.builder.Seed(images)
	if err != nil {
		return nil, errors.Join(domain.ErrClassResolution, zerr.Wrap(err, "failed to load collected images"))
	}
	s.slot.Set(chain)
	s.produced = append(s.produced, chain.Images()...)
	return chain, nil
}

// Commit persists the session's images as a cache entry: metadata first, the
// manifest last. The session is done afterwards whatever the outcome.
func (i *Interceptor) Commit(ctx context.Context, s *Session, entryClass string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeTranslate {
		return zerr.With(zerr.Wrap(domain.ErrInvalidSessionState, "session does not capture"), "mode", s.mode.String())
	}
	if s.mode == ModeCollect && s.state == StateCollecting {
		return zerr.Wrap(domain.ErrInvalidSessionState, "collected classes were not translated")
	}
	if err := s.transition(StatePersisting); err != nil {
		return err
	}
	defer func() {
		s.state = StateDone
	}()

	_, span := i.tracer.Start(ctx, "commit", ports.WithAttribute("hash", s.hash))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	names := make([]string, len(s.produced))
	for idx, img := range s.produced {
		names[idx] = img.ClassName
	}

	deps := domain.DependencyRecord{}
	for _, name := range names {
		if name != entryClass {
			deps.Add(entryClass, name)
		}
	}

	meta := domain.NewEntryMetadata(s.hash, entryClass, deps, s.produced, time.Now())
	if err := i.cache.PutMetadata(s.hash, meta); err != nil {
		return zerr.Wrap(err, "failed to write entry metadata")
	}
	if err := i.cache.Write(s.hash, names); err != nil {
		return zerr.Wrap(err, "failed to commit cache entry")
	}

	span.SetAttribute("classes", len(names))
	i.logger.Info(fmt.Sprintf("cached %d classes for %s", len(names), shortHash(s.hash)))
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
