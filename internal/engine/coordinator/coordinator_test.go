package coordinator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hotload/internal/adapters/cas"
	"go.trai.ch/hotload/internal/adapters/telemetry"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/hotload/internal/core/ports/mocks"
	"go.trai.ch/hotload/internal/engine/coordinator"
	"go.trai.ch/hotload/internal/engine/enginetest"
	"go.trai.ch/hotload/internal/engine/interceptor"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.uber.org/mock/gomock"
)

const program = "def Main$helper\ndef Main ret=hello\n"

type harness struct {
	t          *testing.T
	ctrl       *gomock.Controller
	store      *cas.Store
	frontend   *enginetest.Frontend
	translator *enginetest.Translator
	runtime    *enginetest.Runtime
	parent     ports.Loader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := quietLogger(ctrl)
	store, err := cas.NewStore(filepath.Join(t.TempDir(), "cache"), log)
	require.NoError(t, err)
	return &harness{
		t:          t,
		ctrl:       ctrl,
		store:      store,
		frontend:   &enginetest.Frontend{},
		translator: enginetest.NewTranslator(),
		runtime:    enginetest.NewRuntime(),
	}
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

// coordinator builds a coordinator with a fresh translator so translation
// counts are per coordinator.
func (h *harness) coordinator() *coordinator.Coordinator {
	h.translator = enginetest.NewTranslator()
	log := quietLogger(h.ctrl)
	tracer := telemetry.NewNoOpTracer()
	ic := interceptor.New(h.translator, h.store, log, tracer)
	return coordinator.New(h.frontend, h.runtime, h.store, ic, log, tracer, coordinator.Options{Parent: h.parent})
}

func (h *harness) entryDir(source string) string {
	return filepath.Join(h.store.Root(), domain.NewSourceProgram(source).Hash)
}

func successSurface(t *testing.T, ctrl *gomock.Controller, want any) *mocks.MockSurface {
	t.Helper()
	surface := mocks.NewMockSurface(ctrl)
	surface.EXPECT().ReportSuccess(want).Times(1)
	return surface
}

func failureSurface(ctrl *gomock.Controller, got *domain.Failure) *mocks.MockSurface {
	surface := mocks.NewMockSurface(ctrl)
	surface.EXPECT().ReportFailure(gomock.Any()).Do(func(f domain.Failure) { *got = f }).Times(1)
	return surface
}

func TestRun_FreshThenCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.coordinator()
	out := first.Run(ctx, coordinator.RunRequest{Source: program}, successSurface(t, h.ctrl, "hello"))
	require.Equal(t, domain.OutcomeSuccess, out.Kind)
	assert.False(t, out.FromCache)
	assert.Equal(t, 2, h.translator.Total())

	dir := h.entryDir(program)
	assert.FileExists(t, filepath.Join(dir, "Main", domain.ImageFileName))
	assert.FileExists(t, filepath.Join(dir, "Main$helper", domain.ImageFileName))
	manifest, err := os.ReadFile(filepath.Join(dir, domain.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "Main\nMain$helper\n", string(manifest))

	second := h.coordinator()
	out = second.Run(ctx, coordinator.RunRequest{Source: program}, successSurface(t, h.ctrl, "hello"))
	require.Equal(t, domain.OutcomeSuccess, out.Kind)
	assert.True(t, out.FromCache)
	assert.Zero(t, h.translator.Total(), "cached run must not translate")
}

func TestRun_CacheRoundTripExposesSameClasses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	freshSlot := loader.NewSlot(nil)
	h.coordinator().Run(ctx, coordinator.RunRequest{Source: program, Slot: freshSlot}, successSurface(t, h.ctrl, "hello"))

	cachedSlot := loader.NewSlot(nil)
	out := h.coordinator().Run(ctx, coordinator.RunRequest{Source: program, Slot: cachedSlot}, successSurface(t, h.ctrl, "hello"))
	require.True(t, out.FromCache)

	assert.ElementsMatch(t, freshSlot.Load().ClassNames(), cachedSlot.Load().ClassNames())
}

func TestRun_ArityFallback(t *testing.T) {
	tests := []struct {
		name         string
		def          string
		want         any
		wantAttempts []int
	}{
		{"zero args", "def Main ret=zero", "zero", []int{0}},
		{"context", "def Main arity=1 ret=one", "one", []int{0, 1}},
		{"context and surface", "def Main arity=2 ret=two", "two", []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			slot := loader.NewSlot(nil)
			req := coordinator.RunRequest{Source: tt.def, Env: "env", View: "view", Slot: slot}

			out := h.coordinator().Run(context.Background(), req, successSurface(t, h.ctrl, tt.want))
			require.Equal(t, domain.OutcomeSuccess, out.Kind)

			cls, err := slot.Load().Resolve("Main")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, cls.(*enginetest.Class).Attempts())
		})
	}
}

func TestRun_NoShapeMatches(t *testing.T) {
	h := newHarness(t)
	var got domain.Failure

	out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: "def Main arity=3"}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	require.ErrorIs(t, out.Err, domain.ErrEntryPointArity)
	assert.Equal(t, domain.FailureEntryPointArity, got.Kind)
	assert.Contains(t, got.Message, "(), (context), (context, surface)")
}

func TestRun_SelfHealsIncompleteEntry(t *testing.T) {
	h := newHarness(t)
	hash := domain.NewSourceProgram(program).Hash

	require.NoError(t, h.store.PutImage(hash, domain.CompiledImage{
		ClassName: "Main",
		Native:    []byte(enginetest.NativePrefix + "def Main ret=stale"),
	}))
	require.NoError(t, os.WriteFile(filepath.Join(h.entryDir(program), domain.ManifestFileName), []byte("Main\nMain$helper\n"), domain.FilePerm))

	out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: program}, successSurface(t, h.ctrl, "hello"))
	require.Equal(t, domain.OutcomeSuccess, out.Kind)
	assert.False(t, out.FromCache)
	assert.Equal(t, 2, h.translator.Total())
	assert.True(t, h.store.HasCompleteEntry(hash))
}

func TestRun_CancellationLeavesNoCache(t *testing.T) {
	h := newHarness(t)
	source := "def A\ndef B\ndef Main\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.frontend.AfterEval = func(line int) {
		if line == 1 {
			cancel()
		}
	}

	slot := loader.NewSlot(nil)
	surface := mocks.NewMockSurface(h.ctrl)
	c := h.coordinator()
	out := c.Run(ctx, coordinator.RunRequest{Source: source, Slot: slot}, surface)

	require.Equal(t, domain.OutcomeCancelled, out.Kind)
	require.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 1, h.translator.Total())
	assert.NoFileExists(t, filepath.Join(h.entryDir(source), domain.ManifestFileName))
	assert.Nil(t, slot.Load(), "slot must be restored")

	h.frontend.AfterEval = nil
	out = h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: source}, successSurface(t, h.ctrl, "Main"))
	require.Equal(t, domain.OutcomeSuccess, out.Kind)
	assert.Equal(t, 3, h.translator.Total())
}

func TestRun_EvaluationFailure(t *testing.T) {
	h := newHarness(t)
	source := "def Main\nthrow kaboom\n"
	var got domain.Failure

	out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: source}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	require.ErrorIs(t, out.Err, domain.ErrEvaluationFailed)

	assert.Equal(t, domain.Failure{
		Kind:       domain.FailureEvaluation,
		Message:    "kaboom",
		Line:       2,
		Column:     7,
		SourceLine: "throw kaboom",
	}, got)
	assert.NoDirExists(t, h.entryDir(source))
}

func TestRun_EntryPointThrows(t *testing.T) {
	h := newHarness(t)
	var got domain.Failure

	out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: "def Main throw=bad"}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	assert.Equal(t, domain.FailureEvaluation, got.Kind)
	assert.Equal(t, "bad", got.Message)
}

func TestRun_TranslationFailure(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()
	h.translator.Fail("Main", errors.New("d8: unsupported class version"))
	var got domain.Failure

	out := c.Run(context.Background(), coordinator.RunRequest{Source: program}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	require.ErrorIs(t, out.Err, domain.ErrTranslationFailed)
	assert.Equal(t, domain.FailureTranslation, got.Kind)
	assert.Equal(t, "d8: unsupported class version", got.Message)
	assert.Equal(t, 2, got.Line)
	assert.Equal(t, "def Main ret=hello", got.SourceLine)
	assert.NoDirExists(t, h.entryDir(program))
}

func TestRun_MissingEntryClass(t *testing.T) {
	h := newHarness(t)
	var got domain.Failure

	out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: "def Helper"}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	assert.Equal(t, domain.FailureClassResolution, got.Kind)
	assert.NoDirExists(t, h.entryDir("def Helper"))

	t.Run("next run recompiles", func(t *testing.T) {
		var again domain.Failure
		out := h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: "def Helper"}, failureSurface(h.ctrl, &again))
		require.Equal(t, domain.OutcomeFailure, out.Kind)
		assert.False(t, out.FromCache)
		assert.Equal(t, 1, h.translator.Calls("Helper"))
		assert.NoDirExists(t, h.entryDir("def Helper"))
	})
}

func TestRun_CachedClassResolutionInvalidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	hash := domain.NewSourceProgram(program).Hash

	h.coordinator().Run(ctx, coordinator.RunRequest{Source: program}, successSurface(t, h.ctrl, "hello"))
	require.True(t, h.store.HasCompleteEntry(hash))

	h.runtime.FailLinking("Main$helper")
	var got domain.Failure
	out := h.coordinator().Run(ctx, coordinator.RunRequest{Source: program}, failureSurface(h.ctrl, &got))
	require.Equal(t, domain.OutcomeFailure, out.Kind)
	assert.Equal(t, domain.FailureClassResolution, got.Kind)
	assert.NoDirExists(t, h.entryDir(program))
}

func TestRun_RestoresSlotOnFailure(t *testing.T) {
	h := newHarness(t)
	prior := loader.NewBuilder(h.runtime, nil).Head()
	slot := loader.NewSlot(prior)

	var got domain.Failure
	h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: "throw early", Slot: slot}, failureSurface(h.ctrl, &got))
	assert.Same(t, prior, slot.Load())

	h.coordinator().Run(context.Background(), coordinator.RunRequest{Source: program, Slot: slot}, successSurface(t, h.ctrl, "hello"))
	assert.True(t, slot.Load().Contains("Main"))
}

func TestRun_SameSourceIsSerialized(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()

	surface := mocks.NewMockSurface(h.ctrl)
	surface.EXPECT().ReportSuccess("hello").Times(8)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(context.Background(), coordinator.RunRequest{Source: program}, surface)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.translator.Calls("Main"))
	assert.Equal(t, 1, h.translator.Calls("Main$helper"))
}

func TestWarm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.coordinator()
	hash := domain.NewSourceProgram(program).Hash

	cached, err := c.Warm(ctx, program, "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, h.translator.Total())
	assert.True(t, h.store.HasCompleteEntry(hash))

	meta, err := h.store.Metadata(hash)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, []string{"Main$helper"}, meta.Dependencies.Requires("Main"))

	cached, err = c.Warm(ctx, program, "")
	require.NoError(t, err)
	assert.True(t, cached)

	out := h.coordinator().Run(ctx, coordinator.RunRequest{Source: program}, successSurface(t, h.ctrl, "hello"))
	assert.True(t, out.FromCache)
}

func TestWarm_DoesNotExecute(t *testing.T) {
	h := newHarness(t)
	source := "def Main\nthrow not-run\n"

	_, err := h.coordinator().Warm(context.Background(), source, "Main")
	require.NoError(t, err)
	assert.True(t, h.store.HasCompleteEntry(domain.NewSourceProgram(source).Hash))
}

func TestWarm_FailureLeavesNoEntry(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()
	h.translator.Fail("Main", errors.New("boom"))

	_, err := c.Warm(context.Background(), program, "")
	require.ErrorIs(t, err, domain.ErrTranslationFailed)
	assert.NoDirExists(t, h.entryDir(program))
}

func TestWarm_Concurrent(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Warm(context.Background(), program, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.translator.Calls("Main"))
}
