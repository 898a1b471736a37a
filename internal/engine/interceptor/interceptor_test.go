package interceptor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hotload/internal/adapters/telemetry"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports/mocks"
	"go.trai.ch/hotload/internal/engine/enginetest"
	"go.trai.ch/hotload/internal/engine/interceptor"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.uber.org/mock/gomock"
)

const hash = "h1"

type fixture struct {
	translator *enginetest.Translator
	runtime    *enginetest.Runtime
	cache      *mocks.MockImageCache
	logger     *mocks.MockLogger
	ic         *interceptor.Interceptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		translator: enginetest.NewTranslator(),
		runtime:    enginetest.NewRuntime(),
		cache:      mocks.NewMockImageCache(ctrl),
		logger:     mocks.NewMockLogger(ctrl),
	}
	f.ic = interceptor.New(f.translator, f.cache, f.logger, telemetry.NewNoOpTracer())
	return f
}

func (f *fixture) session(mode interceptor.Mode) (*interceptor.Session, *loader.Slot) {
	b := loader.NewBuilder(f.runtime, nil)
	slot := loader.NewSlot(b.Head())
	return interceptor.NewSession(hash, mode, b, slot), slot
}

func def(name string) []byte {
	return []byte("def " + name)
}

func TestDefineClass_Translate(t *testing.T) {
	f := newFixture(t)
	s, slot := f.session(interceptor.ModeTranslate)
	d := f.ic.Definer(s)
	ctx := context.Background()

	a, err := d.DefineClass(ctx, "A", def("A"))
	require.NoError(t, err)
	assert.Equal(t, "A", a.Name())
	assert.Equal(t, interceptor.StateTranslating, s.State())

	_, err = d.DefineClass(ctx, "B", def("B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, slot.Load().ClassNames())
	assert.Same(t, slot.Load(), d.Loader())

	t.Run("second definition is served from the chain", func(t *testing.T) {
		again, err := d.DefineClass(ctx, "A", def("A"))
		require.NoError(t, err)
		assert.Same(t, a, again)
		assert.Equal(t, 1, f.translator.Calls("A"))
		assert.Equal(t, 2, s.Translations())
	})

	t.Run("commit is rejected", func(t *testing.T) {
		err := f.ic.Commit(ctx, s, "A")
		require.ErrorIs(t, err, domain.ErrInvalidSessionState)
	})
}

func TestDefineClass_CaptureAndCommit(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(interceptor.ModeCapture)
	d := f.ic.Definer(s)
	ctx := context.Background()

	gomock.InOrder(
		f.cache.EXPECT().PutImage(hash, gomock.Any()).DoAndReturn(func(_ string, img domain.CompiledImage) error {
			assert.Equal(t, "Main", img.ClassName)
			assert.Equal(t, 0, img.Ordinal)
			return nil
		}),
		f.cache.EXPECT().PutImage(hash, gomock.Any()).DoAndReturn(func(_ string, img domain.CompiledImage) error {
			assert.Equal(t, "Main$helper", img.ClassName)
			assert.Equal(t, 1, img.Ordinal)
			return nil
		}),
		f.cache.EXPECT().PutMetadata(hash, gomock.Any()).DoAndReturn(func(_ string, meta domain.EntryMetadata) error {
			assert.Equal(t, "Main", meta.EntryClass)
			assert.Equal(t, []string{"Main$helper"}, meta.Dependencies.Requires("Main"))
			assert.Len(t, meta.Checksums, 2)
			return nil
		}),
		f.cache.EXPECT().Write(hash, []string{"Main", "Main$helper"}).Return(nil),
	)
	f.logger.EXPECT().Info(gomock.Any()).Times(1)

	_, err := d.DefineClass(ctx, "Main", def("Main"))
	require.NoError(t, err)
	_, err = d.DefineClass(ctx, "Main$helper", def("Main$helper"))
	require.NoError(t, err)

	require.NoError(t, f.ic.Commit(ctx, s, "Main"))
	assert.Equal(t, interceptor.StateDone, s.State())

	_, err = d.DefineClass(ctx, "Late", def("Late"))
	require.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestDefineClass_TranslationFailure(t *testing.T) {
	f := newFixture(t)
	f.translator.Fail("Bad", errors.New("d8 crashed"))
	s, slot := f.session(interceptor.ModeCapture)

	_, err := f.ic.DefineClass(context.Background(), s, domain.GeneratedClass{Name: "Bad", Bytecode: def("Bad")})
	require.ErrorIs(t, err, domain.ErrTranslationFailed)
	assert.Equal(t, 0, slot.Load().Len())
	assert.Empty(t, s.Produced())
}

func TestDefineClass_LinkFailure(t *testing.T) {
	f := newFixture(t)
	f.runtime.FailLinking("Bad")
	s, _ := f.session(interceptor.ModeTranslate)

	_, err := f.ic.DefineClass(context.Background(), s, domain.GeneratedClass{Name: "Bad", Bytecode: def("Bad")})
	require.ErrorIs(t, err, domain.ErrClassResolution)
}

func TestDefineClass_HostClassesAreNotTranslated(t *testing.T) {
	f := newFixture(t)
	host, err := enginetest.ParseDef("def android.app.Activity")
	require.NoError(t, err)

	b := loader.NewBuilder(f.runtime, enginetest.NewHostLoader(host))
	slot := loader.NewSlot(b.Head())
	s := interceptor.NewSession(hash, interceptor.ModeTranslate, b, slot)

	got, err := f.ic.DefineClass(context.Background(), s, domain.GeneratedClass{Name: "android.app.Activity"})
	require.NoError(t, err)
	assert.Same(t, host, got)
	assert.Zero(t, f.translator.Total())
	assert.Equal(t, interceptor.StateIdle, s.State())
}

func TestDefineClass_InitializerDefinesClass(t *testing.T) {
	f := newFixture(t)
	s, slot := f.session(interceptor.ModeTranslate)
	d := f.ic.Definer(s)
	ctx := context.Background()

	var innerErr error
	f.runtime.OnInitialize("Outer", func() {
		_, innerErr = d.DefineClass(ctx, "Inner", def("Inner"))
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.DefineClass(ctx, "Outer", def("Outer"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("DefineClass did not return")
	}
	require.NoError(t, innerErr)
	assert.Equal(t, []string{"Outer", "Inner"}, slot.Load().ClassNames())
	assert.Equal(t, 2, s.Translations())
}

func TestCollect(t *testing.T) {
	f := newFixture(t)
	s, slot := f.session(interceptor.ModeCollect)
	d := f.ic.Definer(s)
	ctx := context.Background()

	for _, name := range []string{"Main", "Util", "Main"} {
		c, err := d.DefineClass(ctx, name, def(name))
		require.NoError(t, err)
		assert.Nil(t, c)
	}
	assert.Equal(t, interceptor.StateCollecting, s.State())
	assert.Equal(t, []string{"Main", "Util"}, s.Collected())
	assert.Zero(t, f.translator.Total())

	err := f.ic.Commit(ctx, s, "Main")
	require.ErrorIs(t, err, domain.ErrInvalidSessionState)

	f.cache.EXPECT().PutImage(hash, gomock.Any()).Return(nil).Times(2)
	require.NoError(t, f.ic.TranslateCollected(ctx, s, 4))
	assert.Equal(t, []string{"Main", "Util"}, slot.Load().ClassNames())
	assert.Equal(t, 2, s.Translations())

	f.cache.EXPECT().PutMetadata(hash, gomock.Any()).Return(nil)
	f.cache.EXPECT().Write(hash, []string{"Main", "Util"}).Return(nil)
	f.logger.EXPECT().Info(gomock.Any())
	require.NoError(t, f.ic.Commit(ctx, s, "Main"))
}

func TestTranslateCollected_Failure(t *testing.T) {
	f := newFixture(t)
	f.translator.Fail("Util", errors.New("unsupported opcode"))
	s, slot := f.session(interceptor.ModeCollect)
	ctx := context.Background()

	for _, name := range []string{"Main", "Util"} {
		_, err := f.ic.DefineClass(ctx, s, domain.GeneratedClass{Name: name, Bytecode: def(name)})
		require.NoError(t, err)
	}

	err := f.ic.TranslateCollected(ctx, s, 2)
	require.ErrorIs(t, err, domain.ErrTranslationFailed)
	assert.Equal(t, 0, slot.Load().Len())
}

func TestTranslateCollected_InitializerResolvesSibling(t *testing.T) {
	f := newFixture(t)
	s, slot := f.session(interceptor.ModeCollect)
	d := f.ic.Definer(s)
	ctx := context.Background()

	for _, name := range []string{"Main", "Util"} {
		_, err := d.DefineClass(ctx, name, def(name))
		require.NoError(t, err)
	}

	var util any
	f.runtime.OnInitialize("Main", func() {
		util, _ = d.DefineClass(ctx, "Util", def("Util"))
	})

	f.cache.EXPECT().PutImage(hash, gomock.Any()).Return(nil).Times(2)
	done := make(chan error, 1)
	go func() { done <- f.ic.TranslateCollected(ctx, s, 2) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("TranslateCollected did not return")
	}
	require.NotNil(t, util)
	assert.Equal(t, []string{"Main", "Util"}, slot.Load().ClassNames())
	assert.Equal(t, 2, s.Translations())
}

func TestTranslateCollected_RequiresCollectMode(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(interceptor.ModeCapture)

	err := f.ic.TranslateCollected(context.Background(), s, 1)
	require.ErrorIs(t, err, domain.ErrInvalidSessionState)
}

func TestSession_Close(t *testing.T) {
	f := newFixture(t)
	s, _ := f.session(interceptor.ModeCapture)
	s.Close()

	_, err := f.ic.DefineClass(context.Background(), s, domain.GeneratedClass{Name: "A", Bytecode: def("A")})
	require.ErrorIs(t, err, domain.ErrSessionClosed)

	err = f.ic.Commit(context.Background(), s, "A")
	require.ErrorIs(t, err, domain.ErrSessionClosed)
}
