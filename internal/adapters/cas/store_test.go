package cas_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hotload/internal/adapters/cas"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const hash = "h1"

func newStore(t *testing.T) (*cas.Store, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	store, err := cas.NewStore(filepath.Join(t.TempDir(), "cache"), log)
	require.NoError(t, err)
	return store, log
}

func put(t *testing.T, store *cas.Store, names ...string) []domain.CompiledImage {
	t.Helper()
	images := make([]domain.CompiledImage, 0, len(names))
	for i, name := range names {
		img := domain.CompiledImage{ClassName: name, Native: []byte("dex " + name), Ordinal: i}
		require.NoError(t, store.PutImage(hash, img))
		images = append(images, img)
	}
	return images
}

func TestStore_WriteAndLoad(t *testing.T) {
	store, _ := newStore(t)
	put(t, store, "Main", "Main$helper")

	assert.False(t, fileExists(filepath.Join(store.Root(), hash, domain.ManifestFileName)))
	require.NoError(t, store.Write(hash, []string{"Main$helper", "Main"}))

	assert.FileExists(t, filepath.Join(store.Root(), hash, "Main", domain.ImageFileName))
	assert.FileExists(t, filepath.Join(store.Root(), hash, "Main$helper", domain.ImageFileName))

	manifest, err := os.ReadFile(filepath.Join(store.Root(), hash, domain.ManifestFileName))
	require.NoError(t, err)
	goldie.New(t).Assert(t, "manifest", manifest)

	assert.True(t, store.HasCompleteEntry(hash))

	images, err := store.Load(hash)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "Main", images[0].ClassName)
	assert.Equal(t, []byte("dex Main"), images[0].Native)
	assert.Equal(t, "Main$helper", images[1].ClassName)
	assert.Equal(t, 1, images[1].Ordinal)
}

func TestStore_EscapesClassNames(t *testing.T) {
	store, _ := newStore(t)
	put(t, store, "app/Main", "app/Main$1")
	require.NoError(t, store.Write(hash, []string{"app/Main", "app/Main$1"}))

	assert.DirExists(t, filepath.Join(store.Root(), hash, "app%2FMain"))
	assert.True(t, store.HasCompleteEntry(hash))

	images, err := store.Load(hash)
	require.NoError(t, err)
	assert.Equal(t, "app/Main", images[0].ClassName)
	assert.Equal(t, "app/Main$1", images[1].ClassName)
}

func TestStore_RejectsInvalidNames(t *testing.T) {
	store, _ := newStore(t)

	for _, name := range []string{domain.ManifestFileName, "", "..", "Main\nEvil", "Main\r"} {
		err := store.PutImage(hash, domain.CompiledImage{ClassName: name, Native: []byte("x")})
		require.ErrorIs(t, err, domain.ErrInvalidClassName, "class %q", name)
	}
	assert.False(t, store.HasCompleteEntry(hash))

	err := store.PutImage("../escape", domain.CompiledImage{ClassName: "Main"})
	require.ErrorIs(t, err, domain.ErrInvalidSourceHash)
	assert.False(t, store.HasCompleteEntry("../escape"))
}

func TestStore_MissingEntry(t *testing.T) {
	store, _ := newStore(t)

	assert.False(t, store.HasCompleteEntry(hash))
	_, err := store.Load(hash)
	require.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestStore_SelfHeal(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, store *cas.Store)
	}{
		{
			name: "manifest lists a class without an image",
			prepare: func(t *testing.T, store *cas.Store) {
				put(t, store, "A")
				writeFile(t, filepath.Join(store.Root(), hash, domain.ManifestFileName), "A\nB\n")
			},
		},
		{
			name: "undeclared class directory",
			prepare: func(t *testing.T, store *cas.Store) {
				put(t, store, "A", "B")
				writeFile(t, filepath.Join(store.Root(), hash, domain.ManifestFileName), "A\n")
			},
		},
		{
			name: "images without manifest",
			prepare: func(t *testing.T, store *cas.Store) {
				put(t, store, "A")
			},
		},
		{
			name: "class directory with two files",
			prepare: func(t *testing.T, store *cas.Store) {
				put(t, store, "A")
				require.NoError(t, store.Write(hash, []string{"A"}))
				writeFile(t, filepath.Join(store.Root(), hash, "A", "image2"), "x")
			},
		},
		{
			name: "unknown top level file",
			prepare: func(t *testing.T, store *cas.Store) {
				put(t, store, "A")
				require.NoError(t, store.Write(hash, []string{"A"}))
				writeFile(t, filepath.Join(store.Root(), hash, "stray"), "x")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, log := newStore(t)
			tt.prepare(t, store)
			log.EXPECT().Warn(gomock.Any()).Times(1)

			assert.False(t, store.HasCompleteEntry(hash))
			assert.NoDirExists(t, filepath.Join(store.Root(), hash))
		})
	}
}

func TestStore_WriteRejectsMismatch(t *testing.T) {
	store, _ := newStore(t)
	put(t, store, "A")

	err := store.Write(hash, []string{"A", "B"})
	require.ErrorIs(t, err, domain.ErrIncompleteEntry)
	assert.False(t, fileExists(filepath.Join(store.Root(), hash, domain.ManifestFileName)))

	put(t, store, "C")
	err = store.Write(hash, []string{"A"})
	require.ErrorIs(t, err, domain.ErrIncompleteEntry)
}

func TestStore_ChecksumMismatch(t *testing.T) {
	store, log := newStore(t)
	images := put(t, store, "Main")
	require.NoError(t, store.PutMetadata(hash, domain.NewEntryMetadata(hash, "Main", nil, images, time.Now())))
	require.NoError(t, store.Write(hash, []string{"Main"}))

	_, err := store.Load(hash)
	require.NoError(t, err)

	writeFile(t, filepath.Join(store.Root(), hash, "Main", domain.ImageFileName), "tampered")
	log.EXPECT().Warn(gomock.Any()).Times(1)

	_, err = store.Load(hash)
	require.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.NoDirExists(t, filepath.Join(store.Root(), hash))
}

func TestStore_Metadata(t *testing.T) {
	store, _ := newStore(t)

	meta, err := store.Metadata(hash)
	require.NoError(t, err)
	assert.Nil(t, meta)

	images := put(t, store, "Main", "Helper")
	deps := domain.DependencyRecord{}
	deps.Add("Main", "Helper")
	require.NoError(t, store.PutMetadata(hash, domain.NewEntryMetadata(hash, "Main", deps, images, time.Now())))

	meta, err = store.Metadata(hash)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, hash, meta.SourceHash)
	assert.Equal(t, "Main", meta.EntryClass)
	assert.Equal(t, []string{"Helper"}, meta.Dependencies.Requires("Main"))
	assert.Equal(t, images[0].Checksum(), meta.Checksums["Main"])
	assert.False(t, meta.Created().IsZero())
}

func TestStore_StatsAndClear(t *testing.T) {
	store, _ := newStore(t)
	put(t, store, "A", "B")
	require.NoError(t, store.Write(hash, []string{"A", "B"}))

	other := domain.CompiledImage{ClassName: "C", Native: []byte("dex C")}
	require.NoError(t, store.PutImage("h2", other))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, hash, entries[0].Hash)
	assert.True(t, entries[0].Complete)
	assert.Equal(t, 2, entries[0].Classes)
	assert.False(t, entries[1].Complete)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, domain.CacheStats{Entries: 2, Classes: 3, Bytes: int64(len("dex A") + len("dex B") + len("dex C"))}, stats)

	require.NoError(t, store.Clear(hash))
	assert.NoDirExists(t, filepath.Join(store.Root(), hash))

	require.NoError(t, store.ClearAll())
	assert.DirExists(t, store.Root())
	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
