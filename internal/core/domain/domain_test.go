package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestSourceProgram(t *testing.T) {
	p := domain.NewSourceProgram("first\r\nsecond\nthird")
	assert.Len(t, p.Hash, 64)
	assert.Equal(t, p.Hash, domain.NewSourceProgram("first\r\nsecond\nthird").Hash)
	assert.NotEqual(t, p.Hash, domain.NewSourceProgram("first\nsecond\nthird").Hash)

	assert.Equal(t, "first", p.Line(1))
	assert.Equal(t, "second", p.Line(2))
	assert.Equal(t, "third", p.Line(3))
	assert.Empty(t, p.Line(0))
	assert.Empty(t, p.Line(4))
}

func TestDependencyRecord(t *testing.T) {
	deps := domain.DependencyRecord{}
	deps.Add("Main", "Main$b", "Main$a")
	deps.Add("Main", "Main$a", "Main$c")

	assert.Equal(t, []string{"Main$a", "Main$b", "Main$c"}, deps.Requires("Main"))
	assert.Empty(t, deps.Requires("Other"))
}

func TestNewEntryMetadata(t *testing.T) {
	now := time.Unix(1700000000, 42)
	images := []domain.CompiledImage{
		{ClassName: "Main", Native: []byte("a")},
		{ClassName: "Main$helper", Native: []byte("b"), Ordinal: 1},
	}
	deps := domain.DependencyRecord{}
	deps.Add("Main", "Main$helper")

	meta := domain.NewEntryMetadata("hash", "Main", deps, images, now)
	assert.Equal(t, "hash", meta.SourceHash)
	assert.Equal(t, "Main", meta.EntryClass)
	assert.True(t, now.Equal(meta.Created()))
	assert.Equal(t, images[0].Checksum(), meta.Checksums["Main"])
	assert.Equal(t, images[1].Checksum(), meta.Checksums["Main$helper"])
	assert.NotEqual(t, meta.Checksums["Main"], meta.Checksums["Main$helper"])
}

func TestLocatedError(t *testing.T) {
	cause := errors.New("unexpected token")
	err := zerr.Wrap(&domain.LocatedError{Line: 4, Column: 9, Err: cause}, "read failed")

	var located domain.Located
	require.ErrorAs(t, err, &located)
	line, col := located.Location()
	assert.Equal(t, 4, line)
	assert.Equal(t, 9, col)
	require.ErrorIs(t, err, cause)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "cancelled", domain.OutcomeCancelled.String())
	assert.Equal(t, "entry-point-arity", domain.FailureEntryPointArity.String())
	assert.Equal(t, "internal", domain.FailureInternal.String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := domain.DefaultConfig()
	assert.Equal(t, domain.DefaultEntryClass, cfg.EntryClass)
	assert.Contains(t, cfg.Translator.Command, domain.InPlaceholder)
	assert.Contains(t, cfg.Translator.Command, domain.OutPlaceholder)
	assert.Equal(t, domain.DefaultTranslatorTimeout, cfg.Translator.Timeout)
}
