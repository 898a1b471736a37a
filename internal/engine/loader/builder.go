package loader

import (
	"sync"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder grows a chain one image at a time for a single run.
type Builder struct {
	linker ports.Linker
	parent ports.Loader
	arena  *Arena

	mu   sync.Mutex
	head *Chain
}

// NewBuilder creates a builder whose initial head resolves only through parent.
func NewBuilder(linker ports.Linker, parent ports.Loader) *Builder {
	arena := NewArena()
	return &Builder{
		linker: linker,
		parent: parent,
		arena:  arena,
		head:   &Chain{parent: parent, arena: arena, linked: parentOrEmpty(parent)},
	}
}

// Head returns the newest chain.
func (b *Builder) Head() *Chain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// Extend appends image to the arena and links a new chain holding every image
// so far. current must be the newest chain.
func (b *Builder) Extend(current *Chain, image domain.CompiledImage) (*Chain, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current != b.head {
		return nil, zerr.With(zerr.Wrap(domain.ErrStaleChain, "extend rejected"), "class", image.ClassName)
	}

	if _, ok := b.arena.Lookup(image.ClassName); ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrDuplicateImage, "extend rejected"), "class", image.ClassName)
	}

	// Link before appending so a rejected image never enters the arena.
	n := b.arena.Len()
	image.Ordinal = n
	linked, err := b.linker.Link(b.parent, append(b.arena.Prefix(n), image))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to link images"), "class", image.ClassName)
	}
	if _, err := b.arena.Append(image); err != nil {
		return nil, err
	}
	n++

	b.head = &Chain{parent: b.parent, arena: b.arena, n: n, linked: linked}
	return b.head, nil
}

// Seed links every image in one shot. It is used when a run is served from the
// cache and must be called on a fresh builder.
func (b *Builder) Seed(images []domain.CompiledImage) (*Chain, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.arena.Len() != 0 {
		return nil, zerr.Wrap(domain.ErrStaleChain, "seed requires an empty builder")
	}
	for _, img := range images {
		if _, err := b.arena.Append(img); err != nil {
			return nil, err
		}
	}

	n := b.arena.Len()
	linked, err := b.linker.Link(b.parent, b.arena.Prefix(n))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to link images"), "images", n)
	}

	b.head = &Chain{parent: b.parent, arena: b.arena, n: n, linked: linked}
	return b.head, nil
}

type emptyLoader struct{}

func (emptyLoader) Resolve(name string) (ports.Class, error) {
	return nil, zerr.With(zerr.Wrap(domain.ErrClassNotFound, "no parent loader"), "class", name)
}

func parentOrEmpty(parent ports.Loader) ports.Loader {
	if parent == nil {
		return emptyLoader{}
	}
	return parent
}
