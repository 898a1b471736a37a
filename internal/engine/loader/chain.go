package loader

import (
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
)

// Chain is an immutable view of the first n images of an arena, linked against
// the host parent loader. Adding an image produces a new Chain.
type Chain struct {
	parent ports.Loader
	arena  *Arena
	n      int
	linked ports.Loader
}

// Resolve implements ports.Loader.
func (c *Chain) Resolve(name string) (ports.Class, error) {
	return c.linked.Resolve(name)
}

// Len returns the number of images visible through the chain.
func (c *Chain) Len() int {
	return c.n
}

// Parent returns the host loader the chain delegates to.
func (c *Chain) Parent() ports.Loader {
	return c.parent
}

// Images returns the images visible through the chain in ordinal order.
func (c *Chain) Images() []domain.CompiledImage {
	if c.arena == nil {
		return nil
	}
	return c.arena.Prefix(c.n)
}

// ClassNames returns the class names visible through the chain in ordinal order.
func (c *Chain) ClassNames() []string {
	images := c.Images()
	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.ClassName
	}
	return names
}

// Contains reports whether className has an image in this chain.
func (c *Chain) Contains(className string) bool {
	if c.arena == nil {
		return false
	}
	img, ok := c.arena.Lookup(className)
	return ok && img.Ordinal < c.n
}
