// Package loader builds immutable views over the native images produced in a run.
package loader

import (
	"sync"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/zerr"
)

// Arena is the append-only store of images for one run. Ordinals are assigned
// on append and never change.
type Arena struct {
	mu     sync.RWMutex
	images []domain.CompiledImage
	index  map[string]int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{index: make(map[string]int)}
}

// Append stores image and returns it with its ordinal set.
func (a *Arena) Append(image domain.CompiledImage) (domain.CompiledImage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.index[image.ClassName]; ok {
		return domain.CompiledImage{}, zerr.With(zerr.Wrap(domain.ErrDuplicateImage, "append rejected"), "class", image.ClassName)
	}
	image.Ordinal = len(a.images)
	a.index[image.ClassName] = image.Ordinal
	a.images = append(a.images, image)
	return image, nil
}

// Len returns the number of images appended so far.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.images)
}

// Prefix returns the first n images. The returned slice shares storage with
// the arena and must not be modified.
func (a *Arena) Prefix(n int) []domain.CompiledImage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if n > len(a.images) {
		n = len(a.images)
	}
	return a.images[:n:n]
}

// Lookup returns the image stored for className.
func (a *Arena) Lookup(className string) (domain.CompiledImage, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.index[className]
	if !ok {
		return domain.CompiledImage{}, false
	}
	return a.images[i], true
}
