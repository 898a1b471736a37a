package ports

import (
	"context"

	"go.trai.ch/hotload/internal/core/domain"
)

// Class is a resolved class handle of the host runtime.
type Class interface {
	// Name returns the fully-qualified class name.
	Name() string
	// Invoke calls the class entry point with args. It returns an error
	// wrapping domain.ErrArityMismatch when the entry point takes a different shape.
	Invoke(ctx context.Context, args ...any) (any, error)
}

// Loader resolves class names.
type Loader interface {
	// Resolve returns the class registered under name or an error wrapping
	// domain.ErrClassNotFound.
	Resolve(name string) (Class, error)
}

// Linker is the runtime's multi-image loader constructor.
// The returned loader is immutable and sees exactly images plus parent.
type Linker interface {
	Link(parent Loader, images []domain.CompiledImage) (Loader, error)
}
