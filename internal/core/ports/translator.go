package ports

import (
	"context"

	"go.trai.ch/hotload/internal/core/domain"
)

// Translator turns one unit of portable bytecode into a native image.
//
//go:generate mockgen -source=translator.go -destination=mocks/mock_translator.go -package=mocks
type Translator interface {
	// Translate runs a single attempt of the external native compiler for class.
	// It never retries and never caches.
	Translate(ctx context.Context, class domain.GeneratedClass) ([]byte, error)
}
