package ports

import "go.trai.ch/hotload/internal/core/domain"

// ImageCache is the content-addressed store of native images keyed by source hash.
//
//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type ImageCache interface {
	// HasCompleteEntry reports whether a complete entry exists for hash.
	// An inconsistent entry is deleted and reported as absent.
	HasCompleteEntry(hash string) bool

	// Load returns every image of a complete entry.
	// It returns domain.ErrCacheMiss when there is none.
	Load(hash string) ([]domain.CompiledImage, error)

	// PutImage stores a single image under hash.
	PutImage(hash string, image domain.CompiledImage) error

	// PutMetadata stores the entry metadata under hash.
	PutMetadata(hash string, meta domain.EntryMetadata) error

	// Metadata returns the stored metadata for hash.
	// Returns nil, nil if not found.
	Metadata(hash string) (*domain.EntryMetadata, error)

	// Write commits the entry by writing its manifest. It must be called last.
	Write(hash string, classNames []string) error

	// Clear removes the entry for hash.
	Clear(hash string) error

	// ClearAll removes every entry.
	ClearAll() error

	// Stats summarizes the cache.
	Stats() (domain.CacheStats, error)

	// Entries lists every entry directory, complete or not.
	Entries() ([]domain.EntryInfo, error)
}
