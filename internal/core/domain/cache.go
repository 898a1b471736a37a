package domain

import "time"

// EntryMetadata is persisted next to the manifest of a cache entry.
type EntryMetadata struct {
	SourceHash   string            `cbor:"1,keyasint"`
	CreatedAt    int64             `cbor:"2,keyasint"` // UnixNano
	EntryClass   string            `cbor:"3,keyasint,omitempty"`
	Dependencies DependencyRecord  `cbor:"4,keyasint,omitempty"`
	Checksums    map[string]uint64 `cbor:"5,keyasint,omitempty"`
}

// Created returns CreatedAt as a time.
func (m EntryMetadata) Created() time.Time {
	return time.Unix(0, m.CreatedAt)
}

// EntryInfo describes one cache entry for diagnostics.
type EntryInfo struct {
	Hash      string
	Classes   int
	Bytes     int64
	Complete  bool
	CreatedAt time.Time
}

// CacheStats summarizes the whole cache.
type CacheStats struct {
	Entries int
	Classes int
	Bytes   int64
}

// NewEntryMetadata builds the metadata of an entry holding images.
func NewEntryMetadata(hash, entryClass string, deps DependencyRecord, images []CompiledImage, now time.Time) EntryMetadata {
	sums := make(map[string]uint64, len(images))
	for _, img := range images {
		sums[img.ClassName] = img.Checksum()
	}
	return EntryMetadata{
		SourceHash:   hash,
		CreatedAt:    now.UnixNano(),
		EntryClass:   entryClass,
		Dependencies: deps,
		Checksums:    sums,
	}
}
