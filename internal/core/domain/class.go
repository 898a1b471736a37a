package domain

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// GeneratedClass is one unit of portable bytecode emitted by the upstream compiler.
type GeneratedClass struct {
	Name     string
	Bytecode []byte
}

// CompiledImage is the native translation of exactly one GeneratedClass.
// Ordinal is the position of the image in the order it was created within a run.
type CompiledImage struct {
	ClassName string
	Native    []byte
	Ordinal   int
}

// Checksum returns the xxhash64 digest of the native bytes.
func (i CompiledImage) Checksum() uint64 {
	return xxhash.Sum64(i.Native)
}

// DependencyRecord maps an entry point class name to the class names that must
// resolve before that entry point runs.
type DependencyRecord map[string][]string

// Add records that entry requires each of classes. Duplicates are dropped and
// the result is kept sorted.
func (r DependencyRecord) Add(entry string, classes ...string) {
	merged := append(slices.Clone(r[entry]), classes...)
	slices.Sort(merged)
	r[entry] = slices.Compact(merged)
}

// Requires returns the class names entry depends on.
func (r DependencyRecord) Requires(entry string) []string {
	return r[entry]
}
