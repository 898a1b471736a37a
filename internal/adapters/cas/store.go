// Package cas implements the content-addressed native image cache.
package cas

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ImageCache = (*Store)(nil)

// Store implements ports.ImageCache on the filesystem:
//
//	<root>/<hash>/<escaped class name>/image
//	<root>/<hash>/entry.meta
//	<root>/<hash>/classes.manifest
//
// The manifest is written last and is the only commit record. Concurrent
// access to the same hash must be serialized by the caller.
type Store struct {
	root string
	log  ports.Logger
}

// NewStore creates a store rooted at root.
func NewStore(root string, log ports.Logger) (*Store, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", root)
	}
	return &Store{root: root, log: log}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// HasCompleteEntry reports whether hash has a complete entry. An entry that
// exists but is inconsistent is deleted.
func (s *Store) HasCompleteEntry(hash string) bool {
	_, err := s.check(hash)
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrCacheIntegrity) {
		s.heal(hash, err)
	}
	return false
}

// Load returns the images of a complete entry in manifest order.
func (s *Store) Load(hash string) ([]domain.CompiledImage, error) {
	names, err := s.check(hash)
	if err != nil {
		if errors.Is(err, domain.ErrCacheIntegrity) {
			s.heal(hash, err)
		}
		return nil, miss(hash)
	}

	meta, err := s.Metadata(hash)
	if err != nil {
		s.heal(hash, errors.Join(domain.ErrCacheIntegrity, err))
		return nil, miss(hash)
	}

	images := make([]domain.CompiledImage, 0, len(names))
	for i, name := range names {
		path := filepath.Join(s.entryDir(hash), url.PathEscape(name), domain.ImageFileName)
		//nolint:gosec // Path is built from a validated hash and an escaped class name
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
		}
		if meta != nil {
			if want, ok := meta.Checksums[name]; ok && want != xxhash.Sum64(data) {
				err := zerr.With(zerr.Wrap(domain.ErrCacheIntegrity, "image checksum mismatch"), "class", name)
				s.heal(hash, err)
				return nil, miss(hash)
			}
		}
		images = append(images, domain.CompiledImage{ClassName: name, Native: data, Ordinal: i})
	}
	return images, nil
}

// PutImage writes the image of one class. Images are written as they are
// produced and become visible only once Write commits the manifest.
func (s *Store) PutImage(hash string, image domain.CompiledImage) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	if err := validateClassName(image.ClassName); err != nil {
		return err
	}

	dir := filepath.Join(s.entryDir(hash), url.PathEscape(image.ClassName))
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", dir)
	}

	path := filepath.Join(dir, domain.ImageFileName)
	//nolint:gosec // Path is built from a validated hash and an escaped class name
	if err := os.WriteFile(path, image.Native, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}

// PutMetadata writes the CBOR encoded metadata of an entry.
func (s *Store) PutMetadata(hash string, meta domain.EntryMetadata) error {
	if err := validateHash(hash); err != nil {
		return err
	}

	data, err := cbor.Marshal(meta)
	if err != nil {
		return errors.Join(domain.ErrMetadataMarshalFailed, err)
	}

	dir := s.entryDir(hash)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", dir)
	}
	return writeAtomic(dir, domain.MetadataFileName, data)
}

// Metadata reads the metadata of an entry. It returns nil, nil when the entry
// has none.
func (s *Store) Metadata(hash string) (*domain.EntryMetadata, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}

	path := filepath.Join(s.entryDir(hash), domain.MetadataFileName)
	//nolint:gosec // Path is built from a validated hash
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	var meta domain.EntryMetadata
	if err := cbor.Unmarshal(data, &meta); err != nil {
		return nil, errors.Join(domain.ErrMetadataUnmarshalFailed, zerr.With(err, "path", path))
	}
	return &meta, nil
}

// Write commits an entry. Every class in classNames must already have exactly
// one image on disk and no other class may be present.
func (s *Store) Write(hash string, classNames []string) error {
	if err := validateHash(hash); err != nil {
		return err
	}

	scan, err := s.scan(s.entryDir(hash))
	if err != nil {
		return errors.Join(domain.ErrIncompleteEntry, zerr.With(err, "hash", hash))
	}

	want := sortedUnique(classNames)
	if missing, extra := diff(want, scan.classNames()); len(missing) > 0 || len(extra) > 0 {
		err := zerr.With(zerr.Wrap(domain.ErrIncompleteEntry, "class set mismatch"), "hash", hash)
		err = zerr.With(err, "missing", missing)
		return zerr.With(err, "extra", extra)
	}

	return writeAtomic(s.entryDir(hash), domain.ManifestFileName, encodeManifest(want))
}

// Clear removes the entry for hash.
func (s *Store) Clear(hash string) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	if err := os.RemoveAll(s.entryDir(hash)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreRemoveFailed.Error()), "hash", hash)
	}
	return nil
}

// ClearAll removes every entry and keeps the root.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", s.root)
	}
	for _, e := range entries {
		path := filepath.Join(s.root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreRemoveFailed.Error()), "path", path)
		}
	}
	return nil
}

// Entries lists every entry directory without repairing anything.
func (s *Store) Entries() ([]domain.EntryInfo, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", s.root)
	}

	infos := make([]domain.EntryInfo, 0, len(dirs))
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		hash := d.Name()
		info := domain.EntryInfo{Hash: hash}

		if scan, err := s.scan(s.entryDir(hash)); err == nil {
			info.Classes = len(scan.classes)
			info.Bytes = scan.bytes
		}
		_, checkErr := s.check(hash)
		info.Complete = checkErr == nil

		if meta, err := s.Metadata(hash); err == nil && meta != nil {
			info.CreatedAt = meta.Created()
		} else if fi, err := d.Info(); err == nil {
			info.CreatedAt = fi.ModTime()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Stats summarizes every entry in the cache.
func (s *Store) Stats() (domain.CacheStats, error) {
	infos, err := s.Entries()
	if err != nil {
		return domain.CacheStats{}, err
	}
	var stats domain.CacheStats
	for _, info := range infos {
		stats.Entries++
		stats.Classes += info.Classes
		stats.Bytes += info.Bytes
	}
	return stats, nil
}

func (s *Store) entryDir(hash string) string {
	return filepath.Join(s.root, hash)
}

// check validates an entry and returns its class names in manifest order.
// A missing entry yields ErrCacheMiss; anything else wrong yields ErrCacheIntegrity.
func (s *Store) check(hash string) ([]string, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}

	dir := s.entryDir(hash)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, miss(hash)
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", dir)
	}

	scan, err := s.scan(dir)
	if err != nil {
		return nil, err
	}
	if !scan.manifest {
		return nil, zerr.Wrap(domain.ErrCacheIntegrity, "manifest is missing")
	}

	path := filepath.Join(dir, domain.ManifestFileName)
	//nolint:gosec // Path is built from a validated hash
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(domain.ErrCacheIntegrity, zerr.Wrap(err, "failed to read manifest"))
	}

	declared := decodeManifest(data)
	if missing, extra := diff(declared, scan.classNames()); len(missing) > 0 || len(extra) > 0 {
		err := zerr.Wrap(domain.ErrCacheIntegrity, "manifest does not match class directories")
		err = zerr.With(err, "missing", missing)
		return nil, zerr.With(err, "undeclared", extra)
	}
	return declared, nil
}

func (s *Store) heal(hash string, cause error) {
	s.log.Warn(fmt.Sprintf("discarding cache entry %s: %v", hash, cause))
	if err := s.Clear(hash); err != nil {
		s.log.Error(err)
	}
}

type entryScan struct {
	classes  map[string]int64
	manifest bool
	bytes    int64
}

func (e *entryScan) classNames() []string {
	names := make([]string, 0, len(e.classes))
	for name := range e.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// scan walks one level of class directories. Integrity problems are reported
// as ErrCacheIntegrity. A missing directory scans as empty.
func (s *Store) scan(dir string) (*entryScan, error) {
	result := &entryScan{classes: make(map[string]int64)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", dir)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			switch name {
			case domain.ManifestFileName:
				result.manifest = true
			case domain.MetadataFileName:
			default:
				return nil, zerr.With(zerr.Wrap(domain.ErrCacheIntegrity, "unexpected file in entry"), "file", name)
			}
			continue
		}

		className, err := url.PathUnescape(name)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrCacheIntegrity, "malformed class directory"), "dir", name)
		}

		files, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", name)
		}
		if len(files) != 1 || files[0].Name() != domain.ImageFileName || files[0].IsDir() {
			err := zerr.Wrap(domain.ErrCacheIntegrity, "class directory must hold exactly one image")
			return nil, zerr.With(zerr.With(err, "class", className), "files", len(files))
		}
		info, err := files[0].Info()
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "class", className)
		}
		result.classes[className] = info.Size()
		result.bytes += info.Size()
	}
	return result, nil
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", tmpName)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", tmpName)
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", target)
	}
	return nil
}

func encodeManifest(names []string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func decodeManifest(data []byte) []string {
	var names []string
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			names = append(names, line)
		}
	}
	return sortedUnique(names)
}

func sortedUnique(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}

// diff compares two sorted sets.
func diff(want, have []string) (missing, extra []string) {
	i, j := 0, 0
	for i < len(want) && j < len(have) {
		switch {
		case want[i] == have[j]:
			i++
			j++
		case want[i] < have[j]:
			missing = append(missing, want[i])
			i++
		default:
			extra = append(extra, have[j])
			j++
		}
	}
	missing = append(missing, want[i:]...)
	extra = append(extra, have[j:]...)
	return missing, extra
}

func miss(hash string) error {
	return zerr.With(zerr.Wrap(domain.ErrCacheMiss, "no complete entry"), "hash", hash)
}

func validateHash(hash string) error {
	if hash == "" || hash == "." || hash == ".." || strings.ContainsAny(hash, `/\`) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidSourceHash, "rejected cache key"), "hash", hash)
	}
	return nil
}

func validateClassName(name string) error {
	switch name {
	case "", ".", "..", domain.ManifestFileName, domain.MetadataFileName:
		return zerr.With(zerr.Wrap(domain.ErrInvalidClassName, "rejected class name"), "class", name)
	}
	// The manifest is newline delimited.
	if strings.ContainsAny(name, "\r\n") {
		return zerr.With(zerr.Wrap(domain.ErrInvalidClassName, "class name spans lines"), "class", name)
	}
	return nil
}
