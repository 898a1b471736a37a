package domain

import "path/filepath"

const (
	// HotloadDirName is the name of the internal workspace directory.
	HotloadDirName = ".hotload"

	// CacheDirName is the name of the native image cache directory.
	CacheDirName = "cache"

	// ScratchDirName is the name of the translator scratch directory.
	ScratchDirName = "scratch"

	// ManifestFileName is the commit record of a cache entry. It is written last.
	ManifestFileName = "classes.manifest"

	// ImageFileName is the name of the single native image inside a class directory.
	ImageFileName = "image"

	// MetadataFileName holds the CBOR encoded EntryMetadata of a cache entry.
	MetadataFileName = "entry.meta"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "hotload.yaml"

	// ConfigEnvVar overrides the configuration file path used by the DI graph.
	ConfigEnvVar = "HOTLOAD_CONFIG"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCachePath returns the default root of the native image cache.
// It joins .hotload and cache.
func DefaultCachePath() string {
	return filepath.Join(HotloadDirName, CacheDirName)
}

// DefaultScratchPath returns the default root for translator scratch directories.
// It joins .hotload and scratch.
func DefaultScratchPath() string {
	return filepath.Join(HotloadDirName, ScratchDirName)
}
