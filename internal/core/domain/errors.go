package domain

import "go.trai.ch/zerr"

var (
	// ErrTranslationFailed is returned when the external native compiler fails for a class.
	ErrTranslationFailed = zerr.New("native translation failed")

	// ErrTranslationTimeout is returned when the external native compiler exceeds its time budget.
	ErrTranslationTimeout = zerr.New("native translation timed out")

	// ErrTranslationNoOutput is returned when the external native compiler exits cleanly
	// without producing the expected artifact.
	ErrTranslationNoOutput = zerr.New("native translation produced no output")

	// ErrCacheIntegrity is returned when a cache entry's manifest and directory disagree.
	// It is recovered inside the cache and never reaches callers of HasCompleteEntry.
	ErrCacheIntegrity = zerr.New("cache entry integrity violation")

	// ErrCacheMiss is returned when no complete cache entry exists for a source hash.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrIncompleteEntry is returned when a manifest is written for a class set that
	// does not match the images on disk.
	ErrIncompleteEntry = zerr.New("cache entry is incomplete")

	// ErrClassResolution is returned when a class expected to be present cannot be loaded.
	ErrClassResolution = zerr.New("class resolution failed")

	// ErrClassNotFound is returned by a loader when a name does not resolve.
	ErrClassNotFound = zerr.New("class not found")

	// ErrInvalidClassName is returned when a class name cannot be stored in the cache layout.
	ErrInvalidClassName = zerr.New("invalid class name")

	// ErrArityMismatch is returned by a class when an invocation shape does not match its entry point.
	ErrArityMismatch = zerr.New("entry point arity mismatch")

	// ErrEntryPointArity is returned when none of the probed entry point shapes matched.
	ErrEntryPointArity = zerr.New("no entry point shape matched")

	// ErrEvaluationFailed is returned when the generated program throws during a form or its entry point.
	ErrEvaluationFailed = zerr.New("evaluation failed")

	// ErrSessionClosed is returned when a compilation session is used after it finished.
	ErrSessionClosed = zerr.New("compilation session is closed")

	// ErrInvalidSessionState is returned on an illegal compilation session transition.
	ErrInvalidSessionState = zerr.New("invalid compilation session state")

	// ErrStaleChain is returned when extending a loader chain that is no longer the newest view.
	ErrStaleChain = zerr.New("loader chain is stale")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the config file parses but is not usable.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrStoreCreateFailed is returned when a cache directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when a cache file cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache file")

	// ErrStoreWriteFailed is returned when a cache file cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache file")

	// ErrStoreRemoveFailed is returned when a cache entry cannot be removed.
	ErrStoreRemoveFailed = zerr.New("failed to remove cache entry")

	// ErrMetadataMarshalFailed is returned when entry metadata cannot be encoded.
	ErrMetadataMarshalFailed = zerr.New("failed to marshal entry metadata")

	// ErrMetadataUnmarshalFailed is returned when entry metadata cannot be decoded.
	ErrMetadataUnmarshalFailed = zerr.New("failed to unmarshal entry metadata")
)

// ErrDuplicateImage is returned when a second image is appended for a class name within one run.
var ErrDuplicateImage = zerr.New("class already has an image in this run")

// ErrInvalidSourceHash is returned when a cache key cannot be used as a directory name.
var ErrInvalidSourceHash = zerr.New("invalid source hash")
