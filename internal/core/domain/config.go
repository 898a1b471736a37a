package domain

import "time"

// Config holds the runtime configuration of hotload.
type Config struct {
	CacheRoot   string
	ScratchDir  string
	EntryClass  string
	Parallelism int
	Translator  TranslatorConfig
	JSONLogs    bool
	Trace       bool
}

// TranslatorConfig describes how to invoke the external native compiler.
// Command is an argv template where "{in}" is replaced by the bytecode file and
// "{out}" by the output directory. Output names the artifact inside "{out}".
type TranslatorConfig struct {
	Command []string
	Output  string
	Timeout time.Duration
}

const (
	// InPlaceholder is replaced by the path of the bytecode file in a translator command.
	InPlaceholder = "{in}"
	// OutPlaceholder is replaced by the output directory in a translator command.
	OutPlaceholder = "{out}"

	// DefaultEntryClass is the entry point class used when none is configured.
	DefaultEntryClass = "Main"
	// DefaultTranslatorOutput is the artifact name produced by d8.
	DefaultTranslatorOutput = "classes.dex"
	// DefaultTranslatorTimeout bounds a single translation.
	DefaultTranslatorTimeout = 60 * time.Second
	// DefaultParallelism bounds concurrent translations while pre-warming.
	DefaultParallelism = 4
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		CacheRoot:   DefaultCachePath(),
		ScratchDir:  DefaultScratchPath(),
		EntryClass:  DefaultEntryClass,
		Parallelism: DefaultParallelism,
		Translator: TranslatorConfig{
			Command: []string{"d8", "--output", "{out}", "{in}"},
			Output:  DefaultTranslatorOutput,
			Timeout: DefaultTranslatorTimeout,
		},
	}
}
