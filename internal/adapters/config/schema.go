package config

// Hotloadfile represents the structure of the hotload.yaml configuration file.
type Hotloadfile struct {
	Version     string         `yaml:"version"`
	CacheRoot   string         `yaml:"cache_root"`
	ScratchDir  string         `yaml:"scratch_dir"`
	EntryPoint  string         `yaml:"entry_point"`
	Parallelism int            `yaml:"parallelism"`
	Translator  *TranslatorDTO `yaml:"translator"`
	Log         LogDTO         `yaml:"log"`
	Trace       bool           `yaml:"trace"`
}

// TranslatorDTO describes the external native compiler.
type TranslatorDTO struct {
	Command []string `yaml:"command"`
	Output  string   `yaml:"output"`
	Timeout string   `yaml:"timeout"`
}

// LogDTO configures log output.
type LogDTO struct {
	JSON bool `yaml:"json"`
}
