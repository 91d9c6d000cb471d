package config

// Storage selects and configures the snapshot backend.
type Storage struct {
	Backend  string `mapstructure:"backend" json:"backend" jsonschema:"description=Snapshot backend,enum=file,enum=sqlite,default=file" validate:"oneof=file sqlite"`
	Dir      string `mapstructure:"dir" json:"dir" jsonschema:"description=Directory for the file backend's JSON documents"`
	DBPath   string `mapstructure:"dbPath" json:"dbPath" jsonschema:"description=Database path for the sqlite backend"`
	AutoSave bool   `mapstructure:"autoSave" json:"autoSave" jsonschema:"description=Persist a snapshot after every mutating operation,default=true"`
}

// Experiments holds tuning knobs for experiments and recommendations.
type Experiments struct {
	MinUsageCount int `mapstructure:"minUsageCount" json:"minUsageCount" jsonschema:"description=Minimum usage records a version needs before it can be recommended,default=10" validate:"min=1"`
}

type Log struct {
	LogLevel string `mapstructure:"logLevel" json:"logLevel" jsonschema:"description=Log level,enum=DEBUG,enum=INFO,enum=WARN,enum=ERROR,default=INFO" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	LogFile  string `mapstructure:"logFile" json:"logFile" jsonschema:"description=Log file location. Leave empty to disable logging"`
}

type ConfigSchema struct {
	Storage     Storage     `mapstructure:"storage" json:"storage"`
	Experiments Experiments `mapstructure:"experiments" json:"experiments"`
	Log         Log         `mapstructure:"log" json:"log"`
	Keymap      KeyMap      `mapstructure:"keymap" json:"keymap"`

	// Internal fields for printing
	sources map[string][]configSource
}
