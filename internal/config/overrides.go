package config

// RuntimeOverrides holds configuration values that can be overridden at runtime
// via CLI flags or other means
type RuntimeOverrides struct {
	LogLevel   *string
	LogFile    *string
	Backend    *string
	StorageDir *string
	DBPath     *string
}

func applyOverrides(cfg *ConfigSchema, overrides *RuntimeOverrides) {
	if overrides == nil {
		return
	}
	if overrides.LogLevel != nil {
		cfg.Log.LogLevel = *overrides.LogLevel
	}
	if overrides.LogFile != nil {
		cfg.Log.LogFile = *overrides.LogFile
	}
	if overrides.Backend != nil {
		cfg.Storage.Backend = *overrides.Backend
	}
	if overrides.StorageDir != nil {
		cfg.Storage.Dir = *overrides.StorageDir
	}
	if overrides.DBPath != nil {
		cfg.Storage.DBPath = *overrides.DBPath
	}
}
