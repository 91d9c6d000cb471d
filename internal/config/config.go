package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

/*
Config System Design:
This configuration system implements a hierarchical config with the following precedence
(highest to lowest priority):

1. Runtime overrides (CLI flags)
2. Environment variables (PROMPTWHEEL_ prefix)
3. Local project config (.promptwheel/*.promptwheel.{yaml,json})
4. Global user config ($XDG_CONFIG_HOME/promptwheel/*.promptwheel.{yaml,json})
5. Default values

The system supports:
- Multiple config files in each directory, merged alphabetically
- Automatic merging of lists (they combine)
- Deep merging of maps
- Override of scalar values
- Schema validation of the final config
*/

const (
	envPrefix      = "PROMPTWHEEL"
	appDirName     = "promptwheel"
	localDirName   = ".promptwheel"
	fileSuffixYAML = ".promptwheel.yaml"
	fileSuffixJSON = ".promptwheel.json"
)

type configSource struct {
	value  interface{}
	source string
}

func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", filepath.Join(dataDir, "store"))
	v.SetDefault("storage.dbPath", filepath.Join(dataDir, "promptwheel.db"))
	v.SetDefault("storage.autoSave", true)
	v.SetDefault("experiments.minUsageCount", 10)
	v.SetDefault("log.logLevel", "INFO")
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return localDirName
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// findConfigFiles returns all *.promptwheel.{yaml,json} files in a directory
func findConfigFiles(dir string) ([]string, error) {
	var files []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, fileSuffixYAML) ||
			strings.HasSuffix(name, fileSuffixJSON) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

// New loads the merged configuration and applies any runtime overrides
func New(overrides *RuntimeOverrides) (*ConfigSchema, error) {
	v := viper.New()
	setDefaults(v)

	loadEnvFiles()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	sources := make(map[string][]configSource)
	if err := loadConfigs(v, sources); err != nil {
		return nil, err
	}

	var cfg ConfigSchema
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.sources = sources

	applyOverrides(&cfg, overrides)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadConfigs(v *viper.Viper, sources map[string][]configSource) error {
	// Find global config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	globalDir := filepath.Join(xdgConfig, appDirName)

	// Load files from both locations, global first so local wins
	for _, dir := range []string{globalDir, localDirName} {
		files, err := findConfigFiles(dir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		for _, f := range files {
			fileViper := viper.New()
			fileViper.SetConfigFile(f)
			if err := fileViper.ReadInConfig(); err != nil {
				return fmt.Errorf("error reading config file %s: %w", f, err)
			}

			settings := fileViper.AllSettings()
			trackSources(sources, settings, f)

			if err := mergeConfig(v, settings); err != nil {
				return fmt.Errorf("error merging config from %s: %w", f, err)
			}
		}
	}

	return nil
}

func mergeConfig(v *viper.Viper, settings map[string]interface{}) error {
	for key, value := range settings {
		existing := v.Get(key)
		if existing == nil {
			// Key doesn't exist, just set it
			v.Set(key, value)
			continue
		}

		// Handle different types
		switch existingVal := existing.(type) {
		case []interface{}:
			// For slices, append new values and remove duplicates
			if newSlice, ok := value.([]interface{}); ok {
				seen := make(map[interface{}]bool)
				combined := make([]interface{}, 0)

				for _, item := range existingVal {
					if !seen[item] {
						seen[item] = true
						combined = append(combined, item)
					}
				}
				for _, item := range newSlice {
					if !seen[item] {
						seen[item] = true
						combined = append(combined, item)
					}
				}

				v.Set(key, combined)
			} else {
				return fmt.Errorf("type mismatch for key %s: expected slice, got %T", key, value)
			}

		case map[string]interface{}:
			// For maps, recursively merge
			if newMap, ok := value.(map[string]interface{}); ok {
				merged := mergeMapRecursive(existingVal, newMap)
				v.Set(key, merged)
			} else {
				return fmt.Errorf("type mismatch for key %s: expected map, got %T", key, value)
			}

		default:
			// For all other types, override
			v.Set(key, value)
		}
	}
	return nil
}

func mergeMapRecursive(existing, new map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	// Copy existing map
	for k, v := range existing {
		result[k] = v
	}

	// Merge new map
	for k, v := range new {
		if existing[k] == nil {
			result[k] = v
			continue
		}

		switch existingVal := existing[k].(type) {
		case map[string]interface{}:
			if newVal, ok := v.(map[string]interface{}); ok {
				result[k] = mergeMapRecursive(existingVal, newVal)
			} else {
				result[k] = v
			}
		case []interface{}:
			if newVal, ok := v.([]interface{}); ok {
				result[k] = append(existingVal, newVal...)
			} else {
				result[k] = v
			}
		default:
			result[k] = v
		}
	}

	return result
}

func trackSources(sources map[string][]configSource, settings map[string]interface{}, filename string) {
	for key, value := range settings {
		sources[key] = append(sources[key], configSource{
			value:  value,
			source: filename,
		})
	}
}

// validate validates the configuration against the schema
func (s *ConfigSchema) validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}

	// Additional custom validations
	switch s.Storage.Backend {
	case "file":
		if s.Storage.Dir == "" {
			return fmt.Errorf("storage.dir must be set for the file backend")
		}
	case "sqlite":
		if s.Storage.DBPath == "" {
			return fmt.Errorf("storage.dbPath must be set for the sqlite backend")
		}
	}

	return nil
}
