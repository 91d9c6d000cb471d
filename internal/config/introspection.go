package config

import (
	"fmt"
	"reflect"
	"strings"
)

// GetKnownKeys returns all valid configuration keys based on the schema
func GetKnownKeys() map[string]bool {
	known := make(map[string]bool)
	addKnownKeysByValue("", ConfigSchema{}, known)
	return known
}

// addKnownKeysByValue recursively adds keys by examining struct value
func addKnownKeysByValue(prefix string, val interface{}, known map[string]bool) {
	v := reflect.ValueOf(val)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// Convert the key to lowercase since viper lowercases all keys
		key = strings.ToLower(key)
		known[key] = true

		switch field.Type.Kind() {
		case reflect.Struct:
			addKnownKeysByValue(key, v.Field(i).Interface(), known)
		case reflect.Map:
			// For simple maps, allow any nested fields
			wildcardKey := fmt.Sprintf("%s.*", key)
			known[wildcardKey] = true
		}
	}
}

// matchesWildcard checks if a key matches a wildcard pattern
func matchesWildcard(pattern, key string) bool {
	pattern = strings.ToLower(pattern)
	key = strings.ToLower(key)

	patternParts := strings.Split(pattern, ".")
	keyParts := strings.Split(key, ".")

	if len(patternParts) != len(keyParts) {
		return false
	}

	for i := range patternParts {
		if patternParts[i] != "*" && patternParts[i] != keyParts[i] {
			return false
		}
	}
	return true
}

// IsKnownKey checks if a key is known, including wildcard matches
func IsKnownKey(known map[string]bool, key string) bool {
	if known[strings.ToLower(key)] {
		return true
	}

	for pattern := range known {
		if strings.Contains(pattern, "*") && matchesWildcard(pattern, key) {
			return true
		}
	}
	return false
}

// PrintConfig prints the configuration with optional sources in YAML format
func (s *ConfigSchema) PrintConfig(includeSources bool) {
	s.printValue(reflect.ValueOf(*s), "", includeSources, 0)
}

func (s *ConfigSchema) printValue(v reflect.Value, key string, includeSources bool, indent int) {
	t := v.Type()

	switch v.Kind() {
	case reflect.Struct:
		if key != "" {
			fmt.Printf("%s%s:\n", strings.Repeat("  ", indent), key)
			indent++
		}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || field.Tag.Get("mapstructure") == "" {
				continue
			}
			fieldValue := v.Field(i)
			if !fieldValue.IsZero() {
				tag := field.Tag.Get("mapstructure")
				s.printValue(fieldValue, tag, includeSources, indent)
			}
		}

	case reflect.Map:
		if key != "" {
			fmt.Printf("%s%s:\n", strings.Repeat("  ", indent), key)
			indent++
		}
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			s.printValue(iter.Value(), k, includeSources, indent)
		}

	default:
		fmt.Printf("%s%s: %v", strings.Repeat("  ", indent), key, v.Interface())
		s.printSourceInfo(key, includeSources)
		fmt.Println()
	}
}

func (s *ConfigSchema) printSourceInfo(key string, includeSources bool) {
	if !includeSources {
		return
	}

	var source string
	found := false
	if sources, ok := s.sources[strings.ToLower(key)]; ok && len(sources) > 0 {
		source = sources[len(sources)-1].source
		found = true
	}

	if found {
		fmt.Printf(" # (%s)", source)
	} else {
		fmt.Printf(" # (default)")
	}
}
