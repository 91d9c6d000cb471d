// Package resolve turns CLI arguments into domain identifiers and values.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/isaacphi/promptwheel/internal/service"
)

// Template resolves an argument to a template id. It accepts a full id, an
// id prefix, or an exact template name.
func Template(svc *service.PromptService, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	var matches []uuid.UUID
	for _, summary := range svc.ListTemplates() {
		if summary.Name == arg || strings.HasPrefix(summary.ID.String(), arg) {
			matches = append(matches, summary.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("no template matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%q matches %d templates, use a longer id", arg, len(matches))
	}
}

// Version resolves an argument to a version id within a template. It accepts
// a full id, an id prefix, or a sequence number like "2" or "v2".
func Version(svc *service.PromptService, templateID uuid.UUID, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	versions, err := svc.ListVersions(templateID)
	if err != nil {
		return uuid.Nil, err
	}

	if seq, err := strconv.Atoi(strings.TrimPrefix(arg, "v")); err == nil {
		for _, v := range versions {
			if v.Sequence == seq {
				return v.ID, nil
			}
		}
		return uuid.Nil, fmt.Errorf("no version %d in template %s", seq, templateID.String()[:8])
	}

	var matches []uuid.UUID
	for _, v := range versions {
		if strings.HasPrefix(v.ID.String(), arg) {
			matches = append(matches, v.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("no version matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%q matches %d versions, use a longer id", arg, len(matches))
	}
}

// KeyValues parses repeated "key=value" flags into a string map.
func KeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// TypedKeyValues parses "key=value" pairs, converting values to numbers or
// booleans where they parse as such.
func TypedKeyValues(pairs []string) (map[string]any, error) {
	raw, err := KeyValues(pairs)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = coerce(value)
	}
	return out, nil
}

func coerce(value string) any {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// Weights parses a comma-separated weight list like "0.7,0.3".
func Weights(arg string) ([]float64, error) {
	if arg == "" {
		return nil, nil
	}
	parts := strings.Split(arg, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q", part)
		}
		out[i] = f
	}
	return out, nil
}
