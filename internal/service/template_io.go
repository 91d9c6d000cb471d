package service

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// templateFile is the YAML document used for template export and import.
type templateFile struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description,omitempty"`
	Template      string            `yaml:"template"`
	DefaultValues map[string]string `yaml:"defaultValues,omitempty"`
}

// ExportTemplate writes the template's current content to a YAML file.
func (s *PromptService) ExportTemplate(templateID uuid.UUID, path string) error {
	tmpl, err := s.store.GetTemplate(templateID)
	if err != nil {
		return err
	}

	doc := templateFile{
		Name:          tmpl.Name,
		Description:   tmpl.Description,
		Template:      tmpl.Template,
		DefaultValues: tmpl.DefaultValues,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	return nil
}

// ImportTemplate creates a new template from a YAML file.
func (s *PromptService) ImportTemplate(ctx context.Context, path string) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var doc templateFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse template file: %w", err)
	}
	if doc.Template == "" {
		return uuid.Nil, fmt.Errorf("template file %s has no template body", path)
	}
	if doc.Name == "" {
		doc.Name = path
	}

	return s.CreateTemplate(ctx, doc.Name, doc.Description, doc.Template, doc.DefaultValues)
}
