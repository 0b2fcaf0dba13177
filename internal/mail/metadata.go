package mail

import (
	"bytes"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// TemplateMetadata represents a parsed template.yaml manifest.
// Name and subject are required; params_schema is a JSON Schema written in YAML.
type TemplateMetadata struct {
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description"`
	Subject      string                 `yaml:"subject"`
	Body         string                 `yaml:"body"`
	ParamsSchema map[string]interface{} `yaml:"params_schema"`
}

// LoadTemplateMetadata reads and parses a template.yaml file with strict validation.
// Unknown YAML fields are rejected. Body defaults to "body.html".
func LoadTemplateMetadata(fsys fs.FS, path string) (*TemplateMetadata, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template metadata: %w", err)
	}

	var meta TemplateMetadata
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to parse template metadata: %w", err)
	}

	if meta.Body == "" {
		meta.Body = "body.html"
	}

	if meta.Name == "" {
		return nil, fmt.Errorf("template metadata missing required field: name")
	}
	if meta.Subject == "" {
		return nil, fmt.Errorf("template metadata missing required field: subject")
	}

	return &meta, nil
}
