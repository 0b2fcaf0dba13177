package mail

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	texttemplate "text/template"

	"github.com/kaptinlin/jsonschema"
)

//go:embed templates
var templatesFS embed.FS

// Template is a loaded, ready-to-render email template
type Template struct {
	Meta    *TemplateMetadata
	subject *texttemplate.Template
	body    *htmltemplate.Template
	schema  *jsonschema.Schema
}

// Render validates params against the template schema and executes subject and body
func (t *Template) Render(params map[string]interface{}) (subject, html string, err error) {
	if err := t.Validate(params); err != nil {
		return "", "", err
	}

	var sb bytes.Buffer
	if err := t.subject.Execute(&sb, params); err != nil {
		return "", "", fmt.Errorf("failed to render subject for %s: %w", t.Meta.Name, err)
	}

	var hb bytes.Buffer
	if err := t.body.Execute(&hb, params); err != nil {
		return "", "", fmt.Errorf("failed to render body for %s: %w", t.Meta.Name, err)
	}

	return sb.String(), hb.String(), nil
}

// Registry holds loaded templates in memory, indexed by name.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates a new empty template registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*Template),
	}
}

// Register adds a template to the registry.
// Returns an error if a template with the same name is already registered.
func (r *Registry) Register(t *Template) error {
	if _, exists := r.templates[t.Meta.Name]; exists {
		return fmt.Errorf("template already registered: %s", t.Meta.Name)
	}
	r.templates[t.Meta.Name] = t
	return nil
}

// Get retrieves a template by name.
func (r *Registry) Get(name string) (*Template, bool) {
	t, ok := r.templates[name]
	return t, ok
}

// Names returns the registered template names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	return len(r.templates)
}

// LoadRegistry discovers templates under dir in fsys and registers them.
// Duplicate names are logged and skipped.
func LoadRegistry(fsys fs.FS, dir string) (*Registry, error) {
	discovered, err := DiscoverTemplates(fsys, dir)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, t := range discovered {
		if err := registry.Register(t); err != nil {
			slog.Warn("Duplicate template name, skipping", "template", t.Meta.Name, "error", err)
			continue
		}
	}

	return registry, nil
}

// DefaultRegistry loads the templates embedded in the binary
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(templatesFS, "templates")
}

// loadTemplate parses the manifest, subject, body and schema of one template directory.
func loadTemplate(fsys fs.FS, dir string) (*Template, error) {
	meta, err := LoadTemplateMetadata(fsys, path.Join(dir, "template.yaml"))
	if err != nil {
		return nil, err
	}

	subject, err := texttemplate.New(meta.Name + ":subject").Option("missingkey=zero").Parse(meta.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject: %w", err)
	}

	bodySrc, err := fs.ReadFile(fsys, path.Join(dir, meta.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	body, err := htmltemplate.New(meta.Name + ":body").Parse(string(bodySrc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}

	t := &Template{Meta: meta, subject: subject, body: body}

	if len(meta.ParamsSchema) > 0 {
		schemaJSON, err := json.Marshal(meta.ParamsSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params schema: %w", err)
		}
		t.schema, err = jsonschema.NewCompiler().Compile(schemaJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to compile params schema: %w", err)
		}
	}

	return t, nil
}
