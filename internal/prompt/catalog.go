package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/support-assistant/internal/llm"
)

//go:embed templates/*.yaml
var defaultTemplates embed.FS

// ErrTemplateNotFound is returned by Get for unknown template ids.
var ErrTemplateNotFound = errors.New("prompt template not found")

type messageSpec struct {
	Role     string `yaml:"role"`
	Template string `yaml:"template"`
}

type templateFile struct {
	ID          string        `yaml:"id"`
	Version     int           `yaml:"version"`
	Description string        `yaml:"description"`
	Messages    []messageSpec `yaml:"messages"`
}

type compiledMessage struct {
	role string
	tmpl *template.Template
}

// Template is a versioned, renderable chat prompt.
type Template struct {
	ID          string
	Name        string
	Version     int
	Description string
	messages    []compiledMessage
}

// Render substitutes vars into every message. A variable referenced by the
// template but missing from vars is an error.
func (t *Template) Render(vars map[string]string) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(t.messages))
	for i, m := range t.messages {
		var buf bytes.Buffer
		if err := m.tmpl.Execute(&buf, vars); err != nil {
			return nil, fmt.Errorf("render %s message %d: %w", t.ID, i, err)
		}
		out = append(out, llm.Message{Role: m.role, Content: strings.TrimSpace(buf.String())})
	}
	return out, nil
}

// Catalog resolves template ids such as write_response_prompt_v2.
type Catalog struct {
	templates map[string]*Template
}

// Default loads the templates compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads the embedded templates and then dir on top of them, so a
// directory only needs the templates it overrides. An empty dir loads the
// embedded set alone.
func LoadDir(dir string) (*Catalog, error) {
	catalog, err := Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return catalog, nil
	}
	override, err := Load(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load prompt dir %s: %w", dir, err)
	}
	for id, t := range override.templates {
		catalog.templates[id] = t
	}
	return catalog, nil
}

// Load parses every *.yaml and *.yml file at the root of fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	catalog := &Catalog{templates: make(map[string]*Template)}
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		t, err := parseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if _, dup := catalog.templates[t.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate template id %s", entry.Name(), t.ID)
		}
		catalog.templates[t.ID] = t
	}
	return catalog, nil
}

func parseTemplate(raw []byte) (*Template, error) {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if strings.TrimSpace(file.ID) == "" {
		return nil, errors.New("template id is required")
	}
	if file.Version <= 0 {
		return nil, fmt.Errorf("template %s: version must be positive", file.ID)
	}
	if len(file.Messages) == 0 {
		return nil, fmt.Errorf("template %s: no messages", file.ID)
	}

	id := fmt.Sprintf("%s_v%d", file.ID, file.Version)
	t := &Template{ID: id, Name: file.ID, Version: file.Version, Description: file.Description}
	for i, m := range file.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return nil, fmt.Errorf("template %s message %d: unknown role %q", id, i, m.Role)
		}
		tmpl, err := template.New(fmt.Sprintf("%s.%d", id, i)).Option("missingkey=error").Parse(m.Template)
		if err != nil {
			return nil, fmt.Errorf("template %s message %d: %w", id, i, err)
		}
		t.messages = append(t.messages, compiledMessage{role: role, tmpl: tmpl})
	}
	return t, nil
}

// Get returns the template registered under id.
func (c *Catalog) Get(id string) (*Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// IDs lists the registered template ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
