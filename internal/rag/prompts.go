package rag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// ErrPromptNotFound is returned when a named prompt is not in the registry.
var ErrPromptNotFound = errors.New("prompt not found")

// promptFile is the on-disk YAML shape of a prompt definition.
type promptFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	System      string `yaml:"system"`
	Template    string `yaml:"template"`
}

// Prompt is a named, parsed prompt template with an optional system
// instruction.
type Prompt struct {
	Name        string
	Description string
	System      string
	template    *template.Template
}

// Render executes the prompt template with the given data.
func (p *Prompt) Render(data any) (string, error) {
	var sb strings.Builder
	if err := p.template.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", p.Name, err)
	}
	return sb.String(), nil
}

// PromptRegistry holds prompt templates loaded from YAML files. Templates
// are parsed once at load time so malformed prompts fail at startup, not
// mid-request.
type PromptRegistry struct {
	prompts map[string]*Prompt
}

// LoadPrompts reads every .yaml/.yml file in dir into a registry.
// Returns an error if the directory cannot be read, a file is malformed,
// or two files declare the same prompt name.
func LoadPrompts(dir string) (*PromptRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory %q: %w", dir, err)
	}

	registry := &PromptRegistry{prompts: make(map[string]*Prompt)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		prompt, err := loadPromptFile(path)
		if err != nil {
			return nil, err
		}

		if _, exists := registry.prompts[prompt.Name]; exists {
			return nil, fmt.Errorf("duplicate prompt name %q in %s", prompt.Name, path)
		}
		registry.prompts[prompt.Name] = prompt
	}

	if len(registry.prompts) == 0 {
		return nil, fmt.Errorf("no prompt files found in %q", dir)
	}

	return registry, nil
}

// Get returns the prompt with the given name.
// Returns ErrPromptNotFound if no such prompt was loaded.
func (r *PromptRegistry) Get(name string) (*Prompt, error) {
	prompt, ok := r.prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}
	return prompt, nil
}

// Names returns the names of all loaded prompts.
func (r *PromptRegistry) Names() []string {
	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	return names
}

func loadPromptFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %q: %w", path, err)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %q: %w", path, err)
	}

	if pf.Name == "" {
		return nil, fmt.Errorf("prompt file %q is missing a name", path)
	}
	if pf.Template == "" {
		return nil, fmt.Errorf("prompt %q has an empty template", pf.Name)
	}

	tmpl, err := template.New(pf.Name).Option("missingkey=error").Parse(pf.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template for prompt %q: %w", pf.Name, err)
	}

	return &Prompt{
		Name:        pf.Name,
		Description: pf.Description,
		System:      pf.System,
		template:    tmpl,
	}, nil
}
