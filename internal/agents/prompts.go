package agents

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dyike/MacroAgent/models"
)

//go:embed prompts
var promptFiles embed.FS

// Persona holds the persona-specific fragments spliced into the templates.
type Persona struct {
	Role  string `yaml:"role"`
	Label string `yaml:"label"`
	Focus string `yaml:"focus"`
}

// LoadPrompt loads a prompt template from the embedded markdown files
func LoadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return strings.TrimRight(string(content), "\n"), nil
}

// LoadPersona loads the fragments for p.
func LoadPersona(p models.Persona) (*Persona, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/personas/%s.yaml", p))
	if err != nil {
		return nil, fmt.Errorf("failed to load persona %s: %w", p, err)
	}
	var persona Persona
	if err := yaml.Unmarshal(content, &persona); err != nil {
		return nil, fmt.Errorf("failed to parse persona %s: %w", p, err)
	}
	return &persona, nil
}
