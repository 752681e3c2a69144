package agents

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// PromptData is the value prompt templates are rendered with.
type PromptData struct {
	Question string
	Language string
	// History is the prior conversation rendered as "role: content" lines.
	History  string
	Context  map[string]any
	Passages []ports.Passage
	Agents   []string
}

type promptFile struct {
	Agents map[string]struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	} `yaml:"agents"`
	Partials  map[string]string            `yaml:"partials"`
	Fallbacks map[string]map[string]string `yaml:"fallbacks"`
}

// Prompts holds the parsed prompt templates and localized fallback texts.
type Prompts struct {
	tmpl      *template.Template
	fallbacks map[string]map[string]string
}

// LoadPrompts parses a prompt file. Every agent needs a system template; user
// templates are optional and default to the bare question.
func LoadPrompts(data []byte) (*Prompts, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	root := template.New("prompts").Funcs(template.FuncMap{"join": strings.Join})
	for name, body := range file.Partials {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse partial %q: %w", name, err)
		}
	}
	for name, p := range file.Agents {
		if _, err := domain.ParseAgentID(name); err != nil {
			return nil, fmt.Errorf("prompts: %w", err)
		}
		if p.System == "" {
			return nil, fmt.Errorf("prompts: agent %q has no system template", name)
		}
		if _, err := root.New(name + ".system").Parse(p.System); err != nil {
			return nil, fmt.Errorf("failed to parse %s system prompt: %w", name, err)
		}
		if p.User == "" {
			continue
		}
		if _, err := root.New(name + ".user").Parse(p.User); err != nil {
			return nil, fmt.Errorf("failed to parse %s user prompt: %w", name, err)
		}
	}

	return &Prompts{tmpl: root, fallbacks: file.Fallbacks}, nil
}

var embeddedPrompts = sync.OnceValues(func() (*Prompts, error) {
	return LoadPrompts(defaultPromptsYAML)
})

// DefaultPrompts returns the embedded prompt set. It is parsed once and shared.
func DefaultPrompts() *Prompts {
	p, err := embeddedPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

// Render produces the system and user prompts of an agent.
func (p *Prompts) Render(id domain.AgentID, data PromptData) (system, user string, err error) {
	system, err = p.execute(string(id)+".system", data)
	if err != nil {
		return "", "", err
	}
	if p.tmpl.Lookup(string(id)+".user") == nil {
		return system, data.Question, nil
	}
	user, err = p.execute(string(id)+".user", data)
	return system, user, err
}

func (p *Prompts) execute(name string, data PromptData) (string, error) {
	if p.tmpl.Lookup(name) == nil {
		return "", fmt.Errorf("no prompt template %q", name)
	}
	var b strings.Builder
	if err := p.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Fallback returns the localized apology shown when an agent fails. Unknown
// languages use defaultLanguage.
func (p *Prompts) Fallback(id domain.AgentID, lang, defaultLanguage string) string {
	for _, l := range []string{lang, defaultLanguage} {
		if msg := p.fallbacks[l][string(id)]; msg != "" {
			return msg
		}
	}
	return ""
}
