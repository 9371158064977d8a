// Package aichat proxies guest questions to a Gemini text endpoint,
// prefixed with a per-language system prompt.
package aichat

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// DefaultLanguage is used when a request omits or misspells the
// requested language.
const DefaultLanguage = "id"

// Prompt is one language's system prompt. The priming text is injected
// as a model turn ahead of the guest message so replies stay on topic.
type Prompt struct {
	Language string
	Priming  string
	System   string
	Source   string
}

type promptFrontmatter struct {
	Language string `yaml:"language"`
	Priming  string `yaml:"priming"`
}

// ParsePrompt parses a prompt file: YAML frontmatter followed by the
// system prompt body.
func ParsePrompt(source string, data []byte) (*Prompt, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("prompt %s is empty", source)
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)
	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}

	var fm promptFrontmatter
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &fm); err != nil {
			return nil, fmt.Errorf("prompt %s frontmatter: %w", source, err)
		}
	}

	prompt := &Prompt{
		Language: strings.ToLower(strings.TrimSpace(fm.Language)),
		Priming:  strings.TrimSpace(fm.Priming),
		System:   strings.TrimSpace(strings.Join(body, "\n")),
		Source:   source,
	}
	if prompt.Language == "" {
		return nil, fmt.Errorf("prompt %s missing language", source)
	}
	if prompt.System == "" {
		return nil, fmt.Errorf("prompt %s missing system text", source)
	}
	return prompt, nil
}

// PromptSet holds prompts keyed by language.
type PromptSet struct {
	prompts map[string]*Prompt
}

// NewPromptSet indexes prompts by language, rejecting duplicates.
func NewPromptSet(prompts []*Prompt) (*PromptSet, error) {
	set := &PromptSet{prompts: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		if _, ok := set.prompts[p.Language]; ok {
			return nil, fmt.Errorf("duplicate prompt language %q", p.Language)
		}
		set.prompts[p.Language] = p
	}
	if _, ok := set.prompts[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("prompt set missing default language %q", DefaultLanguage)
	}
	return set, nil
}

// ForLanguage returns the prompt for the language, falling back to the
// default when the language is unknown.
func (s *PromptSet) ForLanguage(language string) *Prompt {
	language = strings.ToLower(strings.TrimSpace(language))
	if p, ok := s.prompts[language]; ok {
		return p
	}
	return s.prompts[DefaultLanguage]
}

// Languages lists the configured languages.
func (s *PromptSet) Languages() []string {
	out := make([]string, 0, len(s.prompts))
	for lang := range s.prompts {
		out = append(out, lang)
	}
	return out
}

// DefaultPrompts loads the embedded prompt files.
func DefaultPrompts() (*PromptSet, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := ParsePrompt(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return NewPromptSet(prompts)
}

// LoadPromptsFromDir reads prompt files from a directory, letting a
// deployment override the embedded defaults.
func LoadPromptsFromDir(dir string) (*PromptSet, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no prompt files in %s", dir)
	}
	prompts := make([]*Prompt, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- Prompt path is operator-provided
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		prompt, err := ParsePrompt(path, data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return NewPromptSet(prompts)
}
