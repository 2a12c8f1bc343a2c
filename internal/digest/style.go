package digest

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed styles/*.md
var embeddedStyles embed.FS

// DefaultStyle is used when the user does not pick one.
const DefaultStyle = "standard"

// Style is a digest style: the system prompt handed to the LLM plus
// metadata from the template's YAML frontmatter.
type Style struct {
	Name        string // from frontmatter or file name
	Description string // from frontmatter
	MaxTokens   int    // from "max_tokens" (0 = provider default)
	Prompt      string // markdown body after frontmatter
	SourcePath  string // filesystem path or "embedded:<path>"
	Priority    int    // 0=embedded, 1=user
}

// StyleMap maps style name (lowercase) to *Style.
type StyleMap map[string]*Style

// styleFrontmatter maps the YAML frontmatter fields.
type styleFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// LoadStyles loads all digest styles. User templates in
// ~/.discord-chat/styles/ override same-named embedded defaults.
func LoadStyles() (StyleMap, error) {
	result := make(StyleMap)

	builtins, err := loadBuiltinStyles()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in styles: %w", err)
	}
	for name, s := range builtins {
		result[name] = s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return result, nil
	}
	dir := filepath.Join(home, ".discord-chat", "styles")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return result, nil
	}
	user, err := LoadStylesFromDir(dir, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load styles from %s: %w", dir, err)
	}
	for name, s := range user {
		if existing, ok := result[name]; !ok || s.Priority > existing.Priority {
			result[name] = s
		}
	}
	return result, nil
}

// LoadStylesFromDir loads every *.md template in a directory.
func LoadStylesFromDir(dir string, priority int) (StyleMap, error) {
	result := make(StyleMap)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read styles directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read style %s: %w", path, err)
		}
		s, err := ParseStyleMD(data, path, priority)
		if err != nil {
			return nil, fmt.Errorf("failed to parse style %s: %w", path, err)
		}
		result[strings.ToLower(s.Name)] = s
	}
	return result, nil
}

func loadBuiltinStyles() (StyleMap, error) {
	result := make(StyleMap)

	err := fs.WalkDir(embeddedStyles, "styles", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		data, err := embeddedStyles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded style %s: %w", path, err)
		}
		s, err := ParseStyleMD(data, "embedded:"+path, 0)
		if err != nil {
			return fmt.Errorf("failed to parse embedded style %s: %w", path, err)
		}
		result[strings.ToLower(s.Name)] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ParseStyleMD parses a style template: optional YAML frontmatter between
// "---" delimiters, then the system prompt as markdown body.
func ParseStyleMD(data []byte, sourcePath string, priority int) (*Style, error) {
	content := string(data)
	s := &Style{
		SourcePath: sourcePath,
		Priority:   priority,
	}

	trimmed := strings.TrimLeft(content, " \t\n\r")
	if strings.HasPrefix(trimmed, "---") {
		afterFirst := trimmed[3:]
		idx := strings.Index(afterFirst, "\n")
		if idx < 0 {
			s.Prompt = ""
			return withStyleDefaults(s), nil
		}
		afterFirst = afterFirst[idx+1:]

		closingIdx := strings.Index(afterFirst, "\n---")
		if closingIdx < 0 {
			// No closing delimiter, treat everything as prompt body
			s.Prompt = content
		} else {
			yamlBlock := afterFirst[:closingIdx]
			rest := afterFirst[closingIdx+4:]
			if nlIdx := strings.Index(rest, "\n"); nlIdx >= 0 {
				s.Prompt = rest[nlIdx+1:]
			} else {
				s.Prompt = ""
			}

			var fm styleFrontmatter
			if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
				return nil, fmt.Errorf("failed to parse style frontmatter: %w", err)
			}
			s.Name = fm.Name
			s.Description = fm.Description
			s.MaxTokens = fm.MaxTokens
		}
	} else {
		s.Prompt = content
	}

	return withStyleDefaults(s), nil
}

func withStyleDefaults(s *Style) *Style {
	s.Prompt = strings.TrimSpace(s.Prompt)
	if s.Name == "" {
		base := filepath.Base(s.SourcePath)
		s.Name = strings.TrimSuffix(base, ".md")
	}
	if s.Description == "" && s.Prompt != "" {
		paras := strings.SplitN(s.Prompt, "\n\n", 2)
		s.Description = strings.TrimSpace(paras[0])
	}
	return s
}
