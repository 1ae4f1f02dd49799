// Package prompt builds enhancement instructions and streams chat completions.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var stylesYAML []byte

// DefaultStyle is used for unknown or empty style keys.
const DefaultStyle = "default"

// Style is one entry of the style catalog.
type Style struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// Catalog holds the static enhancement guidance.
type Catalog struct {
	Guidance string            `yaml:"guidance"`
	Styles   map[string]Style  `yaml:"styles"`
	Sizes    map[string]string `yaml:"sizes"`
}

// LoadCatalog parses the embedded style catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(stylesYAML)
}

// ParseCatalog parses a catalog document. It must define a default style.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("prompt: parse catalog: %w", err)
	}
	if _, ok := cat.Styles[DefaultStyle]; !ok {
		return nil, fmt.Errorf("prompt: catalog has no %q style", DefaultStyle)
	}
	return &cat, nil
}

// Style returns the catalog entry for key, falling back to the default style.
func (c *Catalog) Style(key string) (string, Style) {
	key = strings.ToLower(strings.TrimSpace(key))
	if s, ok := c.Styles[key]; ok {
		return key, s
	}
	return DefaultStyle, c.Styles[DefaultStyle]
}

// InstructionRequest selects the parts of the system instruction.
type InstructionRequest struct {
	Style  string
	Size   string
	Locale string
}

// Instruction renders the system message sent ahead of the shopper's prompt.
func (c *Catalog) Instruction(req InstructionRequest) string {
	_, style := c.Style(req.Style)
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Guidance))

	label := cases.Title(language.English).String(style.Label)
	fmt.Fprintf(&b, "\n\nStyle: %s. %s", label, strings.TrimSpace(style.Text))

	if size := strings.TrimSpace(req.Size); size != "" {
		if guide, ok := c.Sizes[size]; ok {
			fmt.Fprintf(&b, "\nFormat: %s (%s).", strings.TrimSuffix(guide, "."), size)
		} else {
			fmt.Fprintf(&b, "\nFormat: %s.", size)
		}
	}

	if hint := localeHint(req.Locale); hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	return b.String()
}

// localeHint asks for English output while keeping on-shirt wording in the
// shopper's language.
func localeHint(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		return ""
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return ""
	}
	return fmt.Sprintf("The shopper writes in %s. Write the prompt in English but keep any words meant to appear on the shirt in %s.", name, name)
}
