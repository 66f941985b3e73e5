package i18n

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

type file struct {
	Default   string                       `yaml:"default"`
	Languages map[string]map[string]string `yaml:"languages"`
}

// Catalog holds the UI strings per language. It is read-only once parsed.
type Catalog struct {
	fallback string
	messages map[string]map[string]string
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultMessages)
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("no languages defined")
	}
	if _, ok := f.Languages[f.Default]; !ok {
		return nil, fmt.Errorf("default language %q is not defined", f.Default)
	}
	return &Catalog{fallback: f.Default, messages: f.Languages}, nil
}

// T translates key into lang. Unknown languages use the default one,
// unknown keys are returned as is.
func (c *Catalog) T(lang, key string) string {
	if msgs, ok := c.messages[lang]; ok {
		if v, ok := msgs[key]; ok {
			return v
		}
	}
	if v, ok := c.messages[c.fallback][key]; ok {
		return v
	}
	return key
}

// Bundle returns every string for lang, default language entries filling gaps.
func (c *Catalog) Bundle(lang string) map[string]string {
	out := make(map[string]string, len(c.messages[c.fallback]))
	for k, v := range c.messages[c.fallback] {
		out[k] = v
	}
	for k, v := range c.messages[lang] {
		out[k] = v
	}
	return out
}

// Supports reports whether lang has its own table.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// DefaultLanguage returns the fallback language.
func (c *Catalog) DefaultLanguage() string { return c.fallback }

// Languages lists the available languages, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
