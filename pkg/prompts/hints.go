package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_hints.yaml
var defaultHintsYAML []byte

// VocabularyHint maps a business word to the column-name fragments that
// usually carry it.
type VocabularyHint struct {
	Term     string   `yaml:"term"`
	Synonyms []string `yaml:"synonyms"`
	Columns  []string `yaml:"columns"`
}

// Hints is the domain knowledge rendered into the translation instructions.
// Examples are also quoted back to the user when a question finds nothing.
type Hints struct {
	// Focus completes "I specialize in ..." in the fallback answers.
	Focus      string           `yaml:"focus"`
	Vocabulary []VocabularyHint `yaml:"vocabulary"`
	Patterns   []string         `yaml:"patterns"`
	Examples   []string         `yaml:"examples"`
}

// DefaultHints returns the built-in retail vocabulary.
func DefaultHints() *Hints {
	h, err := ParseHints(defaultHintsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded hints are invalid: %v", err))
	}
	return h
}

// LoadHints reads hints from a YAML file. An empty path returns the defaults.
func LoadHints(path string) (*Hints, error) {
	if path == "" {
		return DefaultHints(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hints file: %w", err)
	}
	h, err := ParseHints(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// ParseHints decodes hints YAML. Unknown keys are rejected so a typo in a
// hand-edited file does not silently drop a section.
func ParseHints(data []byte) (*Hints, error) {
	var h Hints
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse hints: %w", err)
	}
	for i, v := range h.Vocabulary {
		if v.Term == "" {
			return nil, fmt.Errorf("parse hints: vocabulary entry %d has no term", i)
		}
		if len(v.Columns) == 0 {
			return nil, fmt.Errorf("parse hints: vocabulary term %q lists no columns", v.Term)
		}
	}
	return &h, nil
}
