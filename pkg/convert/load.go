package convert

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRule decodes a YAML rule table and validates it
func LoadRule(r io.Reader) (*ConversionRule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	rule := &ConversionRule{}
	if err := dec.Decode(rule); err != nil {
		return nil, fmt.Errorf("decoding rule: %w", err)
	}
	if rule.Extract.Depth == 0 {
		rule.Extract.Depth = 1
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	return rule, nil
}

// LoadRuleFile reads a YAML rule table from disk
func LoadRuleFile(path string) (*ConversionRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule file: %w", err)
	}
	defer f.Close()
	return LoadRule(f)
}

// SaveRule encodes a rule table as YAML
func SaveRule(w io.Writer, rule *ConversionRule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rule); err != nil {
		return fmt.Errorf("encoding rule: %w", err)
	}
	return enc.Close()
}
