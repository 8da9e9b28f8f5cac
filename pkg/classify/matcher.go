package classify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NoMatch is the label when no rule applies
const NoMatch = "No rules apply."

// Matcher evaluates rules in declaration order
type Matcher struct {
	Rules []Rule
}

// NewMatcher wraps an ordered rule list
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{Rules: rules}
}

// Find returns the first rule whose predicates all hold
func (m *Matcher) Find(a Attributes) (Rule, bool) {
	for _, r := range m.Rules {
		if r.Matches(a) {
			return r, true
		}
	}
	return Rule{}, false
}

// Match returns the name of the first matching rule, or NoMatch
func (m *Matcher) Match(a Attributes) string {
	if r, ok := m.Find(a); ok {
		return r.Name
	}
	return NoMatch
}

// Classify labels the file at path
func Classify(path string, rules []Rule) (string, error) {
	a, err := ExtractAttributes(path)
	if err != nil {
		return "", err
	}
	return NewMatcher(rules).Match(a), nil
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from YAML:
//
//	rules:
//	  - name: OptoMed_CFP_Disc_or_Mac_centered
//	    all:
//	      - {field: device, op: eq, value: Aurora}
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var rf ruleFile
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, errors.New("rule file has no rules")
	}
	var errs []error
	for _, rule := range rf.Rules {
		if err := rule.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rf.Rules, nil
}

// LoadRulesFile reads a YAML rule list from path
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	rules, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// SaveRules writes rules in the LoadRules format
func SaveRules(w io.Writer, rules []Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: rules}); err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	return enc.Close()
}

// RulesByName resolves the builtin tables, or a YAML file for any other name
func RulesByName(name string) ([]Rule, error) {
	switch strings.ToLower(name) {
	case "protocol", "":
		return ProtocolRules(), nil
	case "image":
		return ImageRules(), nil
	}
	return LoadRulesFile(name)
}
