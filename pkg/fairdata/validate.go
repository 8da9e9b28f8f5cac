package fairdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names a schema in the schema directory as <kind>.schema.json
type Kind string

const (
	DatasetDescription Kind = "dataset_description"
	StudyDescription   Kind = "study_description"
	Readme             Kind = "readme"
	Participants       Kind = "participants"
	DatatypeDictionary Kind = "datatype_dictionary"
)

// Kinds lists the known schema kinds
var Kinds = []Kind{DatasetDescription, StudyDescription, Readme, Participants, DatatypeDictionary}

// ValidationError is a document that does not satisfy its schema
type ValidationError struct {
	Kind     Kind
	Location string
	Message  string
	Cause    error
}

func (e *ValidationError) Error() string {
	loc := e.Location
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, loc, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

type compiled struct {
	schema *jsonschema.Schema
	raw    any
}

// Validator checks documents against the schemas in SchemaDir. Each schema
// is compiled on first use and kept.
type Validator struct {
	SchemaDir string

	mu      sync.Mutex
	schemas map[Kind]*compiled
}

// NewValidator reads schemas from dir
func NewValidator(dir string) *Validator {
	return &Validator{SchemaDir: dir, schemas: map[Kind]*compiled{}}
}

func (v *Validator) load(kind Kind) (*compiled, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.schemas == nil {
		v.schemas = map[Kind]*compiled{}
	}
	if c, ok := v.schemas[kind]; ok {
		return c, nil
	}

	path := filepath.Join(v.SchemaDir, string(kind)+".schema.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(path, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	schema, err := compiler.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	c := &compiled{schema: schema, raw: raw}
	v.schemas[kind] = c
	return c, nil
}

// Validate checks doc against the schema for kind. A failing document gives
// a *ValidationError whose message is the error_msg of the failing schema
// when it declares one.
func (v *Validator) Validate(kind Kind, doc any) error {
	c, err := v.load(kind)
	if err != nil {
		return err
	}
	instance, err := generic(doc)
	if err != nil {
		return err
	}
	err = c.schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validating %s: %w", kind, err)
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	msg := leaf.Message
	if custom, ok := errorMessage(c.raw, leaf.AbsoluteKeywordLocation); ok {
		msg = custom
	}
	return &ValidationError{Kind: kind, Location: leaf.InstanceLocation, Message: msg, Cause: err}
}

// Valid reports whether doc satisfies the schema for kind
func (v *Validator) Valid(kind Kind, doc any) bool {
	return v.Validate(kind, doc) == nil
}

// errorMessage finds the error_msg of the schema object holding the failing
// keyword at location, a URL with a JSON pointer fragment
func errorMessage(raw any, location string) (string, bool) {
	_, fragment, ok := strings.Cut(location, "#")
	if !ok {
		return "", false
	}
	tokens := strings.Split(strings.TrimPrefix(fragment, "/"), "/")
	if len(tokens) == 0 {
		return "", false
	}
	node := raw
	// the last token is the keyword itself
	for _, tok := range tokens[:len(tokens)-1] {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch n := node.(type) {
		case map[string]any:
			node = n[tok]
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(n) {
				return "", false
			}
			node = n[i]
		default:
			return "", false
		}
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := obj["error_msg"].(string)
	return msg, ok
}

// License is one entry of the SPDX style licenses file
type License struct {
	LicenseID   string `json:"licenseId"`
	Name        string `json:"name,omitempty"`
	DetailsURL  string `json:"detailsUrl,omitempty"`
	LicenseText string `json:"licenseText,omitempty"`
}

type licenseList struct {
	Licenses []License `json:"licenses"`
}

// LoadLicenses reads the licenses file at path
func LoadLicenses(path string) ([]License, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading licenses: %w", err)
	}
	var list licenseList
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return list.Licenses, nil
}

// FindLicense returns the entry for id
func FindLicense(licenses []License, id string) (License, bool) {
	for _, l := range licenses {
		if l.LicenseID != "" && l.LicenseID == id {
			return l, true
		}
	}
	return License{}, false
}

// ValidateLicense reports whether id is listed in the licenses file
func ValidateLicense(licensesPath, id string) (bool, error) {
	licenses, err := LoadLicenses(licensesPath)
	if err != nil {
		return false, err
	}
	_, ok := FindLicense(licenses, id)
	return ok, nil
}
