package fairdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Generator writes metadata files. With a nil Validator documents are
// written unchecked.
type Generator struct {
	Validator *Validator
}

// NewGenerator checks documents with v before writing them
func NewGenerator(v *Validator) *Generator {
	return &Generator{Validator: v}
}

func (g *Generator) validate(kind Kind, doc any) error {
	if g.Validator == nil {
		return nil
	}
	if err := g.Validator.Validate(kind, doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func writeDocument(path string, ft FileType, root string, doc any) error {
	var (
		b   []byte
		err error
	)
	switch ft {
	case XML:
		b, err = MarshalXML(root, doc)
	default:
		b, err = json.MarshalIndent(doc, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", root, err)
	}
	if ft == JSON {
		b = append(b, '\n')
	}
	return writeFile(path, b)
}

// metadata relations keep their scheme fields
var metadataRelations = map[string]bool{"HasMetadata": true, "IsMetadataFor": true}

// GenerateDatasetDescription writes doc as JSON or XML. Related identifiers
// that do not describe metadata lose their scheme fields.
func (g *Generator) GenerateDatasetDescription(doc any, path string, ft FileType) error {
	if err := checkFileType(ft, JSON, XML); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	if err := g.validate(DatasetDescription, doc); err != nil {
		return err
	}
	obj, err := genericObject(doc)
	if err != nil {
		return err
	}
	related, _ := obj["relatedIdentifier"].([]any)
	for _, r := range related {
		id, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if rt, _ := id["relationType"].(string); !metadataRelations[rt] {
			delete(id, "relatedMetadataScheme")
			delete(id, "schemeURI")
			delete(id, "schemeType")
		}
	}
	return writeDocument(path, ft, string(DatasetDescription), obj)
}

var studyPrune = map[string]map[string][]string{
	"Interventional": {
		"designModule":      {"targetDuration", "numberGroupsCohorts", "bioSpec"},
		"eligibilityModule": {"studyPopulation", "samplingMethod"},
	},
	"Observational": {
		"designModule": {"phaseList", "numberArms", "isPatientRegistry"},
	},
}

// GenerateStudyDescription writes doc as JSON or XML without the fields
// that do not apply to its study type.
func (g *Generator) GenerateStudyDescription(doc any, path string, ft FileType) error {
	if err := checkFileType(ft, JSON, XML); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	if err := g.validate(StudyDescription, doc); err != nil {
		return err
	}
	obj, err := genericObject(doc)
	if err != nil {
		return err
	}
	design, _ := obj["designModule"].(map[string]any)
	studyType, _ := design["studyType"].(string)
	for module, fields := range studyPrune[studyType] {
		m, ok := obj[module].(map[string]any)
		if !ok {
			continue
		}
		for _, f := range fields {
			delete(m, f)
		}
	}
	return writeDocument(path, ft, string(StudyDescription), obj)
}

// ReadmeFields are the readme keys in template order
var ReadmeFields = []string{
	"Title", "Identifier", "Version", "PublicationDate", "About", "DatasetDescription",
	"DatasetAccess", "StandardsFollowed", "Resources", "License", "HowToCite", "Acknowledgement",
}

var readmeTemplate = template.Must(template.New("readme").Parse(`# {{.Title}}

## Identifier

{{.Identifier}}

## Version

{{.Version}}

## Publication Date

{{.PublicationDate}}

## About

{{.About}}

## Dataset Description

{{.DatasetDescription}}

## Dataset Access

{{.DatasetAccess}}

## Standards Followed

{{.StandardsFollowed}}

## Resources

{{.Resources}}

## License

{{.License}}

## How to Cite

{{.HowToCite}}

## Acknowledgement

{{.Acknowledgement}}
`))

// readmeValues flattens doc to one string per template field. Missing and
// null fields are empty, non-string values are JSON encoded.
func readmeValues(doc map[string]any) (map[string]string, error) {
	values := make(map[string]string, len(ReadmeFields))
	for _, f := range ReadmeFields {
		switch v := doc[f].(type) {
		case nil:
			values[f] = ""
		case string:
			values[f] = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", f, err)
			}
			values[f] = string(b)
		}
	}
	return values, nil
}

// GenerateReadme renders doc through the readme template
func (g *Generator) GenerateReadme(doc any, path string, ft FileType) error {
	if err := checkFileType(ft, TXT, MD); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	if err := g.validate(Readme, doc); err != nil {
		return err
	}
	obj, err := genericObject(doc)
	if err != nil {
		return err
	}
	values, err := readmeValues(obj)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := readmeTemplate.Execute(&buf, values); err != nil {
		return fmt.Errorf("rendering readme: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// GenerateChangelog writes text as is
func (g *Generator) GenerateChangelog(text, path string, ft FileType) error {
	if err := checkFileType(ft, TXT, MD); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	return writeFile(path, []byte(text))
}

// GenerateLicense writes text, or when text is empty the licenseText of
// identifier in the licenses file
func (g *Generator) GenerateLicense(path string, ft FileType, identifier, text, licensesPath string) error {
	if identifier == "" && text == "" {
		return fmt.Errorf("identifier or text required: %w", ErrInvalidInput)
	}
	if err := checkPath(path); err != nil {
		return err
	}
	if err := checkFileType(ft, TXT, MD); err != nil {
		return err
	}
	if text != "" {
		return writeFile(path, []byte(text))
	}
	licenses, err := LoadLicenses(licensesPath)
	if err != nil {
		return err
	}
	l, ok := FindLicense(licenses, identifier)
	if !ok {
		return fmt.Errorf("unknown license %q: %w", identifier, ErrInvalidInput)
	}
	if l.LicenseText == "" {
		return fmt.Errorf("%s: %w", identifier, ErrLicenseText)
	}
	return writeFile(path, []byte(l.LicenseText))
}

// Datatype is one entry of the datatype dictionary. Field order is the
// output key order.
type Datatype struct {
	CodeName            string   `yaml:"code_name,omitempty" json:"code_name,omitempty"`
	DatatypeDescription string   `yaml:"datatype_description,omitempty" json:"datatype_description,omitempty"`
	Aliases             []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	RelatedTerms        []string `yaml:"related_terms,omitempty" json:"related_terms,omitempty"`
	RelatedStandards    []string `yaml:"related_standards,omitempty" json:"related_standards,omitempty"`
}

// Matches reports whether code names d or one of its aliases
func (d Datatype) Matches(code string) bool {
	if code == d.CodeName {
		return true
	}
	for _, a := range d.Aliases {
		if code == a {
			return true
		}
	}
	return false
}

// Dictionary is the datatype dictionary document
type Dictionary struct {
	Datatypes []Datatype `yaml:"datatype_dictionary" json:"datatype_dictionary"`
}

// LoadDictionary reads a datatype dictionary YAML file
func LoadDictionary(path string) (*Dictionary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	var d Dictionary
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &d, nil
}

// Select returns the entries matching codes, in code order. A code matching
// several entries yields each of them.
func (d *Dictionary) Select(codes []string) []Datatype {
	var out []Datatype
	for _, code := range codes {
		for _, dt := range d.Datatypes {
			if dt.Matches(code) {
				out = append(out, dt)
			}
		}
	}
	return out
}

// GenerateDatatypeDictionary writes the dictionary entries for codes, read
// from the dictionary at dictionaryPath, as YAML
func (g *Generator) GenerateDatatypeDictionary(codes []string, path string, ft FileType, dictionaryPath string) error {
	if err := checkFileType(ft, YAML); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	if err := g.validate(DatatypeDictionary, codes); err != nil {
		return err
	}
	dict, err := LoadDictionary(dictionaryPath)
	if err != nil {
		return err
	}
	out := Dictionary{Datatypes: dict.Select(codes)}
	if out.Datatypes == nil {
		out.Datatypes = []Datatype{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding dictionary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}
