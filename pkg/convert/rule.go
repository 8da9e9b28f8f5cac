// Package convert rewrites vendor ophthalmic DICOM files into a harmonized,
// de-identified form driven by a declarative per-tag rule table.
package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

// ErrMissingRuleForTag is returned when a tag has no entry in the rule table
var ErrMissingRuleForTag = errors.New("missing rule for tag")

// Disposition decides what happens to one tag on output
type Disposition int

const (
	// Keep copies the source value, empty when the source lacks it
	Keep Disposition = iota
	// Blank writes the tag with an empty value
	Blank
	// Harmonize writes a fixed value regardless of the source
	Harmonize
)

func (d Disposition) String() string {
	switch d {
	case Keep:
		return "keep"
	case Blank:
		return "blank"
	case Harmonize:
		return "harmonize"
	default:
		return fmt.Sprintf("Disposition(%d)", int(d))
	}
}

// MarshalText renders the lower case name
func (d Disposition) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses keep, blank or harmonize
func (d *Disposition) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "keep":
		*d = Keep
	case "blank":
		*d = Blank
	case "harmonize":
		*d = Harmonize
	default:
		return fmt.Errorf("unknown disposition %q", string(b))
	}
	return nil
}

// TagElement is the rule for one tag
type TagElement struct {
	Name        string      `yaml:"name"`
	Tag         tag.Tag     `yaml:"tag"`
	VR          string      `yaml:"vr,omitempty"`
	Disposition Disposition `yaml:"disposition"`
	Harmonized  []string    `yaml:"harmonized,omitempty"`
}

// vr is the declared VR, else the dictionary VR, else UN
func (te TagElement) vr() string {
	if te.VR != "" {
		return te.VR
	}
	if v := te.Tag.DictVR(); v != "" {
		return v
	}
	return "UN"
}

// SequenceRule rebuilds one sequence. Each element list becomes one output item.
type SequenceRule struct {
	Name         string         `yaml:"name"`
	Tag          tag.Tag        `yaml:"tag"`
	VR           string         `yaml:"vr,omitempty"`
	ElementLists [][]TagElement `yaml:"element_lists,omitempty"`
}

// VendorPatch overwrites Set with To when the extracted value of When equals Equals
type VendorPatch struct {
	When   tag.Tag `yaml:"when"`
	Equals string  `yaml:"equals"`
	Set    tag.Tag `yaml:"set"`
	To     string  `yaml:"to"`
}

// ExtractOptions bound how far sequences are unpacked during extraction
type ExtractOptions struct {
	// Depth is the number of sequence levels unpacked, 1 by default
	Depth int `yaml:"depth"`
	// AllItems unpacks every item instead of only the first
	AllItems bool `yaml:"all_items"`
}

// ConversionRule is the full rule table for one acquisition type
type ConversionRule struct {
	Name             string         `yaml:"name"`
	Headers          []TagElement   `yaml:"headers"`
	Elements         []TagElement   `yaml:"elements"`
	Sequences        []SequenceRule `yaml:"sequences"`
	ExtraTags        []tag.Tag      `yaml:"extra_tags,omitempty"`
	Extract          ExtractOptions `yaml:"extract"`
	VendorPatches    []VendorPatch  `yaml:"vendor_patches,omitempty"`
	FunctionalGroups bool           `yaml:"functional_groups,omitempty"`
}

func uniqueTags(elems []TagElement) []tag.Tag {
	seen := map[tag.Tag]bool{}
	var out []tag.Tag
	for _, e := range elems {
		if !seen[e.Tag] {
			seen[e.Tag] = true
			out = append(out, e.Tag)
		}
	}
	return out
}

// HeaderTags are the file meta tags copied verbatim
func (r *ConversionRule) HeaderTags() []tag.Tag {
	return uniqueTags(r.Headers)
}

// Tags are the body tags, deduplicated in declaration order
func (r *ConversionRule) Tags() []tag.Tag {
	return uniqueTags(r.Elements)
}

// SequenceTags are the rebuilt sequence tags in declaration order
func (r *ConversionRule) SequenceTags() []tag.Tag {
	seen := map[tag.Tag]bool{}
	var out []tag.Tag
	for _, s := range r.Sequences {
		if !seen[s.Tag] {
			seen[s.Tag] = true
			out = append(out, s.Tag)
		}
	}
	return out
}

// ExtractTags is every tag the extraction pass must capture
func (r *ConversionRule) ExtractTags() []tag.Tag {
	seen := map[tag.Tag]bool{}
	var out []tag.Tag
	for _, group := range [][]tag.Tag{r.HeaderTags(), r.Tags(), r.SequenceTags(), r.ExtraTags} {
		for _, t := range group {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Lookup finds the body rule for t. Duplicate entries resolve to the last one.
func (r *ConversionRule) Lookup(t tag.Tag) (TagElement, error) {
	return lookup(r.Elements, t)
}

func lookup(elems []TagElement, t tag.Tag) (TagElement, error) {
	found := false
	var te TagElement
	for _, e := range elems {
		if e.Tag == t {
			te, found = e, true
		}
	}
	if !found {
		return TagElement{}, fmt.Errorf("%s: %w", t, ErrMissingRuleForTag)
	}
	return te, nil
}

// Sequence finds the sequence rule for t
func (r *ConversionRule) Sequence(t tag.Tag) (SequenceRule, error) {
	for _, s := range r.Sequences {
		if s.Tag == t {
			return s, nil
		}
	}
	return SequenceRule{}, fmt.Errorf("sequence %s: %w", t, ErrMissingRuleForTag)
}

// Validate checks that tags are unique per list, every tag has a VR and
// every harmonized entry carries a value
func (r *ConversionRule) Validate() error {
	var errs []error
	check := func(where string, elems []TagElement) {
		seen := map[tag.Tag]bool{}
		for _, e := range elems {
			if seen[e.Tag] {
				errs = append(errs, fmt.Errorf("%s: duplicate tag %s", where, e.Tag))
			}
			seen[e.Tag] = true
			if e.VR == "" && e.Tag.DictVR() == "" {
				errs = append(errs, fmt.Errorf("%s: tag %s has no VR", where, e.Tag))
			}
			if e.Disposition == Harmonize && len(e.Harmonized) == 0 {
				errs = append(errs, fmt.Errorf("%s: tag %s is harmonized without a value", where, e.Tag))
			}
		}
	}
	if r.Name == "" {
		errs = append(errs, errors.New("rule has no name"))
	}
	check("headers", r.Headers)
	check("elements", r.Elements)
	for _, s := range r.Sequences {
		for i, list := range s.ElementLists {
			check(fmt.Sprintf("sequence %s list %d", s.Name, i), list)
		}
	}
	return errors.Join(errs...)
}
