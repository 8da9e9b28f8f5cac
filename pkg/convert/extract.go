package convert

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	dtag "github.com/suyashkumar/dicom/pkg/tag"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

// Entry is one extracted element. Items holds the unpacked sequence items,
// nil for leaves and for sequences past the depth cap.
type Entry struct {
	Tag   tag.Tag
	Name  string
	VR    string
	Value dicom.Value
	Items []Entries
}

// Empty reports whether the entry carries no value
func (e *Entry) Empty() bool {
	if e.Items != nil {
		return len(e.Items) == 0
	}
	if e.Value == nil {
		return true
	}
	if e.Value.ValueType() == dicom.Sequences {
		return len(e.Value.GetValue().([]*dicom.SequenceItemValue)) == 0
	}
	return len(dcm.Strings(e.Element())) == 0
}

// Element rebuilds a codec element carrying the extracted value verbatim
func (e *Entry) Element() *dicom.Element {
	el := &dicom.Element{
		Tag:                    e.Tag.Codec(),
		ValueRepresentation:    dtag.GetVRKind(e.Tag.Codec(), e.VR),
		RawValueRepresentation: e.VR,
		Value:                  e.Value,
	}
	if e.Value != nil && e.Value.ValueType() == dicom.Sequences {
		el.ValueLength = dtag.VLUndefinedLength
	}
	return el
}

// Entries maps tags to extracted entries
type Entries map[tag.Tag]*Entry

// Get walks path through the first item of each unpacked sequence
func (es Entries) Get(path ...tag.Tag) (*Entry, bool) {
	if len(path) == 0 {
		return nil, false
	}
	e, ok := es[path[0]]
	if !ok || len(path) == 1 {
		return e, ok
	}
	if len(e.Items) == 0 {
		return nil, false
	}
	return e.Items[0].Get(path[1:]...)
}

// Extraction is everything the rewrite pass needs from a source file
type Extraction struct {
	Path      string
	Entries   Entries
	Flags     transfer.Flags
	PixelData *dicom.Element
}

// override replaces the generic element for a tag with a typed read from the file
type override func(f *dcm.File) (*dicom.Element, bool)

func fromMeta(t tag.Tag) override {
	return func(f *dcm.File) (*dicom.Element, bool) {
		return dcm.Find(f.Meta, t)
	}
}

func personName(t tag.Tag) override {
	return func(f *dcm.File) (*dicom.Element, bool) {
		raw, ok := dcm.First(f.Dataset.Elements, t)
		if !ok {
			return nil, false
		}
		el, err := dcm.NewElement(t, "PN", dcm.PersonName(raw))
		if err != nil {
			return nil, false
		}
		return el, true
	}
}

// Overrides are the tags not read through the generic element walk
var Overrides = map[tag.Tag]override{
	tag.FileMetaInformationGroupLength: fromMeta(tag.FileMetaInformationGroupLength),
	tag.FileMetaInformationVersion:     fromMeta(tag.FileMetaInformationVersion),
	tag.MediaStorageSOPClassUID:        fromMeta(tag.MediaStorageSOPClassUID),
	tag.MediaStorageSOPInstanceUID:     fromMeta(tag.MediaStorageSOPInstanceUID),
	tag.TransferSyntaxUID:              fromMeta(tag.TransferSyntaxUID),
	tag.ImplementationClassUID:         fromMeta(tag.ImplementationClassUID),
	tag.ImplementationVersionName:      fromMeta(tag.ImplementationVersionName),
	tag.PatientName:                    personName(tag.PatientName),
	tag.ReferringPhysicianName:         personName(tag.ReferringPhysicianName),
}

// Extract reads path and captures every tag the rule needs
func Extract(path string, rule *ConversionRule) (*Extraction, error) {
	f, err := dcm.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return ExtractFile(f, rule), nil
}

// ExtractFile captures the rule's tags from an already parsed file
func ExtractFile(f *dcm.File, rule *ConversionRule) *Extraction {
	merged := map[tag.Tag]*dicom.Element{}
	for _, el := range f.Elements() {
		merged[tag.FromCodec(el.Tag)] = el
	}
	for t, fn := range Overrides {
		if el, ok := fn(f); ok {
			merged[t] = el
		}
	}

	depth := rule.Extract.Depth
	if depth <= 0 {
		depth = 1
	}
	ext := &Extraction{Path: f.Path, Entries: Entries{}, Flags: f.Flags}
	for _, t := range rule.ExtractTags() {
		if el, ok := merged[t]; ok {
			ext.Entries[t] = newEntry(el, depth, rule.Extract.AllItems)
		}
	}
	if px, ok := merged[tag.PixelData]; ok {
		ext.PixelData = px
	}
	return ext
}

func newEntry(el *dicom.Element, depth int, allItems bool) *Entry {
	t := tag.FromCodec(el.Tag)
	e := &Entry{Tag: t, Name: t.Keyword(), VR: dcm.VR(el), Value: el.Value}
	items := dcm.Items(el)
	if len(items) == 0 || depth <= 0 {
		return e
	}
	if !allItems {
		items = items[:1]
	}
	e.Items = make([]Entries, 0, len(items))
	for _, item := range items {
		sub := Entries{}
		for _, child := range item {
			sub[tag.FromCodec(child.Tag)] = newEntry(child, depth-1, allItems)
		}
		e.Items = append(e.Items, sub)
	}
	return e
}
