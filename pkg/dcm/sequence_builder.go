package dcm

import (
	"fmt"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

// Item is one sequence item under construction
type Item struct {
	Elements []*dicom.Element
}

// Option adds content to an Item
type Option func(*Item) error

// WithElement adds an element built from a Go value. An empty vrName uses the
// dictionary VR.
func WithElement(t tag.Tag, vrName string, value any) Option {
	return func(it *Item) error {
		el, err := NewElement(t, vrName, value)
		if err != nil {
			return err
		}
		it.Elements = append(it.Elements, el)
		return nil
	}
}

// WithEmpty adds a present but empty element
func WithEmpty(t tag.Tag, vrName string) Option {
	return func(it *Item) error {
		el, err := Empty(t, vrName)
		if err != nil {
			return err
		}
		it.Elements = append(it.Elements, el)
		return nil
	}
}

// WithElements adds already built elements
func WithElements(elems ...*dicom.Element) Option {
	return func(it *Item) error {
		it.Elements = append(it.Elements, elems...)
		return nil
	}
}

// WithSequence nests the sequence built by sb
func WithSequence(sb *SequenceBuilder) Option {
	return func(it *Item) error {
		el, err := sb.Build()
		if err != nil {
			return err
		}
		it.Elements = append(it.Elements, el)
		return nil
	}
}

// NewItem applies opts to an empty item and returns its elements sorted by tag
func NewItem(opts ...Option) ([]*dicom.Element, error) {
	it := &Item{}
	for _, opt := range opts {
		if err := opt(it); err != nil {
			return nil, err
		}
	}
	SortElements(it.Elements)
	return it.Elements, nil
}

// SequenceBuilder provides a fluent API for constructing sequences.
//
// The builder accumulates errors from AddItem() calls and returns them from
// Build(), so calls can be chained:
//
//	el, err := dcm.NewSequenceBuilder(tag.ReferencedImageSequence).
//		AddItem(
//			dcm.WithElement(tag.ReferencedSOPClassUID, "", sopClass),
//			dcm.WithElement(tag.ReferencedSOPInstanceUID, "", instance),
//		).
//		Build()
type SequenceBuilder struct {
	tag   tag.Tag
	items [][]*dicom.Element
	errs  []error
}

// NewSequenceBuilder creates a new sequence builder for the specified SQ tag
func NewSequenceBuilder(t tag.Tag) *SequenceBuilder {
	return &SequenceBuilder{
		tag:   t,
		items: make([][]*dicom.Element, 0),
		errs:  make([]error, 0),
	}
}

// AddItem adds a sequence item constructed from the given options
func (sb *SequenceBuilder) AddItem(opts ...Option) *SequenceBuilder {
	item, err := NewItem(opts...)
	if err != nil {
		sb.errs = append(sb.errs, fmt.Errorf("item %d: %w", len(sb.items), err))
		return sb
	}
	sb.items = append(sb.items, item)
	return sb
}

// AddElements adds an already built element list as a sequence item
func (sb *SequenceBuilder) AddElements(elems []*dicom.Element) *SequenceBuilder {
	if elems != nil {
		sb.items = append(sb.items, elems)
	}
	return sb
}

// Count returns the number of items currently in the sequence.
func (sb *SequenceBuilder) Count() int {
	return len(sb.items)
}

// HasErrors returns true if any errors were accumulated during building.
func (sb *SequenceBuilder) HasErrors() bool {
	return len(sb.errs) > 0
}

// Errors returns all accumulated errors.
func (sb *SequenceBuilder) Errors() []error {
	return sb.errs
}

// Build returns the SQ element. An empty builder yields an empty sequence.
func (sb *SequenceBuilder) Build() (*dicom.Element, error) {
	if len(sb.errs) > 0 {
		return nil, fmt.Errorf("sequence builder %s has %d error(s): %v", sb.tag, len(sb.errs), sb.errs)
	}
	items := make([][]*dicom.Element, len(sb.items))
	copy(items, sb.items)
	return NewElement(sb.tag, "SQ", items)
}
