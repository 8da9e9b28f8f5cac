package dcm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	dtag "github.com/suyashkumar/dicom/pkg/tag"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/vr"
)

// NewElement builds an element from a Go value. An empty vrName falls back to
// the dictionary VR. Accepted values are the codec's value types plus the
// scalars string, int, float64 and a single item []*dicom.Element.
func NewElement(t tag.Tag, vrName string, value any) (*dicom.Element, error) {
	if vrName == "" {
		vrName = t.DictVR()
	}
	if vrName == "" {
		return nil, fmt.Errorf("%s: no VR known for tag", t)
	}
	var v dicom.Value
	switch val := value.(type) {
	case dicom.Value:
		v = val
	default:
		nv, err := dicom.NewValue(normalize(val))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		v = nv
	}
	el := &dicom.Element{
		Tag:                    t.Codec(),
		ValueRepresentation:    dtag.GetVRKind(t.Codec(), vrName),
		RawValueRepresentation: vrName,
		Value:                  v,
	}
	if v.ValueType() == dicom.Sequences {
		el.ValueLength = dtag.VLUndefinedLength
	}
	return el, nil
}

func normalize(value any) any {
	switch val := value.(type) {
	case string:
		return []string{val}
	case int:
		return []int{val}
	case float64:
		return []float64{val}
	case []*dicom.Element:
		return [][]*dicom.Element{val}
	case nil:
		return []string{}
	}
	return value
}

// Empty builds a present but empty element, shaped by how the VR decodes
func Empty(t tag.Tag, vrName string) (*dicom.Element, error) {
	if vrName == "" {
		vrName = t.DictVR()
	}
	var value any
	switch vr.VR(vrName).Kind() {
	case vr.KindSequence:
		value = [][]*dicom.Element{}
	case vr.KindInts:
		value = []int{}
	case vr.KindFloats:
		value = []float64{}
	case vr.KindBytes:
		value = []byte{}
	default:
		value = []string{}
	}
	return NewElement(t, vrName, value)
}

// Clone copies the element header and shares the value
func Clone(el *dicom.Element) *dicom.Element {
	c := *el
	return &c
}

// Find returns the first element with tag t
func Find(elems []*dicom.Element, t tag.Tag) (*dicom.Element, bool) {
	for _, el := range elems {
		if el.Tag.Group == t.Group && el.Tag.Element == t.Element {
			return el, true
		}
	}
	return nil, false
}

// FindPath descends through the first item of each sequence on the path
func FindPath(elems []*dicom.Element, path ...tag.Tag) (*dicom.Element, bool) {
	if len(path) == 0 {
		return nil, false
	}
	el, ok := Find(elems, path[0])
	if !ok || len(path) == 1 {
		return el, ok
	}
	items := Items(el)
	if len(items) == 0 {
		return nil, false
	}
	return FindPath(items[0], path[1:]...)
}

// VR is the raw VR of the element, the dictionary VR when the raw one is unset
func VR(el *dicom.Element) string {
	if el.RawValueRepresentation != "" {
		return el.RawValueRepresentation
	}
	return tag.FromCodec(el.Tag).DictVR()
}

// Strings renders the element value as strings. Numbers are rendered in their
// shortest decimal form and sequences render as nil.
func Strings(el *dicom.Element) []string {
	if el == nil || el.Value == nil {
		return nil
	}
	switch el.Value.ValueType() {
	case dicom.Strings:
		return el.Value.GetValue().([]string)
	case dicom.Ints:
		ints := el.Value.GetValue().([]int)
		out := make([]string, 0, len(ints))
		for _, i := range ints {
			out = append(out, strconv.Itoa(i))
		}
		return out
	case dicom.Floats:
		floats := el.Value.GetValue().([]float64)
		out := make([]string, 0, len(floats))
		for _, f := range floats {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
		return out
	case dicom.Bytes:
		b := el.Value.GetValue().([]byte)
		if len(b) == 0 {
			return nil
		}
		return []string{strings.TrimRight(string(b), "\x00 ")}
	}
	return nil
}

// First returns the first string value of tag t, trimmed of DICOM padding
func First(elems []*dicom.Element, t tag.Tag) (string, bool) {
	el, ok := Find(elems, t)
	if !ok {
		return "", false
	}
	vals := Strings(el)
	if len(vals) == 0 {
		return "", true
	}
	return strings.TrimRight(vals[0], "\x00 "), true
}

// Joined returns all string values of tag t joined with the DICOM separator
func Joined(elems []*dicom.Element, t tag.Tag) (string, bool) {
	el, ok := Find(elems, t)
	if !ok {
		return "", false
	}
	return strings.Join(Strings(el), `\`), true
}

// Items returns the element lists of a sequence, nil for non-sequences
func Items(el *dicom.Element) [][]*dicom.Element {
	if el == nil || el.Value == nil || el.Value.ValueType() != dicom.Sequences {
		return nil
	}
	seq := el.Value.GetValue().([]*dicom.SequenceItemValue)
	out := make([][]*dicom.Element, 0, len(seq))
	for _, item := range seq {
		out = append(out, item.GetValue().([]*dicom.Element))
	}
	return out
}

// PersonName trims the padding and empty trailing components of a PN value
func PersonName(raw string) string {
	name := strings.TrimRight(raw, "\x00 ")
	return strings.TrimRight(name, "^=")
}
