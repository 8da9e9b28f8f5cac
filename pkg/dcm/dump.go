package dcm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

// Dump writes one line per element, nesting sequence items by indentation.
// Elements are written in tag order.
func Dump(w io.Writer, elems []*dicom.Element) error {
	return dump(w, elems, 0)
}

func dump(w io.Writer, elems []*dicom.Element, depth int) error {
	sorted := append([]*dicom.Element(nil), elems...)
	SortElements(sorted)
	indent := strings.Repeat("  ", depth)
	for _, el := range sorted {
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, elementString(el)); err != nil {
			return err
		}
		for i, item := range Items(el) {
			if _, err := fmt.Fprintf(w, "%s  > item %d\n", indent, i); err != nil {
				return err
			}
			if err := dump(w, item, depth+2); err != nil {
				return err
			}
		}
	}
	return nil
}

func elementString(el *dicom.Element) string {
	t := tag.FromCodec(el.Tag)
	name := t.Keyword()
	if name != "" {
		name = " " + name
	}
	return fmt.Sprintf("[%s] %s%s: %s", t, VR(el), name, valueString(el))
}

func valueString(el *dicom.Element) string {
	if el.Value == nil {
		return "<nil>"
	}
	switch el.Value.ValueType() {
	case dicom.PixelData:
		info := el.Value.GetValue().(dicom.PixelDataInfo)
		if info.IntentionallyUnprocessed {
			return fmt.Sprintf("Pixel Data (%d bytes)", len(info.UnprocessedValueData))
		}
		return fmt.Sprintf("Pixel Data (%d frames)", len(info.Frames))
	case dicom.Sequences:
		return fmt.Sprintf("Sequence (%d items)", len(Items(el)))
	case dicom.Bytes:
		b := el.Value.GetValue().([]byte)
		if len(b) > 20 {
			return fmt.Sprintf("Binary Data (%d bytes)", len(b))
		}
		return fmt.Sprintf("%v", b)
	}
	vals := Strings(el)
	if len(vals) > 10 {
		return fmt.Sprintf("Array of %d values", len(vals))
	}
	return fmt.Sprintf("%v", vals)
}

type jsonElement struct {
	Tag   string           `json:"tag"`
	Name  string           `json:"name,omitempty"`
	VR    string           `json:"vr"`
	Value any              `json:"value,omitempty"`
	Items [][]*jsonElement `json:"items,omitempty"`
}

func toJSON(elems []*dicom.Element) []*jsonElement {
	sorted := append([]*dicom.Element(nil), elems...)
	SortElements(sorted)
	out := make([]*jsonElement, 0, len(sorted))
	for _, el := range sorted {
		t := tag.FromCodec(el.Tag)
		je := &jsonElement{Tag: t.String(), Name: t.Keyword(), VR: VR(el)}
		if items := Items(el); items != nil {
			for _, item := range items {
				je.Items = append(je.Items, toJSON(item))
			}
		} else {
			je.Value = valueString(el)
			if vals := Strings(el); vals != nil && el.Value.ValueType() != dicom.Bytes {
				je.Value = vals
			}
		}
		out = append(out, je)
	}
	return out
}

// DumpJSON writes the elements as an indented JSON array in tag order
func DumpJSON(w io.Writer, elems []*dicom.Element) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(elems))
}
