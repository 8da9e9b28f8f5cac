package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/vr"
)

// Rewrite builds the output meta and body for ext under rule
func Rewrite(rule *ConversionRule, ext *Extraction) (meta, body []*dicom.Element, err error) {
	for _, t := range rule.HeaderTags() {
		if e, ok := ext.Entries[t]; ok {
			meta = append(meta, e.Element())
		}
	}

	out := map[tag.Tag]*dicom.Element{}
	for _, t := range rule.Tags() {
		te, err := rule.Lookup(t)
		if err != nil {
			return nil, nil, err
		}
		el, err := resolve(te, ext.Entries)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", te.Name, t, err)
		}
		out[t] = el
	}

	if ext.PixelData != nil {
		out[tag.PixelData] = ext.PixelData
	}

	for _, p := range rule.VendorPatches {
		el, ok, err := applyPatch(p, ext.Entries)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[p.Set] = el
		}
	}

	synthesized := false
	for _, t := range rule.SequenceTags() {
		sr, err := rule.Sequence(t)
		if err != nil {
			return nil, nil, err
		}
		e, present := ext.Entries[t]
		el, err := rebuildSequence(sr, e, present)
		if err != nil {
			return nil, nil, fmt.Errorf("sequence %s: %w", sr.Name, err)
		}
		out[t] = el
		if !present && rule.FunctionalGroups && !synthesized {
			groups, err := functionalGroups(ext.Entries)
			if err != nil {
				return nil, nil, fmt.Errorf("functional groups: %w", err)
			}
			for _, g := range groups {
				out[tag.FromCodec(g.Tag)] = g
			}
			synthesized = true
		}
	}

	body = make([]*dicom.Element, 0, len(out))
	for _, el := range out {
		body = append(body, el)
	}
	dcm.SortElements(body)
	return meta, body, nil
}

// resolve applies one disposition against the entries of a dataset or item
func resolve(te TagElement, entries Entries) (*dicom.Element, error) {
	switch te.Disposition {
	case Blank:
		return dcm.Empty(te.Tag, te.vr())
	case Harmonize:
		return harmonized(te)
	}
	if e, ok := entries[te.Tag]; ok {
		return e.Element(), nil
	}
	return dcm.Empty(te.Tag, te.vr())
}

// harmonized converts the constant strings into the value shape of the VR
func harmonized(te TagElement) (*dicom.Element, error) {
	vrName := te.vr()
	switch vr.VR(vrName).Kind() {
	case vr.KindInts:
		ints := make([]int, 0, len(te.Harmonized))
		for _, s := range te.Harmonized {
			i, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("harmonized value %q: %w", s, err)
			}
			ints = append(ints, i)
		}
		return dcm.NewElement(te.Tag, vrName, ints)
	case vr.KindFloats:
		floats := make([]float64, 0, len(te.Harmonized))
		for _, s := range te.Harmonized {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("harmonized value %q: %w", s, err)
			}
			floats = append(floats, f)
		}
		return dcm.NewElement(te.Tag, vrName, floats)
	case vr.KindBytes:
		return dcm.NewElement(te.Tag, vrName, []byte(strings.Join(te.Harmonized, `\`)))
	case vr.KindSequence:
		return nil, fmt.Errorf("%s: sequences cannot be harmonized", te.Tag)
	}
	return dcm.NewElement(te.Tag, vrName, append([]string(nil), te.Harmonized...))
}

func applyPatch(p VendorPatch, entries Entries) (*dicom.Element, bool, error) {
	e, ok := entries[p.When]
	if !ok {
		return nil, false, nil
	}
	vals := dcm.Strings(e.Element())
	if len(vals) == 0 || strings.TrimRight(vals[0], "\x00 ") != p.Equals {
		return nil, false, nil
	}
	el, err := dcm.NewElement(p.Set, "", p.To)
	if err != nil {
		return nil, false, fmt.Errorf("vendor patch %s: %w", p.Set, err)
	}
	return el, true, nil
}

// rebuildSequence emits one item per element list, each resolved against the
// first source item. Absent or empty sources give an empty sequence.
func rebuildSequence(sr SequenceRule, e *Entry, present bool) (*dicom.Element, error) {
	sb := dcm.NewSequenceBuilder(sr.Tag)
	if present && len(e.Items) > 0 {
		first := e.Items[0]
		for _, list := range sr.ElementLists {
			opts := make([]dcm.Option, 0, len(list))
			for _, te := range list {
				el, err := resolve(te, first)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", te.Name, err)
				}
				opts = append(opts, dcm.WithElements(el))
			}
			sb.AddItem(opts...)
		}
	}
	return sb.Build()
}
