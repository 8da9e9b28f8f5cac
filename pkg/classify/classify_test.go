package classify

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/dcmtest"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

func attrs(kv ...string) Attributes {
	var a Attributes
	for i := 0; i+1 < len(kv); i += 2 {
		if err := a.Set(Field(kv[i]), Some(kv[i+1])); err != nil {
			panic(err)
		}
	}
	return a
}

func TestRuleTables(t *testing.T) {
	for name, rules := range map[string][]Rule{"protocol": ProtocolRules(), "image": ImageRules()} {
		t.Run(name, func(t *testing.T) {
			seen := map[string]bool{}
			for _, r := range rules {
				require.NoError(t, r.Validate())
				assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
				seen[r.Name] = true
			}
		})
	}
	assert.Len(t, ProtocolRules(), 19)
	assert.Len(t, ImageRules(), 45)
}

func TestProtocolRules(t *testing.T) {
	tests := []struct {
		name  string
		attrs Attributes
		want  string
	}{
		{"optomed", attrs("device", "Aurora"), "OptoMed_CFP_Disc_or_Mac_centered"},
		{"eidon infrared", attrs("device", "Eidon FA", "filename", "P1-0-Infrared.dcm"), "Eidon_UWF_Central_IR"},
		{"eidon mosaic", attrs("device", "Eidon AF", "filename", "P1-11-visible.dcm"), "Eidon_UWF_Mosaic_CFP"},
		{"maestro wide", attrs(
			"device", maestro2, "sop_class_uid", dcm.OphthalmicTomographyUID, "slice_thickness", "0.07086614173",
		), "Maestro2_3D_Wide_OCT"},
		{"maestro octa", attrs(
			"device", maestro2, "sop_class_uid", dcm.OphthalmicTomographyUID, "slice_thickness", "0.0117",
			"implementation_version", foDicom, "filename", "2.16.840.1.114517.10.1.1.4.9.1.1.dcm",
		), "Maestro2_Mac_6x6-360x360_OCTA"},
		{"triton radial", attrs(
			"device", tritonPlus, "sop_class_uid", dcm.OphthalmicTomographyUID, "slice_thickness", "0.0390625",
			"implementation_version", foDicom,
		), "Triton_3D(H)_Radial_OCT"},
		{"spectralis onh", attrs(
			"device", spectralis, "frame_number", "27", "rows", "496", "columns", "768", "slice_thickness", "",
		), "Spec_ONH_RC_HR_OCT"},
		{"spectralis ppole reference", attrs(
			"device", spectralis, "rows", "768", "columns", "768", "gaze", "R-1022D",
		), "Spec_PPole_Mac_HR_OCT_reference_IR"},
		{"spectralis octa reference", attrs(
			"device", spectralis, "rows", "768", "columns", "768", "private_tag", "Super Slim",
		), "Spec-Mac-20x20-HS_OCTA_reference_IR"},
		{"nothing", attrs("device", "Cirrus"), NoMatch},
	}
	m := NewMatcher(ProtocolRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.attrs))
		})
	}
}

func TestImageRules(t *testing.T) {
	export := func(device, thickness, suffix string) Attributes {
		return attrs("device", device, "implementation_version", foDicom, "slice_thickness", thickness,
			"filename", exportStem+"77"+suffix)
	}
	tests := []struct {
		name  string
		attrs Attributes
		want  string
	}{
		{"eidon faf", attrs("device", eidonFA, "filename", "x-0-AF.dcm"), "Eidom_UWF_Central_FAF"},
		{"maestro reference", attrs(
			"device", maestro2, "implementation_version", imagenet, "sop_class_uid", dcm.OphthalmicPhotography8BitUID,
		), "Maestro2_OCT_reference_CFP"},
		{"maestro enface", export(maestro2, "", ".6.80.dcm"), "Maestro2_OCTA_enface_outer_retina"},
		{"triton 6x6 bscan", export(tritonPlus, "0.01875", ".1.1.dcm"), "Triton_Macula_6*6_OCTA_reference_Bscan"},
		{"triton 12x12 bscan", export(tritonPlus, "0.0234375", ".1.1.dcm"), "Triton_Macula_12*12_OCTA_reference_Bscan"},
		{"triton 12x12 segmentation", export(tritonPlus, "", ".4.1.dcm"), "Triton_Macula_12*12_OCTA_Segmentation"},
		{"triton radial", attrs(
			"device", "Triton", "implementation_version", tritonIM, "sop_class_uid", dcm.OphthalmicTomographyUID,
		), "Triton_3D(H)_Radial_OCT"},
		{"spectralis ppole", attrs(
			"device", spectralis, "frame_number", "61", "rows", "496", "columns", "768", "slice_thickness", "0.2",
		), "Spec_PPole_Mac_HR_OCT"},
		{"spectralis octa bscan", attrs(
			"device", spectralis, "frame_number", "512", "rows", "496", "columns", "512",
		), "Spec-Mac-20x20-HS_OCTA_reference_Bscan"},
	}
	m := NewMatcher(ImageRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.attrs))
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	// both triton OCTA reference CFP rules carry the same predicates
	a := attrs("device", tritonPlus, "implementation_version", foDicom, "filename", exportStem+"5.2.1.dcm")

	rules := ImageRules()
	assert.Equal(t, "Triton_Macula_6*6_OCTA_reference_CFP", NewMatcher(rules).Match(a))

	reversed := slices.Clone(rules)
	slices.Reverse(reversed)
	assert.Equal(t, "Triton_Macula_12*12_OCTA_reference_CFP", NewMatcher(reversed).Match(a))
}

func TestMatchDeterministic(t *testing.T) {
	m := NewMatcher(ProtocolRules())
	a := attrs("device", spectralis, "rows", "1536", "columns", "1536")
	first := m.Match(a)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Match(a))
	}
	assert.Equal(t, NoMatch, m.Match(Attributes{}))
	assert.Equal(t, NoMatch, NewMatcher(nil).Match(a))
}

func TestPredicates(t *testing.T) {
	a := attrs("device", "Triton plus", "frame_number", "27", "slice_thickness", "")

	assert.True(t, Eq(PrivateTag, NotAvailable).Eval(a))
	assert.True(t, Predicate{Field: PrivateTag, Op: OpAbsent}.Eval(a))
	assert.False(t, Predicate{Field: Device, Op: OpAbsent}.Eval(a))
	assert.True(t, Predicate{Field: SliceThickness, Op: OpEmpty}.Eval(a))
	assert.False(t, Predicate{Field: PrivateTag, Op: OpEmpty}.Eval(a))
	assert.True(t, Eq(SliceThickness, "").Eval(a))
	assert.False(t, Eq(Rows, "").Eval(a))

	assert.True(t, Between(FrameNumber, 26, 28).Eval(a))
	assert.False(t, Between(FrameNumber, 60, 62).Eval(a))
	assert.False(t, Between(Rows, 0, 1000).Eval(a), "absent values are never in range")
	assert.False(t, Between(Device, 0, 1000).Eval(a))

	assert.True(t, ContainsFold(Device, "PLUS").Eval(a))
	assert.False(t, Contains(Device, "PLUS").Eval(a))
	assert.True(t, Prefix(Device, "Triton").Eval(a))
	assert.True(t, Suffix(Device, "plus").Eval(a))
	assert.True(t, Ne(Device, "Triton").Eval(a))
	assert.False(t, Predicate{Field: Device, Op: "like"}.Eval(a))
}

func TestAttrString(t *testing.T) {
	assert.Equal(t, "N/A", None().String())
	assert.Equal(t, "", Some("").String())
	_, ok := None().Int()
	assert.False(t, ok)
	i, ok := Some("61").Int()
	assert.True(t, ok)
	assert.Equal(t, 61, i)
	assert.Error(t, (&Attributes{}).Set("bogus", Some("x")))
	assert.Equal(t, None(), Attributes{}.Get("bogus"))
}

func octBody(t *testing.T, model, version, thickness string, frames int) []*dicom.Element {
	shared := dcmtest.Seq(t, tag.SharedFunctionalGroupsSequence, []*dicom.Element{
		dcmtest.Seq(t, tag.PixelMeasuresSequence, []*dicom.Element{
			dcmtest.El(t, tag.SliceThickness, "DS", thickness),
			dcmtest.El(t, tag.PixelSpacing, "DS", []string{"0.0039", "0.0117"}),
		}),
		dcmtest.Seq(t, tag.ReferencedImageSequence, []*dicom.Element{
			dcmtest.El(t, tag.ReferencedSOPInstanceUID, "", "1.2.826.0.1.3680043.8.498.9"),
		}),
	})
	return dcmtest.Ophthalmic(t,
		dcmtest.El(t, tag.SOPClassUID, "", dcm.OphthalmicTomographyUID),
		dcmtest.El(t, tag.ManufacturerModelName, "", model),
		dcmtest.El(t, tag.ImplementationVersionName, "", version),
		dcmtest.El(t, tag.NumberOfFrames, "IS", strconv.Itoa(frames)),
		dcmtest.El(t, tag.SoftwareVersions, "", "1.10"),
		shared,
	)
}

func TestExtractAttributesOCT(t *testing.T) {
	dir := t.TempDir()
	path := dcmtest.Write(t, dir, "oct.dcm", transfer.ExplicitVRLittleEndian,
		octBody(t, maestro2, imagenet, "0.07086614173", 128)...)

	a, err := ExtractAttributes(path)
	require.NoError(t, err)
	assert.Equal(t, "oct.dcm", a.Filename.String())
	assert.Equal(t, "1001", a.PatientID.String())
	assert.Equal(t, maestro2, a.Device.String())
	assert.Equal(t, imagenet, a.ImplementationVersion.String())
	assert.Equal(t, "0.07086614173", a.SliceThickness.String())
	assert.Equal(t, "128", a.FrameNumber.String())
	assert.Equal(t, "2", a.Rows.String())
	assert.Equal(t, "R", a.Laterality.String())
	assert.Equal(t, "1.2.826.0.1.3680043.8.498.9", a.ReferencedSOPInstance.String())
	assert.Equal(t, "1.10", a.SoftwareVersion.String())
	assert.Equal(t, "1", a.FileCount.String())
	assert.False(t, a.Gaze.IsSome())

	label, err := Classify(path, ImageRules())
	require.NoError(t, err)
	assert.Equal(t, "Maestro2_3D_Wide_OCT", label)
	label, err = Classify(path, ProtocolRules())
	require.NoError(t, err)
	assert.Equal(t, "Maestro2_3D_Wide_OCT", label)
}

func TestExtractAttributesOCTWithoutThickness(t *testing.T) {
	dir := t.TempDir()
	body := dcmtest.Ophthalmic(t,
		dcmtest.El(t, tag.SOPClassUID, "", dcm.OphthalmicTomographyUID),
		dcmtest.El(t, tag.ManufacturerModelName, "", spectralis),
	)
	path := dcmtest.Write(t, dir, "oct.dcm", transfer.ImplicitVRLittleEndian, body...)

	a, err := ExtractAttributes(path)
	require.NoError(t, err)
	v, ok := a.SliceThickness.Get()
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.False(t, a.FrameNumber.IsSome())
}

func TestExtractAttributesFundusGaze(t *testing.T) {
	dir := t.TempDir()
	body := dcmtest.Ophthalmic(t,
		dcmtest.El(t, tag.ManufacturerModelName, "", spectralis),
		dcmtest.El(t, tag.Rows, "", 768),
		dcmtest.El(t, tag.Columns, "", 768),
		dcmtest.Seq(t, tag.PatientEyeMovementCommandCodeSequence, []*dicom.Element{
			dcmtest.El(t, tag.CodeValue, "", "R-1022D"),
			dcmtest.El(t, tag.CodingSchemeDesignator, "", "SRT"),
		}),
	)
	path := dcmtest.Write(t, dir, "ir.dcm", transfer.ExplicitVRLittleEndian, body...)
	// a sibling file counts toward the file count
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	a, err := ExtractAttributes(path)
	require.NoError(t, err)
	assert.Equal(t, "R-1022D", a.Gaze.String())
	assert.Equal(t, NotAvailable, a.PrivateTag.String())
	assert.Equal(t, "2", a.FileCount.String())
	assert.Equal(t, "Spec_PPole_Mac_HR_OCT_reference_IR", NewMatcher(ProtocolRules()).Match(a))
}

func TestExtractAttributesUnknownClass(t *testing.T) {
	dir := t.TempDir()
	body := dcmtest.Ophthalmic(t, dcmtest.El(t, tag.SOPClassUID, "", "1.2.840.10008.5.1.4.1.1.7"))
	path := dcmtest.Write(t, dir, "sc.dcm", transfer.ExplicitVRLittleEndian, body...)

	a, err := ExtractAttributes(path)
	require.NoError(t, err)
	assert.Equal(t, "Unknown SOP Class UID: 1.2.840.10008.5.1.4.1.1.7", a.SOPInstanceUID.String())
	assert.False(t, a.Device.IsSome())
	assert.Equal(t, "1001", a.PatientID.String())
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	path := dcmtest.Write(t, dir, "cfp.dcm", transfer.ExplicitVRLittleEndian, dcmtest.Ophthalmic(t)...)

	s, err := Summarize(path)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Domain:     DomainDICOM,
		Modality:   "CFP/IR/FAF",
		PatientID:  "1001",
		Laterality: "R",
		Protocol:   "OptoMed_CFP_Disc_or_Mac_centered",
	}, s)

	d, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, "CFP/IR", d.Modality)
	assert.Equal(t, "Aurora", d.Device)
	assert.Equal(t, "OptoMed_CFP_Disc_or_Mac_centered", d.Description)
	assert.Empty(t, d.Protocol)
}

func TestSummarizeErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.dcm")
	require.NoError(t, os.WriteFile(junk, []byte("not a dicom file"), 0o644))

	s, err := Summarize(junk)
	require.NoError(t, err)
	assert.Equal(t, DomainNotDICOM, s.Domain)
	assert.Equal(t, NoMatch, s.Protocol)

	_, err = Summarize(filepath.Join(dir, "missing.dcm"))
	assert.ErrorIs(t, err, dcm.ErrFileNotFound)
	_, err = Classify(filepath.Join(dir, "missing.dcm"), ProtocolRules())
	assert.ErrorIs(t, err, dcm.ErrFileNotFound)
}

func TestModality(t *testing.T) {
	assert.Equal(t, "OCT B Scan", Modality(ProtocolModalities, dcm.OphthalmicTomographyUID))
	assert.Equal(t, "1.2.3", Modality(ImageModalities, "1.2.3"))
}

func TestRulesYAMLRoundTrip(t *testing.T) {
	for _, rules := range [][]Rule{ProtocolRules(), ImageRules()} {
		var buf bytes.Buffer
		require.NoError(t, SaveRules(&buf, rules))
		loaded, err := LoadRules(&buf)
		require.NoError(t, err)
		assert.Equal(t, rules, loaded)
	}
}

func TestLoadRulesRejects(t *testing.T) {
	tests := map[string]string{
		"empty":         "rules: []\n",
		"unknown field": "rules:\n  - name: x\n    all:\n      - {field: colour, op: eq, value: red}\n",
		"unknown op":    "rules:\n  - name: x\n    all:\n      - {field: device, op: like, value: A}\n",
		"no name":       "rules:\n  - all:\n      - {field: device, op: eq, value: A}\n",
		"bad range":     "rules:\n  - name: x\n    all:\n      - {field: rows, op: int_between, min: 5, max: 1}\n",
		"unknown key":   "rules:\n  - name: x\n    any: []\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRules(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestRulesByName(t *testing.T) {
	rules, err := RulesByName("image")
	require.NoError(t, err)
	assert.Len(t, rules, 45)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "rules:\n  - name: Cirrus\n    all:\n      - {field: device, op: prefix, value: Cirrus}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	rules, err = RulesByName(path)
	require.NoError(t, err)
	assert.Equal(t, "Cirrus", NewMatcher(rules).Match(attrs("device", "Cirrus 6000")))
}
