package classify

import "github.com/jpfielding/fairdata.go/pkg/dcm"

const (
	foDicom     = "fo-dicom 4.0.8"
	maestro2    = "3DOCT-1Maestro2"
	tritonPlus  = "Triton plus"
	spectralis  = "Spectralis"
	exportStem  = "2.16.840.1.114517.10.1.1.4."
	firstSeries = ".1.1.dcm"
)

func eidon(marker string) []Predicate {
	return []Predicate{ContainsFold(Filename, marker), Contains(Device, "Eidon")}
}

func size(rows, columns string) []Predicate {
	return []Predicate{Eq(Rows, rows), Eq(Columns, columns)}
}

func all(groups ...[]Predicate) []Predicate {
	var out []Predicate
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ProtocolRules labels the acquisition protocol of the study checklist.
// Order is priority: the first matching rule wins.
func ProtocolRules() []Rule {
	return []Rule{
		// optomed
		{Name: "OptoMed_CFP_Disc_or_Mac_centered", All: []Predicate{Eq(Device, "Aurora")}},
		// eidon
		{Name: "Eidon_UWF_Central_IR", All: eidon("0-infrared")},
		{Name: "Eidon_UWF_Central_FAF", All: eidon("0-af-")},
		{Name: "Eidon_UWF_Central_CFP", All: eidon("0-visible")},
		{Name: "Eidon_UWF_Nasal_CFP", All: eidon("3-visible")},
		{Name: "Eidon_UWF_Temporal_CFP", All: eidon("4-visible")},
		{Name: "Eidon_UWF_Mosaic_CFP", All: eidon("11-visible")},
		// maestro
		{Name: "Maestro2_3D_Wide_OCT", All: []Predicate{
			Eq(Device, maestro2),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Prefix(SliceThickness, "0.07"),
		}},
		{Name: "Maestro2_3D_Macula_OCT", All: []Predicate{
			Eq(Device, maestro2),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Prefix(SliceThickness, "0.04"),
		}},
		{Name: "Maestro2_Mac_6x6-360x360_OCTA", All: []Predicate{
			Eq(Device, maestro2),
			Eq(ImplementationVersion, foDicom),
			Prefix(SliceThickness, "0.01"),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Suffix(Filename, firstSeries),
		}},
		// triton
		{Name: "Triton_3D(H)_Radial_OCT", All: []Predicate{
			Eq(ImplementationVersion, foDicom),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Prefix(SliceThickness, "0.03"),
			Eq(Device, tritonPlus),
		}},
		{Name: "Triton_Macula_6*6_OCTA", All: []Predicate{
			Eq(Device, tritonPlus),
			Prefix(SliceThickness, "0.01"),
			Eq(ImplementationVersion, foDicom),
			Suffix(Filename, firstSeries),
		}},
		{Name: "Triton_Macula_12*12_OCTA", All: []Predicate{
			Eq(Device, tritonPlus),
			Prefix(SliceThickness, "0.02"),
			Eq(ImplementationVersion, foDicom),
			Suffix(Filename, firstSeries),
		}},
		// spectralis
		{Name: "Spec_ONH_RC_HR_OCT", All: all(
			[]Predicate{Eq(Device, spectralis), Between(FrameNumber, 26, 28)},
			size("496", "768"),
			[]Predicate{Eq(SliceThickness, "")},
		)},
		{Name: "Spec_ONH_RC_HR_OCT_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("1536", "1536"),
		)},
		{Name: "Spec_PPole_Mac_HR_OCT", All: all(
			[]Predicate{Eq(Device, spectralis), Between(FrameNumber, 60, 62)},
			size("496", "768"),
		)},
		{Name: "Spec_PPole_Mac_HR_OCT_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("768", "768"),
			[]Predicate{Eq(PrivateTag, NotAvailable), Eq(Gaze, "R-1022D")},
		)},
		{Name: "Spec-Mac-20x20-HS_OCTA_reference_Bscan", All: all(
			[]Predicate{Eq(Device, spectralis), Between(FrameNumber, 511, 513)},
			size("496", "512"),
		)},
		{Name: "Spec-Mac-20x20-HS_OCTA_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("768", "768"),
			[]Predicate{Eq(PrivateTag, "Super Slim")},
		)},
	}
}
