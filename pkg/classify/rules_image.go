package classify

import "github.com/jpfielding/fairdata.go/pkg/dcm"

const (
	imagenet = "IMAGENET6V2_1"
	tritonIM = "TP_STO_IM6_100"
	eidonFA  = "Eidon FA"
)

func eidonFAImage(marker string) []Predicate {
	return []Predicate{ContainsFold(Filename, marker), Eq(Device, eidonFA)}
}

// export matches one object of a fo-dicom OCTA export by its file name suffix
func export(device, suffix string, extra ...Predicate) []Predicate {
	return append([]Predicate{
		Eq(Device, device),
		Eq(ImplementationVersion, foDicom),
		Prefix(Filename, exportStem),
		Suffix(Filename, suffix),
	}, extra...)
}

// octaExport names the nine objects of one OCTA export. A non-empty thickness
// pins the scan size on the objects that carry pixel measures.
func octaExport(prefix, device, thickness string, segmentationThickness bool) []Rule {
	var st, segst []Predicate
	if thickness != "" {
		st = []Predicate{Eq(SliceThickness, thickness)}
	}
	if segmentationThickness {
		segst = st
	}
	return []Rule{
		{Name: prefix + "_reference_Bscan", All: export(device, firstSeries, st...)},
		{Name: prefix + "_reference_CFP", All: export(device, ".2.1.dcm")},
		{Name: prefix + "_Segmentation", All: export(device, ".4.1.dcm", segst...)},
		{Name: prefix + "_volumeanalysis_unprocessed", All: export(device, ".3.1.dcm", st...)},
		{Name: prefix + "_volumeanalysis_for_presentation", All: export(device, ".5.1.dcm", st...)},
		{Name: prefix + "_enface_superficial", All: export(device, ".6.3.dcm")},
		{Name: prefix + "_enface_deep", All: export(device, ".6.4.dcm")},
		{Name: prefix + "_enface_choriocapillaris", All: export(device, ".6.5.dcm")},
		{Name: prefix + "_enface_outer_retina", All: export(device, ".6.80.dcm")},
	}
}

// ImageRules labels each image of an acquisition, reference images and OCTA
// derived objects included. Order is priority: the first matching rule wins.
func ImageRules() []Rule {
	var rules []Rule
	add := func(rs ...Rule) { rules = append(rules, rs...) }

	// optomed
	add(Rule{Name: "OptoMed_CFP_Disc_or_Mac_centered", All: []Predicate{Eq(Device, "Aurora")}})
	// eidon
	add(
		Rule{Name: "Eidom_UWF_Central_IR", All: eidonFAImage("0-infrared")},
		Rule{Name: "Eidom_UWF_Central_FAF", All: eidonFAImage("0-af")},
		Rule{Name: "Eidom_UWF_Central_CFP", All: eidonFAImage("0-visible")},
		Rule{Name: "Eidom_UWF_Nasal_CFP", All: eidonFAImage("3-visible")},
		Rule{Name: "Eidom_UWF_Temporal_CFP", All: eidonFAImage("4-visible")},
		Rule{Name: "Eidom_UWF_Mosaic_CFP", All: eidonFAImage("11-visible")},
	)
	// maestro
	add(
		Rule{Name: "Maestro2_3D_Wide_OCT", All: []Predicate{
			Eq(Device, maestro2),
			Eq(ImplementationVersion, imagenet),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Eq(SliceThickness, "0.07086614173"),
		}},
		Rule{Name: "Maestro2_3D_Macula_OCT", All: []Predicate{
			Eq(Device, maestro2),
			Eq(ImplementationVersion, imagenet),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Eq(SliceThickness, "0.04724409449"),
		}},
		Rule{Name: "Maestro2_OCT_reference_CFP", All: []Predicate{
			Eq(Device, maestro2),
			Eq(ImplementationVersion, imagenet),
			Eq(SOPClassUID, dcm.OphthalmicPhotography8BitUID),
		}},
	)
	add(octaExport("Maestro2_OCTA", maestro2, "", false)...)
	// triton
	add(
		Rule{Name: "Triton_3D(H)_Radial_OCT", All: []Predicate{
			Eq(ImplementationVersion, tritonIM),
			Eq(SOPClassUID, dcm.OphthalmicTomographyUID),
			Eq(Device, "Triton"),
		}},
		Rule{Name: "Triton_3D(H)_Radial_OCT_reference_CFP", All: []Predicate{
			Eq(ImplementationVersion, tritonIM),
			Eq(SOPClassUID, dcm.OphthalmicPhotography8BitUID),
			Eq(Device, "Triton"),
		}},
	)
	add(octaExport("Triton_Macula_6*6_OCTA", tritonPlus, "0.01875", true)...)
	add(octaExport("Triton_Macula_12*12_OCTA", tritonPlus, "0.0234375", false)...)
	// spectralis
	add(
		Rule{Name: "Spec_ONH_RC_HR_OCT", All: all(
			[]Predicate{Eq(Device, spectralis), Eq(FrameNumber, "27")},
			size("496", "768"),
			[]Predicate{Eq(SliceThickness, "")},
		)},
		Rule{Name: "Spec_ONH_RC_HR_OCT_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("1536", "1536"),
		)},
		Rule{Name: "Spec_PPole_Mac_HR_OCT", All: all(
			[]Predicate{Eq(Device, spectralis), Eq(FrameNumber, "61")},
			size("496", "768"),
			[]Predicate{Ne(SliceThickness, "")},
		)},
		Rule{Name: "Spec_PPole_Mac_HR_OCT_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("768", "768"),
			[]Predicate{Eq(PrivateTag, NotAvailable)},
		)},
		Rule{Name: "Spec-Mac-20x20-HS_OCTA_reference_Bscan", All: all(
			[]Predicate{Eq(Device, spectralis), Eq(FrameNumber, "512")},
			size("496", "512"),
		)},
		Rule{Name: "Spec-Mac-20x20-HS_OCTA_reference_IR", All: all(
			[]Predicate{Eq(Device, spectralis)},
			size("768", "768"),
			[]Predicate{Eq(PrivateTag, "Super Slim")},
		)},
	)
	return rules
}
