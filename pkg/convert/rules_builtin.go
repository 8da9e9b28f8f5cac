package convert

import (
	"fmt"
	"sort"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

func keep(name string, t tag.Tag, vr string) TagElement {
	return TagElement{Name: name, Tag: t, VR: vr, Disposition: Keep}
}

func blank(name string, t tag.Tag, vr string) TagElement {
	return TagElement{Name: name, Tag: t, VR: vr, Disposition: Blank}
}

func harmonize(name string, t tag.Tag, vr string, values ...string) TagElement {
	return TagElement{Name: name, Tag: t, VR: vr, Disposition: Harmonize, Harmonized: values}
}

func fileMetaHeaders() []TagElement {
	return []TagElement{
		keep("FileMetaInformationGroupLength", tag.FileMetaInformationGroupLength, "UL"),
		keep("FileMetaInformationVersion", tag.FileMetaInformationVersion, "OB"),
		keep("MediaStorageSOPClassUID", tag.MediaStorageSOPClassUID, "UI"),
		keep("MediaStorageSOPInstanceUID", tag.MediaStorageSOPInstanceUID, "UI"),
		keep("TransferSyntaxUID", tag.TransferSyntaxUID, "UI"),
		keep("ImplementationClassUID", tag.ImplementationClassUID, "UI"),
		keep("ImplementationVersionName", tag.ImplementationVersionName, "SH"),
	}
}

func codeMacro() []TagElement {
	return []TagElement{
		keep("CodeValue", tag.CodeValue, "SH"),
		keep("CodingSchemeDesignator", tag.CodingSchemeDesignator, "SH"),
		keep("CodeMeaning", tag.CodeMeaning, "LO"),
	}
}

func retinaRegion() []TagElement {
	return []TagElement{
		harmonize("CodeValue", tag.CodeValue, "SH", "T-AA610"),
		harmonize("CodingSchemeDesignator", tag.CodingSchemeDesignator, "SH", "SRT"),
		harmonize("CodeMeaning", tag.CodeMeaning, "LO", "Retina"),
	}
}

// tritonVendor corrects the manufacturer Triton devices report
func tritonVendor() VendorPatch {
	return VendorPatch{When: tag.ManufacturerModelName, Equals: "Triton", Set: tag.Manufacturer, To: "Topcon"}
}

// CFPIR is the rule for color fundus and infrared photography
func CFPIR() *ConversionRule {
	return &ConversionRule{
		Name:    "CFP IR",
		Headers: fileMetaHeaders(),
		Elements: []TagElement{
			blank("PatientName", tag.PatientName, "PN"),
			keep("PatientID", tag.PatientID, "LO"),
			blank("PatientBirthDate", tag.PatientBirthDate, "DA"),
			blank("PatientSex", tag.PatientSex, "CS"),
			keep("StudyInstanceUID", tag.StudyInstanceUID, "UI"),
			keep("StudyDate", tag.StudyDate, "DA"),
			keep("StudyTime", tag.StudyTime, "TM"),
			blank("ReferringPhysicianName", tag.ReferringPhysicianName, "PN"),
			blank("StudyID", tag.StudyID, "SH"),
			blank("AccessionNumber", tag.AccessionNumber, "SH"),
			harmonize("StudyDescription", tag.StudyDescription, "LO", "CFP/IR"),
			keep("Modality", tag.Modality, "CS"),
			keep("SeriesInstanceUID", tag.SeriesInstanceUID, "UI"),
			keep("SeriesNumber", tag.SeriesNumber, "IS"),
			keep("SynchronizationFrameOfReferenceUID", tag.SynchronizationFrameOfReferenceUID, "UI"),
			keep("SynchronizationTrigger", tag.SynchronizationTrigger, "CS"),
			keep("AcquisitionTimeSynchronized", tag.AcquisitionTimeSynchronized, "CS"),
			keep("Manufacturer", tag.Manufacturer, "LO"),
			keep("ManufacturerModelName", tag.ManufacturerModelName, "LO"),
			keep("DeviceSerialNumber", tag.DeviceSerialNumber, "LO"),
			keep("SoftwareVersions", tag.SoftwareVersions, "LO"),
			keep("InstanceNumber", tag.InstanceNumber, "IS"),
			keep("PatientOrientation", tag.PatientOrientation, "CS"),
			keep("BurnedInAnnotation", tag.BurnedInAnnotation, "CS"),
			keep("PatientEyeMovementCommanded", tag.PatientEyeMovementCommanded, "CS"),
			keep("HorizontalFieldOfView", tag.HorizontalFieldOfView, "FL"),
			keep("DetectorType", tag.DetectorType, "CS"),
			keep("Rows", tag.Rows, "US"),
			keep("Columns", tag.Columns, "US"),
			keep("BitsAllocated", tag.BitsAllocated, "US"),
			keep("BitsStored", tag.BitsStored, "US"),
			keep("HighBit", tag.HighBit, "US"),
			keep("PixelRepresentation", tag.PixelRepresentation, "US"),
			keep("SamplesPerPixel", tag.SamplesPerPixel, "US"),
			keep("PlanarConfiguration", tag.PlanarConfiguration, "US"),
			keep("PhotometricInterpretation", tag.PhotometricInterpretation, "CS"),
			keep("NumberOfFrames", tag.NumberOfFrames, "IS"),
			keep("FrameIncrementPointer", tag.FrameIncrementPointer, "AT"),
			harmonize("ImageType", tag.ImageType, "CS", "ORIGINAL", "PRIMARY"),
			keep("ContentTime", tag.ContentTime, "TM"),
			keep("ContentDate", tag.ContentDate, "DA"),
			keep("AcquisitionDateTime", tag.AcquisitionDateTime, "DT"),
			keep("LossyImageCompression", tag.LossyImageCompression, "CS"),
			keep("LossyImageCompressionRatio", tag.LossyImageCompressionRatio, "DS"),
			keep("LossyImageCompressionMethod", tag.LossyImageCompressionMethod, "CS"),
			keep("PresentationLUTShape", tag.PresentationLUTShape, "CS"),
			keep("PixelSpacing", tag.PixelSpacing, "DS"),
			keep("ImageLaterality", tag.ImageLaterality, "CS"),
			keep("SOPClassUID", tag.SOPClassUID, "UI"),
			keep("SOPInstanceUID", tag.SOPInstanceUID, "UI"),
			keep("SpecificCharacterSet", tag.SpecificCharacterSet, "CS"),
		},
		Sequences: []SequenceRule{
			{Name: "LightPathFilterTypeStackCodeSequence", Tag: tag.LightPathFilterTypeStackCodeSequence, VR: "SQ"},
			{Name: "ImagePathFilterTypeStackCodeSequence", Tag: tag.ImagePathFilterTypeStackCodeSequence, VR: "SQ"},
			{Name: "LensesCodeSequence", Tag: tag.LensesCodeSequence, VR: "SQ", ElementLists: [][]TagElement{codeMacro()}},
			{Name: "IlluminationTypeCodeSequence", Tag: tag.IlluminationTypeCodeSequence, VR: "SQ", ElementLists: [][]TagElement{codeMacro()}},
			{Name: "ChannelDescriptionCodeSequence", Tag: tag.ChannelDescriptionCodeSequence, VR: "SQ", ElementLists: [][]TagElement{codeMacro()}},
			{Name: "PatientEyeMovementCommandCodeSequence", Tag: tag.PatientEyeMovementCommandCodeSequence, VR: "SQ", ElementLists: [][]TagElement{codeMacro()}},
			{Name: "AnatomicRegionSequence", Tag: tag.AnatomicRegionSequence, VR: "SQ", ElementLists: [][]TagElement{retinaRegion()}},
			{Name: "AcquisitionDeviceTypeCodeSequence", Tag: tag.AcquisitionDeviceTypeCodeSequence, VR: "SQ", ElementLists: [][]TagElement{codeMacro()}},
		},
		Extract:       ExtractOptions{Depth: 1},
		VendorPatches: []VendorPatch{tritonVendor()},
	}
}

// OCTB is the rule for OCT B-scans
func OCTB() *ConversionRule {
	dimensionIndex := []TagElement{
		keep("DimensionIndexPointer", tag.DimensionIndexPointer, "AT"),
		keep("FunctionalGroupPointer", tag.FunctionalGroupPointer, "AT"),
	}
	return &ConversionRule{
		Name:    "OCT B",
		Headers: fileMetaHeaders(),
		Elements: []TagElement{
			blank("PatientName", tag.PatientName, "PN"),
			keep("PatientID", tag.PatientID, "LO"),
			blank("PatientBirthDate", tag.PatientBirthDate, "DA"),
			blank("PatientSex", tag.PatientSex, "CS"),
			keep("StudyInstanceUID", tag.StudyInstanceUID, "UI"),
			keep("StudyDate", tag.StudyDate, "DA"),
			keep("StudyTime", tag.StudyTime, "TM"),
			blank("ReferringPhysicianName", tag.ReferringPhysicianName, "PN"),
			blank("StudyID", tag.StudyID, "SH"),
			blank("AccessionNumber", tag.AccessionNumber, "SH"),
			harmonize("StudyDescription", tag.StudyDescription, "LO", "OCT B SCAN"),
			keep("Modality", tag.Modality, "CS"),
			keep("SeriesInstanceUID", tag.SeriesInstanceUID, "UI"),
			keep("SeriesNumber", tag.SeriesNumber, "IS"),
			keep("Manufacturer", tag.Manufacturer, "LO"),
			keep("ManufacturerModelName", tag.ManufacturerModelName, "LO"),
			keep("DeviceSerialNumber", tag.DeviceSerialNumber, "LO"),
			keep("SoftwareVersions", tag.SoftwareVersions, "LO"),
			keep("SamplesPerPixel", tag.SamplesPerPixel, "US"),
			keep("PhotometricInterpretation", tag.PhotometricInterpretation, "CS"),
			keep("Rows", tag.Rows, "US"),
			keep("Columns", tag.Columns, "US"),
			keep("BitsAllocated", tag.BitsAllocated, "US"),
			keep("BitsStored", tag.BitsStored, "US"),
			keep("HighBit", tag.HighBit, "US"),
			keep("PixelRepresentation", tag.PixelRepresentation, "US"),
			keep("InstanceNumber", tag.InstanceNumber, "IS"),
			keep("ContentDate", tag.ContentDate, "DA"),
			keep("ContentTime", tag.ContentTime, "TM"),
			keep("NumberOfFrames", tag.NumberOfFrames, "IS"),
			keep("ConcatenationUID", tag.ConcatenationUID, "UI"),
			keep("SOPInstanceUIDOfConcatenationSource", tag.SOPInstanceUIDOfConcatenationSource, "UI"),
			keep("ImageType", tag.ImageType, "CS"),
			keep("AcquisitionDateTime", tag.AcquisitionDateTime, "DT"),
			keep("AcquisitionDuration", tag.AcquisitionDuration, "FD"),
			keep("AcquisitionNumber", tag.AcquisitionNumber, "IS"),
			keep("PresentationLUTShape", tag.PresentationLUTShape, "CS"),
			keep("LossyImageCompression", tag.LossyImageCompression, "CS"),
			keep("LossyImageCompressionRatio", tag.LossyImageCompressionRatio, "DS"),
			keep("LossyImageCompressionMethod", tag.LossyImageCompressionMethod, "CS"),
			keep("BurnedInAnnotation", tag.BurnedInAnnotation, "CS"),
			keep("ConcatenationFrameOffsetNumber", tag.ConcatenationFrameOffsetNumber, "UL"),
			keep("InConcatenationNumber", tag.InConcatenationNumber, "US"),
			keep("InConcatenationTotalNumber", tag.InConcatenationTotalNumber, "US"),
			keep("AxialLengthOfTheEye", tag.AxialLengthOfTheEye, "FL"),
			keep("HorizontalFieldOfView", tag.HorizontalFieldOfView, "FL"),
			keep("RefractiveStateSequence", tag.RefractiveStateSequence, "SQ"),
			keep("EmmetropicMagnification", tag.EmmetropicMagnification, "FL"),
			keep("IntraOcularPressure", tag.IntraOcularPressure, "FL"),
			keep("PupilDilated", tag.PupilDilated, "CS"),
			keep("MydriaticAgentSequence", tag.MydriaticAgentSequence, "SQ"),
			keep("DegreeOfDilation", tag.DegreeOfDilation, "FL"),
			keep("DetectorType", tag.DetectorType, "CS"),
			keep("IlluminationWaveLength", tag.IlluminationWaveLength, "FL"),
			keep("IlluminationPower", tag.IlluminationPower, "FL"),
			keep("IlluminationBandwidth", tag.IlluminationBandwidth, "FL"),
			keep("DepthSpatialResolution", tag.DepthSpatialResolution, "FL"),
			keep("MaximumDepthDistortion", tag.MaximumDepthDistortion, "FL"),
			keep("AlongScanSpatialResolution", tag.AlongScanSpatialResolution, "FL"),
			keep("MaximumAlongScanDistortion", tag.MaximumAlongScanDistortion, "FL"),
			keep("AcrossScanSpatialResolution", tag.AcrossScanSpatialResolution, "FL"),
			keep("MaximumAcrossScanDistortion", tag.MaximumAcrossScanDistortion, "FL"),
			keep("ImageLaterality", tag.ImageLaterality, "CS"),
			keep("SOPClassUID", tag.SOPClassUID, "UI"),
			keep("SOPInstanceUID", tag.SOPInstanceUID, "UI"),
			keep("SpecificCharacterSet", tag.SpecificCharacterSet, "CS"),
		},
		Sequences: []SequenceRule{
			{Name: "LightPathFilterTypeStackCodeSequence", Tag: tag.LightPathFilterTypeStackCodeSequence, VR: "SQ"},
			{Name: "MydriaticAgentSequence", Tag: tag.MydriaticAgentSequence, VR: "SQ"},
			{Name: "RefractiveStateSequence", Tag: tag.RefractiveStateSequence, VR: "SQ"},
			{Name: "AcquisitionContextSequence", Tag: tag.AcquisitionContextSequence, VR: "SQ"},
			{Name: "AcquisitionDeviceTypeCodeSequence", Tag: tag.AcquisitionDeviceTypeCodeSequence, VR: "SQ", ElementLists: [][]TagElement{{
				harmonize("CodeValue", tag.CodeValue, "SH", "A-00FBE"),
				harmonize("CodingSchemeDesignator", tag.CodingSchemeDesignator, "SH", "SRT"),
				harmonize("CodeMeaning", tag.CodeMeaning, "LO", "Optical Coherence Tomography Scanner"),
			}}},
			{Name: "AnatomicRegionSequence", Tag: tag.AnatomicRegionSequence, VR: "SQ", ElementLists: [][]TagElement{retinaRegion()}},
			{Name: "DimensionOrganizationSequence", Tag: tag.DimensionOrganizationSequence, VR: "SQ", ElementLists: [][]TagElement{{
				keep("DimensionOrganizationUID", tag.DimensionOrganizationUID, "UI"),
			}}},
			{Name: "DimensionIndexSequence", Tag: tag.DimensionIndexSequence, VR: "SQ", ElementLists: [][]TagElement{dimensionIndex, dimensionIndex}},
		},
		ExtraTags:        []tag.Tag{tag.SharedFunctionalGroupsSequence, tag.PerFrameFunctionalGroupsSequence},
		Extract:          ExtractOptions{Depth: 2, AllItems: true},
		VendorPatches:    []VendorPatch{tritonVendor()},
		FunctionalGroups: true,
	}
}

var builtins = map[string]func() *ConversionRule{
	"cfpir": CFPIR,
	"octb":  OCTB,
}

// Rules lists the built-in rule names
func Rules() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuleByName returns a fresh copy of a built-in rule
func RuleByName(name string) (*ConversionRule, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown conversion rule %q, want one of %v", name, Rules())
	}
	return fn(), nil
}
