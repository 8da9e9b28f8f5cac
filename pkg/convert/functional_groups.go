package convert

import (
	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

// copied takes the value at path from entries, or an empty element for the
// last tag on the path when the source lacks it
func copied(entries Entries, path ...tag.Tag) dcm.Option {
	if e, ok := entries.Get(path...); ok {
		return dcm.WithElements(e.Element())
	}
	return dcm.WithEmpty(path[len(path)-1], "")
}

func localizerPurpose() *dcm.SequenceBuilder {
	return dcm.NewSequenceBuilder(tag.PurposeOfReferenceCodeSequence).AddItem(
		dcm.WithElement(tag.CodeValue, "SH", "121311"),
		dcm.WithElement(tag.CodingSchemeDesignator, "SH", "DCM"),
		dcm.WithElement(tag.CodeMeaning, "LO", "Localizer"),
	)
}

// functionalGroups synthesizes the shared and per-frame functional groups
// from the source's own groups
func functionalGroups(entries Entries) ([]*dicom.Element, error) {
	shared, err := sharedFunctionalGroups(entries)
	if err != nil {
		return nil, err
	}
	perFrame, err := perFrameFunctionalGroups(entries)
	if err != nil {
		return nil, err
	}
	return []*dicom.Element{shared, perFrame}, nil
}

func sharedFunctionalGroups(entries Entries) (*dicom.Element, error) {
	var source Entries
	if e, ok := entries[tag.SharedFunctionalGroupsSequence]; ok && len(e.Items) > 0 {
		source = e.Items[0]
	}
	refImage := []tag.Tag{tag.ReferencedImageSequence}
	measures := []tag.Tag{tag.PixelMeasuresSequence}

	anatomy := dcm.NewSequenceBuilder(tag.FrameAnatomySequence).AddItem(
		dcm.WithSequence(dcm.NewSequenceBuilder(tag.AnatomicRegionSequence).AddItem(
			dcm.WithElement(tag.CodeValue, "SH", "T-AA610"),
			dcm.WithElement(tag.CodingSchemeDesignator, "SH", "SRT"),
			dcm.WithElement(tag.CodeMeaning, "LO", "Retina"),
		)),
	)
	references := dcm.NewSequenceBuilder(tag.ReferencedImageSequence).AddItem(
		copied(source, append(refImage, tag.ReferencedSOPClassUID)...),
		copied(source, append(refImage, tag.ReferencedSOPInstanceUID)...),
		dcm.WithSequence(localizerPurpose()),
	)
	orientation := dcm.NewSequenceBuilder(tag.PlaneOrientationSequence).AddItem(
		dcm.WithElement(tag.ImageOrientationPatient, "DS", []string{"1", "0", "0", "0", "1", "0"}),
	)
	pixelMeasures := dcm.NewSequenceBuilder(tag.PixelMeasuresSequence).AddItem(
		copied(source, append(measures, tag.SliceThickness)...),
		copied(source, append(measures, tag.PixelSpacing)...),
	)

	return dcm.NewSequenceBuilder(tag.SharedFunctionalGroupsSequence).AddItem(
		dcm.WithSequence(anatomy),
		dcm.WithSequence(references),
		dcm.WithSequence(orientation),
		dcm.WithSequence(pixelMeasures),
	).Build()
}

func perFrameFunctionalGroups(entries Entries) (*dicom.Element, error) {
	sb := dcm.NewSequenceBuilder(tag.PerFrameFunctionalGroupsSequence)
	e, ok := entries[tag.PerFrameFunctionalGroupsSequence]
	if !ok {
		return sb.Build()
	}
	content := []tag.Tag{tag.FrameContentSequence}
	location := []tag.Tag{tag.OphthalmicFrameLocationSequence}
	position := []tag.Tag{tag.PlanePositionSequence}
	for _, frame := range e.Items {
		frameContent := dcm.NewSequenceBuilder(tag.FrameContentSequence).AddItem(
			copied(frame, append(content, tag.FrameAcquisitionDateTime)...),
			copied(frame, append(content, tag.FrameReferenceDateTime)...),
			copied(frame, append(content, tag.StackID)...),
			copied(frame, append(content, tag.InStackPositionNumber)...),
			copied(frame, append(content, tag.DimensionIndexValues)...),
		)
		frameLocation := dcm.NewSequenceBuilder(tag.OphthalmicFrameLocationSequence).AddItem(
			copied(frame, append(location, tag.ReferencedSOPClassUID)...),
			copied(frame, append(location, tag.ReferencedSOPInstanceUID)...),
			copied(frame, append(location, tag.ReferenceCoordinates)...),
			copied(frame, append(location, tag.OphthalmicImageOrientation)...),
			dcm.WithSequence(localizerPurpose()),
		)
		planePosition := dcm.NewSequenceBuilder(tag.PlanePositionSequence).AddItem(
			copied(frame, append(position, tag.ImagePositionPatient)...),
		)
		sb.AddItem(
			dcm.WithSequence(frameContent),
			dcm.WithSequence(planePosition),
			dcm.WithSequence(frameLocation),
		)
	}
	return sb.Build()
}
