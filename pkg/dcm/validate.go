package dcm

import (
	"fmt"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
)

// AttributeType represents DICOM attribute type requirements
type AttributeType int

const (
	// Type1 - Required, must have value
	Type1 AttributeType = 1
	// Type1C - Conditionally required, must have value if present
	Type1C AttributeType = 2
	// Type2 - Required, may be empty
	Type2 AttributeType = 3
	// Type3 - Optional
	Type3 AttributeType = 5
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Tag        tag.Tag
	Type       AttributeType
	Message    string
	IsCritical bool // Type 1 and 1C violations are critical
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Tag, e.typeName(), e.Message)
}

func (e ValidationError) typeName() string {
	switch e.Type {
	case Type1:
		return "Type 1"
	case Type1C:
		return "Type 1C"
	case Type2:
		return "Type 2"
	case Type3:
		return "Type 3"
	default:
		return "Unknown"
	}
}

// ValidationResult contains all validation errors for a dataset
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no critical errors
func (r ValidationResult) IsValid() bool {
	for _, err := range r.Errors {
		if err.IsCritical {
			return false
		}
	}
	return true
}

// Requirement is one attribute an output file must carry
type Requirement struct {
	Tag       tag.Tag
	Type      AttributeType
	Condition func([]*dicom.Element) bool // Type 1C only
}

// Validate checks elems against requirements
func Validate(elems []*dicom.Element, requirements []Requirement) ValidationResult {
	result := ValidationResult{}
	for _, req := range requirements {
		el, exists := Find(elems, req.Tag)
		switch req.Type {
		case Type1:
			if !exists {
				result.Errors = append(result.Errors, ValidationError{
					Tag: req.Tag, Type: Type1, Message: "Required attribute missing", IsCritical: true,
				})
			} else if isEmpty(el) {
				result.Errors = append(result.Errors, ValidationError{
					Tag: req.Tag, Type: Type1, Message: "Required attribute is empty", IsCritical: true,
				})
			}
		case Type1C:
			if req.Condition != nil && req.Condition(elems) && (!exists || isEmpty(el)) {
				result.Errors = append(result.Errors, ValidationError{
					Tag: req.Tag, Type: Type1C, Message: "Conditionally required attribute missing or empty", IsCritical: true,
				})
			}
		case Type2:
			if !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag: req.Tag, Type: Type2, Message: "Required attribute missing (may be empty)",
				})
			}
		}
	}
	return result
}

func isEmpty(el *dicom.Element) bool {
	if el == nil || el.Value == nil {
		return true
	}
	switch el.Value.ValueType() {
	case dicom.Sequences:
		return len(Items(el)) == 0
	case dicom.PixelData:
		return false
	}
	vals := Strings(el)
	return len(vals) == 0 || (len(vals) == 1 && vals[0] == "")
}

// Common requirements for the converted ophthalmic outputs

// PatientStudyRequirements covers the Patient and General Study modules
var PatientStudyRequirements = []Requirement{
	{Tag: tag.PatientName, Type: Type2},
	{Tag: tag.PatientID, Type: Type2},
	{Tag: tag.StudyInstanceUID, Type: Type1},
	{Tag: tag.StudyDate, Type: Type2},
	{Tag: tag.StudyTime, Type: Type2},
}

// SeriesSOPRequirements covers the General Series and SOP Common modules
var SeriesSOPRequirements = []Requirement{
	{Tag: tag.Modality, Type: Type1},
	{Tag: tag.SeriesInstanceUID, Type: Type1},
	{Tag: tag.SOPClassUID, Type: Type1},
	{Tag: tag.SOPInstanceUID, Type: Type1},
}

// ImagePixelRequirements covers the Image Pixel module
var ImagePixelRequirements = []Requirement{
	{Tag: tag.SamplesPerPixel, Type: Type1},
	{Tag: tag.PhotometricInterpretation, Type: Type1},
	{Tag: tag.Rows, Type: Type1},
	{Tag: tag.Columns, Type: Type1},
	{Tag: tag.BitsAllocated, Type: Type1},
	{Tag: tag.BitsStored, Type: Type1},
	{Tag: tag.HighBit, Type: Type1},
	{Tag: tag.PixelRepresentation, Type: Type1},
	{Tag: tag.PixelData, Type: Type1},
}

// OphthalmicRequirements combines the modules every converted image carries
var OphthalmicRequirements = append(append(append([]Requirement{},
	PatientStudyRequirements...),
	SeriesSOPRequirements...),
	ImagePixelRequirements...)

// QuickValidate checks a converted file for the attributes every output carries
func QuickValidate(elems []*dicom.Element) ValidationResult {
	return Validate(elems, OphthalmicRequirements)
}
