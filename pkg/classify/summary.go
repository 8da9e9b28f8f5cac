package classify

import (
	"errors"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
)

// Domains of a summarized file
const (
	DomainDICOM    = "DICOM"
	DomainNotDICOM = "NOT DICOM"
)

// Summary describes one acquisition file. Identification of non-DICOM
// exports fills the same shape with the fields it knows.
type Summary struct {
	Domain      string `json:"domain"`
	Modality    string `json:"modality,omitempty"`
	Device      string `json:"device,omitempty"`
	PatientID   string `json:"patient_id"`
	Laterality  string `json:"laterality"`
	Protocol    string `json:"protocol,omitempty"`
	Description string `json:"description,omitempty"`
	SensorID    string `json:"sensor_id,omitempty"`
	DocName     string `json:"docname,omitempty"`
	Pos         string `json:"pos,omitempty"`
}

// ProtocolModalities names SOP classes for protocol summaries
var ProtocolModalities = map[string]string{
	dcm.OphthalmicPhotography8BitUID:  "CFP/IR/FAF",
	dcm.OphthalmicTomographyUID:       "OCT B Scan",
	dcm.OphthalmicOCTBscanVolumeUID:   "B-scan Volume Analysis Storage",
	dcm.SurfaceSegmentationStorageUID: "Surface Segmentation Storage",
	dcm.OphthalmicOCTEnFaceUID:        "En Face OCTA Image",
}

// ImageModalities names SOP classes for image descriptions
var ImageModalities = map[string]string{
	dcm.OphthalmicPhotography8BitUID:  "CFP/IR",
	dcm.OphthalmicTomographyUID:       "OCT B Scan",
	dcm.OphthalmicOCTBscanVolumeUID:   "B-scan Volume Analysis Storage",
	dcm.SurfaceSegmentationStorageUID: "Surface Segmentation Storage",
	dcm.OphthalmicOCTEnFaceUID:        "En Face OCTA Image",
}

// Modality names a SOP class, the UID itself when unknown
func Modality(modalities map[string]string, sopClassUID string) string {
	if m, ok := modalities[sopClassUID]; ok {
		return m
	}
	return sopClassUID
}

// Summarize labels the file at path with its study protocol
func Summarize(path string) (Summary, error) {
	a, s, err := summarize(path, ProtocolModalities)
	if err != nil || s.Domain != DomainDICOM {
		return s, err
	}
	s.Protocol = NewMatcher(ProtocolRules()).Match(a)
	return s, nil
}

// Describe labels the file at path with the image it holds within its acquisition
func Describe(path string) (Summary, error) {
	a, s, err := summarize(path, ImageModalities)
	if err != nil || s.Domain != DomainDICOM {
		return s, err
	}
	s.Device = a.Device.String()
	s.Description = NewMatcher(ImageRules()).Match(a)
	return s, nil
}

func summarize(path string, modalities map[string]string) (Attributes, Summary, error) {
	a, err := ExtractAttributes(path)
	switch {
	case errors.Is(err, dcm.ErrNotDICOM):
		return a, Summary{Domain: DomainNotDICOM, Protocol: NoMatch}, nil
	case err != nil:
		return a, Summary{}, err
	}
	return a, Summary{
		Domain:     DomainDICOM,
		Modality:   Modality(modalities, a.SOPClassUID.String()),
		PatientID:  a.PatientID.String(),
		Laterality: a.Laterality.String(),
	}, nil
}
