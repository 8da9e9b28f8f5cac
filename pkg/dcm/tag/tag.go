// Package tag defines the DICOM tags used by the conversion and classification rules
package tag

import (
	"fmt"
	"strconv"
	"strings"

	dtag "github.com/suyashkumar/dicom/pkg/tag"
)

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Parse reads a tag from its 8-hex-digit form ("0020000D") or the
// parenthesized form ("(0020,000D)")
func Parse(s string) (Tag, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	raw = strings.ReplaceAll(raw, ",", "")
	if len(raw) != 8 {
		return Tag{}, fmt.Errorf("tag %q: want 8 hex digits", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("tag %q: %w", s, err)
	}
	return Tag{Group: uint16(v >> 16), Element: uint16(v)}, nil
}

// MustParse is Parse for literals
func MustParse(s string) Tag {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromCodec converts a codec tag
func FromCodec(t dtag.Tag) Tag {
	return Tag{Group: t.Group, Element: t.Element}
}

// Codec converts to the codec's tag type
func (t Tag) Codec() dtag.Tag {
	return dtag.Tag{Group: t.Group, Element: t.Element}
}

// Equals compares two tags
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// Less orders tags the way they are encoded
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsFileMeta returns true if this tag is in the File Meta Information group
func (t Tag) IsFileMeta() bool {
	return t.Group == 0x0002
}

// Keyword is the dictionary keyword, empty for private or unknown tags
func (t Tag) Keyword() string {
	info, err := dtag.Find(t.Codec())
	if err != nil {
		return ""
	}
	return info.Name
}

// DictVR is the dictionary VR, the first one listed for multi-VR entries
func (t Tag) DictVR() string {
	info, err := dtag.Find(t.Codec())
	if err != nil {
		return ""
	}
	vr, _, _ := strings.Cut(info.VR, " ")
	return vr
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
)

// Patient and Study
var (
	PatientName            = Tag{0x0010, 0x0010}
	PatientID              = Tag{0x0010, 0x0020}
	PatientBirthDate       = Tag{0x0010, 0x0030}
	PatientSex             = Tag{0x0010, 0x0040}
	StudyDate              = Tag{0x0008, 0x0020}
	StudyTime              = Tag{0x0008, 0x0030}
	AccessionNumber        = Tag{0x0008, 0x0050}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
	StudyDescription       = Tag{0x0008, 0x1030}
	StudyInstanceUID       = Tag{0x0020, 0x000D}
	StudyID                = Tag{0x0020, 0x0010}
)

// Series, Equipment and SOP Common
var (
	SpecificCharacterSet                = Tag{0x0008, 0x0005}
	ImageType                           = Tag{0x0008, 0x0008}
	SOPClassUID                         = Tag{0x0008, 0x0016}
	SOPInstanceUID                      = Tag{0x0008, 0x0018}
	ContentDate                         = Tag{0x0008, 0x0023}
	AcquisitionDateTime                 = Tag{0x0008, 0x002A}
	ContentTime                         = Tag{0x0008, 0x0033}
	Modality                            = Tag{0x0008, 0x0060}
	Manufacturer                        = Tag{0x0008, 0x0070}
	ManufacturerModelName               = Tag{0x0008, 0x1090}
	SeriesInstanceUID                   = Tag{0x0020, 0x000E}
	SeriesNumber                        = Tag{0x0020, 0x0011}
	AcquisitionNumber                   = Tag{0x0020, 0x0012}
	InstanceNumber                      = Tag{0x0020, 0x0013}
	PatientOrientation                  = Tag{0x0020, 0x0020}
	FrameOfReferenceUID                 = Tag{0x0020, 0x0052}
	ImageLaterality                     = Tag{0x0020, 0x0062}
	SynchronizationFrameOfReferenceUID  = Tag{0x0020, 0x0200}
	SOPInstanceUIDOfConcatenationSource = Tag{0x0020, 0x0242}
	DeviceSerialNumber                  = Tag{0x0018, 0x1000}
	SoftwareVersions                    = Tag{0x0018, 0x1020}
	SynchronizationTrigger              = Tag{0x0018, 0x106A}
	AcquisitionTimeSynchronized         = Tag{0x0018, 0x1800}
	DetectorType                        = Tag{0x0018, 0x7004}
	AcquisitionDuration                 = Tag{0x0018, 0x9073}
	AcquisitionContextSequence          = Tag{0x0040, 0x0555}
)

// Image Pixel
var (
	SamplesPerPixel             = Tag{0x0028, 0x0002}
	PhotometricInterpretation   = Tag{0x0028, 0x0004}
	PlanarConfiguration         = Tag{0x0028, 0x0006}
	NumberOfFrames              = Tag{0x0028, 0x0008}
	FrameIncrementPointer       = Tag{0x0028, 0x0009}
	Rows                        = Tag{0x0028, 0x0010}
	Columns                     = Tag{0x0028, 0x0011}
	PixelSpacing                = Tag{0x0028, 0x0030}
	BitsAllocated               = Tag{0x0028, 0x0100}
	BitsStored                  = Tag{0x0028, 0x0101}
	HighBit                     = Tag{0x0028, 0x0102}
	PixelRepresentation         = Tag{0x0028, 0x0103}
	BurnedInAnnotation          = Tag{0x0028, 0x0301}
	LossyImageCompression       = Tag{0x0028, 0x2110}
	LossyImageCompressionRatio  = Tag{0x0028, 0x2112}
	LossyImageCompressionMethod = Tag{0x0028, 0x2114}
	PresentationLUTShape        = Tag{0x2050, 0x0020}
	PixelData                   = Tag{0x7FE0, 0x0010}
)

// Ophthalmic Photography and Tomography (Group 0022)
var (
	PatientEyeMovementCommanded           = Tag{0x0022, 0x0005}
	PatientEyeMovementCommandCodeSequence = Tag{0x0022, 0x0006}
	EmmetropicMagnification               = Tag{0x0022, 0x000A}
	IntraOcularPressure                   = Tag{0x0022, 0x000B}
	HorizontalFieldOfView                 = Tag{0x0022, 0x000C}
	PupilDilated                          = Tag{0x0022, 0x000D}
	DegreeOfDilation                      = Tag{0x0022, 0x000E}
	AcquisitionDeviceTypeCodeSequence     = Tag{0x0022, 0x0015}
	IlluminationTypeCodeSequence          = Tag{0x0022, 0x0016}
	LightPathFilterTypeStackCodeSequence  = Tag{0x0022, 0x0017}
	ImagePathFilterTypeStackCodeSequence  = Tag{0x0022, 0x0018}
	LensesCodeSequence                    = Tag{0x0022, 0x0019}
	ChannelDescriptionCodeSequence        = Tag{0x0022, 0x001A}
	RefractiveStateSequence               = Tag{0x0022, 0x001B}
	AxialLengthOfTheEye                   = Tag{0x0022, 0x0030}
	OphthalmicFrameLocationSequence       = Tag{0x0022, 0x0031}
	ReferenceCoordinates                  = Tag{0x0022, 0x0032}
	DepthSpatialResolution                = Tag{0x0022, 0x0035}
	MaximumDepthDistortion                = Tag{0x0022, 0x0036}
	AlongScanSpatialResolution            = Tag{0x0022, 0x0037}
	MaximumAlongScanDistortion            = Tag{0x0022, 0x0038}
	OphthalmicImageOrientation            = Tag{0x0022, 0x0039}
	AcrossScanSpatialResolution           = Tag{0x0022, 0x0048}
	MaximumAcrossScanDistortion           = Tag{0x0022, 0x0049}
	IlluminationWaveLength                = Tag{0x0022, 0x0055}
	IlluminationPower                     = Tag{0x0022, 0x0056}
	IlluminationBandwidth                 = Tag{0x0022, 0x0057}
	MydriaticAgentSequence                = Tag{0x0022, 0x0058}
)

// Code Sequence Macro
var (
	CodeValue              = Tag{0x0008, 0x0100}
	CodingSchemeDesignator = Tag{0x0008, 0x0102}
	CodeMeaning            = Tag{0x0008, 0x0104}
	AnatomicRegionSequence = Tag{0x0008, 0x2218}
)

// References
var (
	ReferencedImageSequence        = Tag{0x0008, 0x1140}
	ReferencedSeriesSequence       = Tag{0x0008, 0x1115}
	ReferencedInstanceSequence     = Tag{0x0008, 0x114A}
	ReferencedSOPClassUID          = Tag{0x0008, 0x1150}
	ReferencedSOPInstanceUID       = Tag{0x0008, 0x1155}
	SourceImageSequence            = Tag{0x0008, 0x2112}
	PurposeOfReferenceCodeSequence = Tag{0x0040, 0xA170}
)

// Multi-frame Functional Groups and Dimensions
var (
	SliceThickness                   = Tag{0x0018, 0x0050}
	FrameAcquisitionDateTime         = Tag{0x0018, 0x9074}
	FrameReferenceDateTime           = Tag{0x0018, 0x9151}
	ImagePositionPatient             = Tag{0x0020, 0x0032}
	ImageOrientationPatient          = Tag{0x0020, 0x0037}
	StackID                          = Tag{0x0020, 0x9056}
	InStackPositionNumber            = Tag{0x0020, 0x9057}
	FrameAnatomySequence             = Tag{0x0020, 0x9071}
	FrameLaterality                  = Tag{0x0020, 0x9072}
	FrameContentSequence             = Tag{0x0020, 0x9111}
	PlanePositionSequence            = Tag{0x0020, 0x9113}
	PlaneOrientationSequence         = Tag{0x0020, 0x9116}
	DimensionIndexValues             = Tag{0x0020, 0x9157}
	ConcatenationUID                 = Tag{0x0020, 0x9161}
	InConcatenationNumber            = Tag{0x0020, 0x9162}
	InConcatenationTotalNumber       = Tag{0x0020, 0x9163}
	DimensionOrganizationUID         = Tag{0x0020, 0x9164}
	DimensionIndexPointer            = Tag{0x0020, 0x9165}
	FunctionalGroupPointer           = Tag{0x0020, 0x9167}
	DimensionOrganizationSequence    = Tag{0x0020, 0x9221}
	DimensionIndexSequence           = Tag{0x0020, 0x9222}
	ConcatenationFrameOffsetNumber   = Tag{0x0020, 0x9228}
	PixelMeasuresSequence            = Tag{0x0028, 0x9110}
	SharedFunctionalGroupsSequence   = Tag{0x5200, 0x9229}
	PerFrameFunctionalGroupsSequence = Tag{0x5200, 0x9230}
)

// Vendor private elements read by the classifier
var (
	// HeidelbergScanPattern carries values such as "Super Slim" on Spectralis exports
	HeidelbergScanPattern = Tag{0x0051, 0x1017}
)
