// Package classify labels ophthalmic DICOM acquisitions by evaluating ordered
// rule tables against a small set of attributes read from each file.
//
// Basic usage:
//
//	label, err := classify.Classify("/path/to/file.dcm", classify.ProtocolRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(label) // e.g. "Maestro2_3D_Wide_OCT" or classify.NoMatch
package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/vr"
)

// NotAvailable is how an absent attribute renders
const NotAvailable = "N/A"

// Attr is an optional attribute value
type Attr struct {
	value string
	ok    bool
}

// Some is a present value, possibly empty
func Some(v string) Attr { return Attr{value: v, ok: true} }

// None is an absent value
func None() Attr { return Attr{} }

// Get returns the value and whether it is present
func (a Attr) Get() (string, bool) { return a.value, a.ok }

// IsSome reports whether the value is present
func (a Attr) IsSome() bool { return a.ok }

// String renders absent values as NotAvailable
func (a Attr) String() string {
	if !a.ok {
		return NotAvailable
	}
	return a.value
}

// Int parses a present value as an integer
func (a Attr) Int() (int, bool) {
	if !a.ok {
		return 0, false
	}
	i, err := strconv.Atoi(a.value)
	return i, err == nil
}

// MarshalText renders the String form
func (a Attr) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Field names one attribute
type Field string

const (
	Filename              Field = "filename"
	PatientID             Field = "patient_id"
	SOPClassUID           Field = "sop_class_uid"
	SOPInstanceUID        Field = "sop_instance_uid"
	Laterality            Field = "laterality"
	Rows                  Field = "rows"
	Columns               Field = "columns"
	Device                Field = "device"
	FrameNumber           Field = "frame_number"
	ReferencedSOPInstance Field = "referenced_sop_instance"
	SliceThickness        Field = "slice_thickness"
	ImplementationVersion Field = "implementation_version"
	Gaze                  Field = "gaze"
	PrivateTag            Field = "private_tag"
	SoftwareVersion       Field = "software_version"
	FileCount             Field = "file_count"
)

// Attributes are the discriminating values of one file
type Attributes struct {
	Filename              Attr `json:"filename"`
	PatientID             Attr `json:"patient_id"`
	SOPClassUID           Attr `json:"sop_class_uid"`
	SOPInstanceUID        Attr `json:"sop_instance_uid"`
	Laterality            Attr `json:"laterality"`
	Rows                  Attr `json:"rows"`
	Columns               Attr `json:"columns"`
	Device                Attr `json:"device"`
	FrameNumber           Attr `json:"frame_number"`
	ReferencedSOPInstance Attr `json:"referenced_sop_instance"`
	SliceThickness        Attr `json:"slice_thickness"`
	ImplementationVersion Attr `json:"implementation_version"`
	Gaze                  Attr `json:"gaze"`
	PrivateTag            Attr `json:"private_tag"`
	SoftwareVersion       Attr `json:"software_version"`
	FileCount             Attr `json:"file_count"`
}

var fields = map[Field]func(*Attributes) *Attr{
	Filename:              func(a *Attributes) *Attr { return &a.Filename },
	PatientID:             func(a *Attributes) *Attr { return &a.PatientID },
	SOPClassUID:           func(a *Attributes) *Attr { return &a.SOPClassUID },
	SOPInstanceUID:        func(a *Attributes) *Attr { return &a.SOPInstanceUID },
	Laterality:            func(a *Attributes) *Attr { return &a.Laterality },
	Rows:                  func(a *Attributes) *Attr { return &a.Rows },
	Columns:               func(a *Attributes) *Attr { return &a.Columns },
	Device:                func(a *Attributes) *Attr { return &a.Device },
	FrameNumber:           func(a *Attributes) *Attr { return &a.FrameNumber },
	ReferencedSOPInstance: func(a *Attributes) *Attr { return &a.ReferencedSOPInstance },
	SliceThickness:        func(a *Attributes) *Attr { return &a.SliceThickness },
	ImplementationVersion: func(a *Attributes) *Attr { return &a.ImplementationVersion },
	Gaze:                  func(a *Attributes) *Attr { return &a.Gaze },
	PrivateTag:            func(a *Attributes) *Attr { return &a.PrivateTag },
	SoftwareVersion:       func(a *Attributes) *Attr { return &a.SoftwareVersion },
	FileCount:             func(a *Attributes) *Attr { return &a.FileCount },
}

// Valid reports whether f names a known attribute
func (f Field) Valid() bool {
	_, ok := fields[f]
	return ok
}

// Get returns the named attribute, None for unknown names
func (a Attributes) Get(f Field) Attr {
	get, ok := fields[f]
	if !ok {
		return None()
	}
	return *get(&a)
}

// Set replaces the named attribute
func (a *Attributes) Set(f Field, v Attr) error {
	get, ok := fields[f]
	if !ok {
		return fmt.Errorf("unknown attribute %q", f)
	}
	*get(a) = v
	return nil
}

// ExtractAttributes reads the discriminating attributes of the file at path.
// Which tags are read depends on the SOP class; attributes a class does not
// carry are None.
func ExtractAttributes(path string) (Attributes, error) {
	f, err := dcm.ReadFile(path, dcm.WithoutPixelData())
	if err != nil {
		return Attributes{}, err
	}
	count, err := countFiles(filepath.Dir(path))
	if err != nil {
		return Attributes{}, err
	}
	return FromFile(f, count), nil
}

// FromFile reads the attributes from a parsed file. fileCount is the number of
// regular files next to it.
func FromFile(f *dcm.File, fileCount int) Attributes {
	body := f.Dataset.Elements
	read := func(path ...tag.Tag) Attr { return value(body, path...) }

	a := Attributes{
		Filename:       Some(filepath.Base(f.Path)),
		PatientID:      read(tag.PatientID),
		SOPClassUID:    read(tag.SOPClassUID),
		SOPInstanceUID: read(tag.SOPInstanceUID),
	}
	version := value(f.Meta, tag.ImplementationVersionName)
	files := Some(strconv.Itoa(fileCount))
	shared := tag.SharedFunctionalGroupsSequence

	switch a.SOPClassUID.String() {
	case dcm.OphthalmicPhotography8BitUID:
		a.Rows = read(tag.Rows)
		a.Columns = read(tag.Columns)
		a.Laterality = read(tag.ImageLaterality)
		a.ImplementationVersion = version
		a.Device = read(tag.ManufacturerModelName)
		a.SoftwareVersion = read(tag.SoftwareVersions)
		a.FileCount = files
		a.PrivateTag = read(tag.HeidelbergScanPattern)
		a.Gaze = read(tag.PatientEyeMovementCommandCodeSequence, tag.CodeValue)
	case dcm.OphthalmicTomographyUID:
		a.Rows = read(tag.Rows)
		a.Columns = read(tag.Columns)
		a.Laterality = read(tag.ImageLaterality)
		a.ImplementationVersion = version
		a.Device = read(tag.ManufacturerModelName)
		a.FrameNumber = read(tag.NumberOfFrames)
		a.SoftwareVersion = read(tag.SoftwareVersions)
		a.FileCount = files
		a.ReferencedSOPInstance = read(shared, tag.ReferencedImageSequence, tag.ReferencedSOPInstanceUID)
		a.SliceThickness = read(shared, tag.PixelMeasuresSequence, tag.SliceThickness)
		if !a.SliceThickness.IsSome() {
			a.SliceThickness = Some("")
		}
	case dcm.OphthalmicOCTBscanVolumeUID:
		a.Laterality = read(shared, tag.FrameAnatomySequence, tag.FrameLaterality)
		a.Rows = read(tag.Rows)
		a.Columns = read(tag.Columns)
		a.FrameNumber = read(tag.NumberOfFrames)
		a.Device = read(tag.ManufacturerModelName)
		a.ImplementationVersion = version
		a.SliceThickness = read(shared, tag.PixelMeasuresSequence, tag.SliceThickness)
		a.ReferencedSOPInstance = read(tag.FrameOfReferenceUID)
		a.FileCount = files
	case dcm.SurfaceSegmentationStorageUID:
		a.Laterality = read(tag.ImageLaterality)
		a.Device = read(tag.ManufacturerModelName)
		a.ReferencedSOPInstance = read(tag.ReferencedSeriesSequence, tag.ReferencedInstanceSequence, tag.ReferencedSOPInstanceUID)
		a.ImplementationVersion = version
		a.FileCount = files
	case dcm.OphthalmicOCTEnFaceUID:
		a.Laterality = read(tag.ImageLaterality)
		a.Rows = read(tag.Rows)
		a.Columns = read(tag.Columns)
		a.ImplementationVersion = version
		a.Device = read(tag.ManufacturerModelName)
		a.FileCount = files
		a.ReferencedSOPInstance = read(tag.SourceImageSequence, tag.ReferencedSOPInstanceUID)
	default:
		a.SOPInstanceUID = Some(fmt.Sprintf("Unknown SOP Class UID: %s", a.SOPClassUID))
	}
	return a
}

// value reads the first value at path in canonical form. Integer strings and
// binary integers render as decimal ints, decimal strings in their shortest
// float form and text without padding.
func value(elems []*dicom.Element, path ...tag.Tag) Attr {
	el, ok := dcm.FindPath(elems, path...)
	if !ok {
		return None()
	}
	vals := dcm.Strings(el)
	if len(vals) == 0 {
		return Some("")
	}
	s := strings.Trim(vals[0], "\x00 ")
	switch vr.VR(dcm.VR(el)) {
	case vr.IS:
		if i, err := strconv.Atoi(s); err == nil {
			return Some(strconv.Itoa(i))
		}
	case vr.DS:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Some(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return Some(s)
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}
