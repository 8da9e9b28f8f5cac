// Package dcm adapts the suyashkumar/dicom codec to the tag-addressed reads and
// writes used by the converters and classifiers.
//
// Basic usage:
//
//	f, err := dcm.ReadFile("/path/to/file.dcm")
//	if err != nil {
//		log.Fatal(err)
//	}
//	model, _ := dcm.First(f.Dataset.Elements, tag.ManufacturerModelName)
//
//	// write a new file with the same encoding flags
//	err = dcm.WriteFile("/tmp/out.dcm", f.Meta, body, f.Flags)
package dcm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

var (
	// ErrFileNotFound is returned when the input path does not exist
	ErrFileNotFound = errors.New("file not found")
	// ErrNotDICOM is returned when the codec cannot parse the input
	ErrNotDICOM = errors.New("not a DICOM file")
)

// SOP Class UIDs for the ophthalmic objects this module handles
const (
	OphthalmicPhotography8BitUID  = "1.2.840.10008.5.1.4.1.1.77.1.5.1"
	OphthalmicTomographyUID       = "1.2.840.10008.5.1.4.1.1.77.1.5.4"
	OphthalmicOCTEnFaceUID        = "1.2.840.10008.5.1.4.1.1.77.1.5.7"
	OphthalmicOCTBscanVolumeUID   = "1.2.840.10008.5.1.4.1.1.77.1.5.8"
	SurfaceSegmentationStorageUID = "1.2.840.10008.5.1.4.1.1.66.5"
)

const fileMetaInformationVersion = "\x00\x01"

// File is a parsed Part-10 file with the meta group split from the body
type File struct {
	Path    string
	Meta    []*dicom.Element
	Dataset dicom.Dataset
	Flags   transfer.Flags
}

type readOptions struct {
	skipPixelData bool
}

// ReadOption tunes ReadFile
type ReadOption func(*readOptions)

// WithoutPixelData skips the pixel data element entirely
func WithoutPixelData() ReadOption {
	return func(o *readOptions) { o.skipPixelData = true }
}

// ReadFile reads a DICOM file from disk. Pixel data is kept as the raw encoded
// value so it can be written back unchanged.
func ReadFile(path string, opts ...ReadOption) (*File, error) {
	var ro readOptions
	for _, opt := range opts {
		opt(&ro)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory: %w", path, ErrNotDICOM)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	parseOpts := []dicom.ParseOption{dicom.SkipProcessingPixelDataValue()}
	if ro.skipPixelData {
		parseOpts = []dicom.ParseOption{dicom.SkipPixelData()}
	}
	ds, err := parse(f, info.Size(), parseOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrNotDICOM, err)
	}
	return NewFile(path, ds), nil
}

// parse shields callers from codec panics on truncated input
func parse(f *os.File, size int64, opts []dicom.ParseOption) (ds dicom.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()
	return dicom.Parse(f, size, nil, opts...)
}

// NewFile splits a parsed dataset into meta and body
func NewFile(path string, ds dicom.Dataset) *File {
	f := &File{Path: path}
	var body []*dicom.Element
	for _, el := range ds.Elements {
		if tag.FromCodec(el.Tag).IsFileMeta() {
			f.Meta = append(f.Meta, el)
			continue
		}
		body = append(body, el)
	}
	f.Dataset = dicom.Dataset{Elements: body}
	f.Flags = transfer.ImplicitVRLittleEndian.Flags()
	if uid, ok := First(f.Meta, tag.TransferSyntaxUID); ok {
		f.Flags = transfer.FromUID(uid).Flags()
	}
	return f
}

// Syntax is the declared transfer syntax of the file
func (f *File) Syntax() transfer.Syntax {
	uid, ok := First(f.Meta, tag.TransferSyntaxUID)
	if !ok {
		return transfer.ImplicitVRLittleEndian
	}
	return transfer.FromUID(uid)
}

// Elements returns meta followed by body
func (f *File) Elements() []*dicom.Element {
	all := make([]*dicom.Element, 0, len(f.Meta)+len(f.Dataset.Elements))
	all = append(all, f.Meta...)
	return append(all, f.Dataset.Elements...)
}

// LookupKeyword resolves a tag to its dictionary keyword
func LookupKeyword(t tag.Tag) string {
	return t.Keyword()
}

// WriteFile encodes meta and body into a new Part-10 file. The transfer syntax
// is forced to agree with flags and the required meta elements are filled in
// from the body when missing.
func WriteFile(path string, meta, body []*dicom.Element, flags transfer.Flags) error {
	elems, err := assemble(meta, body, flags)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	err = dicom.Write(out, dicom.Dataset{Elements: elems},
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
		dicom.DefaultMissingTransferSyntax(),
	)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

type metaValue struct {
	t     tag.Tag
	value any
}

func assemble(meta, body []*dicom.Element, flags transfer.Flags) ([]*dicom.Element, error) {
	byTag := map[tag.Tag]*dicom.Element{}
	for _, el := range meta {
		byTag[tag.FromCodec(el.Tag)] = el
	}

	syntax := transfer.FromFlags(flags)
	if uid, ok := First(meta, tag.TransferSyntaxUID); ok && transfer.FromUID(uid).Matches(flags) {
		syntax = transfer.FromUID(uid)
	}
	fill := []metaValue{{tag.TransferSyntaxUID, string(syntax)}}
	if _, ok := byTag[tag.FileMetaInformationVersion]; !ok {
		fill = append(fill, metaValue{tag.FileMetaInformationVersion, []byte(fileMetaInformationVersion)})
	}
	if _, ok := byTag[tag.MediaStorageSOPClassUID]; !ok {
		if uid, ok := First(body, tag.SOPClassUID); ok {
			fill = append(fill, metaValue{tag.MediaStorageSOPClassUID, uid})
		}
	}
	if _, ok := byTag[tag.MediaStorageSOPInstanceUID]; !ok {
		if uid, ok := First(body, tag.SOPInstanceUID); ok {
			fill = append(fill, metaValue{tag.MediaStorageSOPInstanceUID, uid})
		}
	}
	for _, m := range fill {
		el, err := NewElement(m.t, "", m.value)
		if err != nil {
			return nil, fmt.Errorf("file meta %s: %w", m.t, err)
		}
		byTag[m.t] = el
	}

	elems := make([]*dicom.Element, 0, len(byTag)+len(body))
	for _, el := range byTag {
		elems = append(elems, el)
	}
	elems = append(elems, body...)
	SortElements(elems)
	return elems, nil
}

// SortElements orders elements by tag, the order they must be encoded in
func SortElements(elems []*dicom.Element) {
	sort.SliceStable(elems, func(i, j int) bool {
		return tag.FromCodec(elems[i].Tag).Less(tag.FromCodec(elems[j].Tag))
	})
}
