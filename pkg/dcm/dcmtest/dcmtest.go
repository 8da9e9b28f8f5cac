// Package dcmtest writes small DICOM fixtures for tests
package dcmtest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

// El builds an element or fails the test
func El(t testing.TB, tg tag.Tag, vrName string, value any) *dicom.Element {
	t.Helper()
	el, err := dcm.NewElement(tg, vrName, value)
	require.NoError(t, err)
	return el
}

// Seq builds a sequence element from items or fails the test
func Seq(t testing.TB, tg tag.Tag, items ...[]*dicom.Element) *dicom.Element {
	t.Helper()
	sb := dcm.NewSequenceBuilder(tg)
	for _, item := range items {
		sb.AddElements(item)
	}
	el, err := sb.Build()
	require.NoError(t, err)
	return el
}

// Pixels is a raw native pixel data element
func Pixels(t testing.TB, data []byte) *dicom.Element {
	t.Helper()
	return El(t, tag.PixelData, "OW", dicom.PixelDataInfo{
		IntentionallyUnprocessed: true,
		UnprocessedValueData:     data,
	})
}

// Write encodes body into dir/name with the given transfer syntax and returns the path
func Write(t testing.TB, dir, name string, syntax transfer.Syntax, body ...*dicom.Element) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	meta := []*dicom.Element{El(t, tag.TransferSyntaxUID, "", string(syntax))}
	require.NoError(t, dcm.WriteFile(path, meta, body, syntax.Flags()))
	return path
}

// Ophthalmic is a minimal photography body with patient identifiers and an image laterality
func Ophthalmic(t testing.TB, overrides ...*dicom.Element) []*dicom.Element {
	t.Helper()
	body := []*dicom.Element{
		El(t, tag.SOPClassUID, "", dcm.OphthalmicPhotography8BitUID),
		El(t, tag.SOPInstanceUID, "", "1.2.826.0.1.3680043.8.498.1"),
		El(t, tag.StudyInstanceUID, "", "1.2.826.0.1.3680043.8.498.2"),
		El(t, tag.SeriesInstanceUID, "", "1.2.826.0.1.3680043.8.498.3"),
		El(t, tag.Modality, "", "OP"),
		El(t, tag.PatientName, "", "Smith^John"),
		El(t, tag.PatientID, "", "1001"),
		El(t, tag.Manufacturer, "", "Optomed"),
		El(t, tag.ManufacturerModelName, "", "Aurora"),
		El(t, tag.ImageLaterality, "", "R"),
		El(t, tag.StudyDescription, "", "Retina"),
		El(t, tag.Rows, "", 2),
		El(t, tag.Columns, "", 2),
		El(t, tag.SamplesPerPixel, "", 1),
		El(t, tag.BitsAllocated, "", 8),
		El(t, tag.BitsStored, "", 8),
		El(t, tag.HighBit, "", 7),
		El(t, tag.PixelRepresentation, "", 0),
		El(t, tag.PhotometricInterpretation, "", "MONOCHROME2"),
	}
	for _, o := range overrides {
		replaced := false
		for i, el := range body {
			if el.Tag == o.Tag {
				body[i] = o
				replaced = true
			}
		}
		if !replaced {
			body = append(body, o)
		}
	}
	return body
}

// Zip writes entries into a new archive at path, in name order
func Zip(t testing.TB, path string, entries map[string][]byte) string {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// Bytes encodes body like Write and returns the file contents
func Bytes(t testing.TB, syntax transfer.Syntax, body ...*dicom.Element) []byte {
	t.Helper()
	path := Write(t, t.TempDir(), "fixture.dcm", syntax, body...)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}
