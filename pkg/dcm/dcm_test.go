package dcm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"

	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

func mustElement(t *testing.T, tg tag.Tag, vrName string, value any) *dicom.Element {
	t.Helper()
	el, err := NewElement(tg, vrName, value)
	require.NoError(t, err)
	return el
}

func sampleBody(t *testing.T) []*dicom.Element {
	return []*dicom.Element{
		mustElement(t, tag.PatientName, "", "Smith^John^^^"),
		mustElement(t, tag.SOPClassUID, "", OphthalmicPhotography8BitUID),
		mustElement(t, tag.SOPInstanceUID, "", "1.2.3.4"),
		mustElement(t, tag.ImageLaterality, "", "L"),
		mustElement(t, tag.Rows, "", 512),
		mustElement(t, tag.SliceThickness, "", "0.0234375"),
		mustElement(t, tag.PixelData, "OW", dicom.PixelDataInfo{
			IntentionallyUnprocessed: true,
			UnprocessedValueData:     []byte{1, 2, 3, 4},
		}),
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	for _, syntax := range []transfer.Syntax{transfer.ExplicitVRLittleEndian, transfer.ImplicitVRLittleEndian} {
		t.Run(syntax.Name(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.dcm")
			meta := []*dicom.Element{mustElement(t, tag.TransferSyntaxUID, "", string(syntax))}
			require.NoError(t, WriteFile(path, meta, sampleBody(t), syntax.Flags()))

			f, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, syntax.Flags(), f.Flags)
			assert.Equal(t, syntax, f.Syntax())

			name, ok := First(f.Dataset.Elements, tag.PatientName)
			require.True(t, ok)
			assert.Equal(t, "Smith^John", PersonName(name))

			rows, _ := First(f.Dataset.Elements, tag.Rows)
			assert.Equal(t, "512", rows)

			// media storage uids are filled from the body
			sop, ok := First(f.Meta, tag.MediaStorageSOPInstanceUID)
			require.True(t, ok)
			assert.Equal(t, "1.2.3.4", sop)

			px, ok := Find(f.Dataset.Elements, tag.PixelData)
			require.True(t, ok)
			info := px.Value.GetValue().(dicom.PixelDataInfo)
			assert.Equal(t, []byte{1, 2, 3, 4}, info.UnprocessedValueData)
		})
	}
}

func TestWriteFileForcesSyntaxToFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dcm")
	meta := []*dicom.Element{mustElement(t, tag.TransferSyntaxUID, "", string(transfer.ImplicitVRLittleEndian))}
	require.NoError(t, WriteFile(path, meta, sampleBody(t), transfer.ExplicitVRLittleEndian.Flags()))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, transfer.ExplicitVRLittleEndian, f.Syntax())
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(filepath.Join(dir, "missing.dcm"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	junk := filepath.Join(dir, "junk.dcm")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a dicom file at all"), 0o644))
	_, err = ReadFile(junk)
	assert.ErrorIs(t, err, ErrNotDICOM)
}

func TestEmpty(t *testing.T) {
	cases := map[tag.Tag]dicom.ValueType{
		tag.PatientName:            dicom.Strings,
		tag.Rows:                   dicom.Ints,
		tag.AnatomicRegionSequence: dicom.Sequences,
		tag.ReferenceCoordinates:   dicom.Floats,
	}
	for tg, want := range cases {
		el, err := Empty(tg, "")
		require.NoError(t, err, tg.String())
		assert.Equal(t, want, el.Value.ValueType(), tg.String())
		assert.Empty(t, Strings(el))
	}
}

func TestFindPath(t *testing.T) {
	inner, err := NewSequenceBuilder(tag.FrameAnatomySequence).
		AddItem(WithElement(tag.FrameLaterality, "", "R")).
		Build()
	require.NoError(t, err)
	shared, err := NewSequenceBuilder(tag.SharedFunctionalGroupsSequence).
		AddItem(WithElements(inner)).
		Build()
	require.NoError(t, err)

	el, ok := FindPath([]*dicom.Element{shared}, tag.SharedFunctionalGroupsSequence, tag.FrameAnatomySequence, tag.FrameLaterality)
	require.True(t, ok)
	assert.Equal(t, []string{"R"}, Strings(el))

	_, ok = FindPath([]*dicom.Element{shared}, tag.SharedFunctionalGroupsSequence, tag.PlanePositionSequence)
	assert.False(t, ok)
}

func TestStringsNumbers(t *testing.T) {
	assert.Equal(t, []string{"7", "9"}, Strings(mustElement(t, tag.Rows, "US", []int{7, 9})))
	assert.Equal(t, []string{"0.5"}, Strings(mustElement(t, tag.ReferenceCoordinates, "FL", []float64{0.5})))
}

func TestPersonName(t *testing.T) {
	assert.Equal(t, "Smith^John", PersonName("Smith^John^^^ "))
	assert.Equal(t, "", PersonName("^^"))
	assert.Equal(t, "Doe", PersonName("Doe"))
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, sampleBody(t)))
	out := buf.String()
	assert.Contains(t, out, "[(0010,0010)] PN PatientName: [Smith^John^^^]")
	assert.Contains(t, out, "Pixel Data (4 bytes)")

	buf.Reset()
	require.NoError(t, DumpJSON(&buf, sampleBody(t)))
	assert.Contains(t, buf.String(), `"name": "ImageLaterality"`)
}

func TestQuickValidate(t *testing.T) {
	result := QuickValidate(sampleBody(t))
	assert.False(t, result.IsValid())
	var missing []tag.Tag
	for _, e := range result.Errors {
		missing = append(missing, e.Tag)
	}
	assert.Contains(t, missing, tag.StudyInstanceUID)
	assert.NotContains(t, missing, tag.SOPInstanceUID)
}
