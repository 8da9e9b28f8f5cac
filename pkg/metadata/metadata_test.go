package metadata

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/dcmtest"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

func fixtures(t *testing.T) (dir, cfp, oct, junk string) {
	dir = t.TempDir()
	cfp = dcmtest.Write(t, dir, "cfp.dcm", transfer.ExplicitVRLittleEndian, dcmtest.Ophthalmic(t,
		dcmtest.El(t, tag.AcquisitionDateTime, "", "20230512093000.000000"),
	)...)
	oct = dcmtest.Write(t, dir, "oct.dcm", transfer.ImplicitVRLittleEndian, dcmtest.Ophthalmic(t,
		dcmtest.El(t, tag.SOPClassUID, "", dcm.OphthalmicTomographyUID),
		dcmtest.El(t, tag.Manufacturer, "", "Topcon"),
		dcmtest.El(t, tag.ImageLaterality, "", "L"),
	)...)
	junk = filepath.Join(dir, "junk.dcm")
	require.NoError(t, os.WriteFile(junk, []byte("not dicom"), 0o644))
	return dir, cfp, oct, junk
}

func TestNormalizeDateTime(t *testing.T) {
	tests := map[string]string{
		"20230512093000":             "2023-05-12T09:30:00",
		"20230512093000.123456":      "2023-05-12T09:30:00",
		"20230512093000.123456+0100": "2023-05-12T09:30:00",
		"20230512":                   "2023-05-12T00:00:00",
		"2023-05-12 09:30:00":        "2023-05-12T09:30:00",
		"":                           "",
		"unknown":                    "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDateTime(in), in)
	}
}

func TestProfiles(t *testing.T) {
	p, err := ProfileByName("OCT")
	require.NoError(t, err)
	assert.Equal(t, OCT, p)
	assert.Equal(t, "OCT", p.Modality(dcm.OphthalmicTomographyUID))
	assert.Equal(t, "not OCT", p.Modality(dcm.OphthalmicPhotography8BitUID))
	assert.Equal(t, "CFP/IR", CFPIR.Modality(dcm.OphthalmicPhotography8BitUID))
	_, err = ProfileByName("flio")
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	dir, cfp, oct, junk := fixtures(t)
	missing := filepath.Join(dir, "missing.dcm")

	rows, report := Collect(context.Background(), []string{cfp, oct, junk, missing}, CFPIR)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{
		Domain:              DomainDICOM,
		Modality:            "CFP/IR",
		PatientID:           "1001",
		Laterality:          "R",
		Manufacturer:        "Optomed",
		FilePath:            cfp,
		AcquisitionDateTime: "2023-05-12T09:30:00",
	}, rows[0])
	assert.Equal(t, "not CFP/IR", rows[1].Modality)
	assert.Equal(t, "L", rows[1].Laterality)
	assert.Equal(t, "Topcon", rows[1].Manufacturer)
	assert.Equal(t, "", rows[1].AcquisitionDateTime)
	assert.Equal(t, Row{Domain: DomainNotDICOM, FilePath: junk}, rows[2], "not dicom rows still name their file")

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, missing, failed[0].Item)
	assert.ErrorIs(t, failed[0].Err, dcm.ErrFileNotFound)
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, []Row{
		{Domain: DomainDICOM, Modality: "OCT", PatientID: "1001", Laterality: "R", Manufacturer: "Topcon",
			FilePath: "/data/oct.dcm", AcquisitionDateTime: "2023-05-12T09:30:00"},
		{Domain: DomainNotDICOM},
	}))
	want := "domain\tmodality\tpatient_id\tlaterality\tmanufacturer\tfilepath\tacquisitiondatetime\n" +
		"DICOM\tOCT\t1001\tR\tTopcon\t/data/oct.dcm\t2023-05-12T09:30:00\n" +
		"Not DICOM\t\t\t\t\t\t\n"
	assert.Equal(t, want, buf.String())
}

func TestSaveTSV(t *testing.T) {
	_, cfp, oct, _ := fixtures(t)
	out := filepath.Join(t.TempDir(), "meta", "oct.tsv")

	report, err := SaveTSV(context.Background(), out, []string{cfp, oct}, OCT)
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "not OCT", records[1][1])
	assert.Equal(t, "OCT", records[2][1])
}
