package identify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/fairdata.go/pkg/archive"
	"github.com/jpfielding/fairdata.go/pkg/classify"
	"github.com/jpfielding/fairdata.go/pkg/dcm/dcmtest"
	"github.com/jpfielding/fairdata.go/pkg/dcm/transfer"
)

const restingECG = `<?xml version="1.0" encoding="ISO-8859-1"?>
<restingecgdata xmlns="http://www3.medical.philips.com">
  <documentinfo><documentname>1001_20230512.xml</documentname></documentinfo>
  <userdefines>
    <userdefine><label>Position</label><value>Supine</value></userdefine>
    <userdefine><label>Site</label><value>UW</value></userdefine>
  </userdefines>
  <patient><generalpatientdata><name><firstname>Jos` + "\xe9" + `</firstname></name></generalpatientdata></patient>
</restingecgdata>`

func TestDetectKind(t *testing.T) {
	tests := map[string]Kind{
		"/data/AIREADI-ENV-1001-4471.zip":      KindEnv,
		"/data/ecg_xml_1001.zip":               KindECG,
		"/data/FLIO/1001_OD.zip":               KindFLIO,
		"/data/Spectralis/1001.zip":            KindDICOM,
		"/data/1001_Optomed.zip":               KindDICOM,
		"/data/1001_unknown.zip":               KindUnknown,
		"/data/1001_Optomed.dcm":               KindNotZip,
		"/data/ENV_xml_FLIO_Cirrus_export.zip": KindEnv,
	}
	for path, want := range tests {
		t.Run(filepath.Base(path), func(t *testing.T) {
			assert.Equal(t, want, DetectKind(path), want.String())
		})
	}
}

func TestIdentifyEnv(t *testing.T) {
	s, err := Identify(context.Background(), "/data/AIREADI-ENV-1001-4471.zip")
	require.NoError(t, err)
	assert.Equal(t, &classify.Summary{
		Domain:     "CSV",
		PatientID:  "AIREADI-1001",
		Laterality: "N/A",
		Protocol:   "environmental_sensor",
		SensorID:   "4471",
	}, s)
}

func TestIdentifyFLIO(t *testing.T) {
	s, err := Identify(context.Background(), "/data/FLIO_1001_20230512_093000_scan_a_1_OS.zip")
	require.NoError(t, err)
	assert.Equal(t, "AIREADI-1001", s.PatientID)
	assert.Equal(t, "L", s.Laterality)
	assert.Equal(t, "FLIO", s.Protocol)

	_, err = Identify(context.Background(), "/data/FLIO_1001_20230512_093000_scan_a_1_OU.zip")
	assert.ErrorIs(t, err, ErrLaterality)
	_, err = Identify(context.Background(), "/data/FLIO_1001_OD.zip")
	assert.ErrorIs(t, err, ErrFilename)
}

func TestIdentifyECG(t *testing.T) {
	path := dcmtest.Zip(t, filepath.Join(t.TempDir(), "ecg_xml_1001.zip"), map[string][]byte{
		"1001/ecg.xml": []byte(restingECG),
	})
	s, err := Identify(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, &classify.Summary{
		Domain:     "xml",
		PatientID:  "José",
		Laterality: "NA",
		Protocol:   "ECG",
		DocName:    "1001_20230512.xml",
		Pos:        "Supine",
	}, s)
}

func TestIdentifyDICOM(t *testing.T) {
	cfp := dcmtest.Bytes(t, transfer.ExplicitVRLittleEndian, dcmtest.Ophthalmic(t)...)
	path := dcmtest.Zip(t, filepath.Join(t.TempDir(), "1001_Optomed.zip"), map[string][]byte{
		"1001/cfp.dcm":            cfp,
		"__MACOSX/1001/._cfp.dcm": []byte("resource fork"),
	})
	s, err := Identify(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, classify.DomainDICOM, s.Domain)
	assert.Equal(t, "1001", s.PatientID)
	assert.Equal(t, "R", s.Laterality)
	assert.Equal(t, "OptoMed_CFP_Disc_or_Mac_centered", s.Protocol)

	empty := dcmtest.Zip(t, filepath.Join(t.TempDir(), "1002_Optomed.zip"), map[string][]byte{
		"a.txt": []byte("a"),
		"b.txt": []byte("b"),
	})
	_, err = Identify(context.Background(), empty)
	assert.ErrorIs(t, err, archive.ErrArchiveStructure)
}

func TestIdentifyErrors(t *testing.T) {
	_, err := Identify(context.Background(), "/data/1001_Optomed.dcm")
	assert.ErrorIs(t, err, ErrNotZip)
	_, err = Identify(context.Background(), "/data/1001_unknown.zip")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestIdentifyBatch(t *testing.T) {
	report := IdentifyBatch(context.Background(), []string{
		"/data/AIREADI-ENV-1001-4471.zip",
		"/data/notes.txt",
		"/data/AIREADI-ENV-1002-4472.zip",
	})
	require.Len(t, report.Results, 3)
	assert.Len(t, report.Succeeded(), 2)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "/data/notes.txt", failed[0].Item)
	assert.ErrorIs(t, failed[0].Err, ErrNotZip)
	assert.Equal(t, "AIREADI-1002", report.Results[2].Value.PatientID)
}
