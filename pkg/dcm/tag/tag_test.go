package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	cases := map[string]Tag{
		"00100010":    PatientName,
		"0020000D":    StudyInstanceUID,
		"0020000d":    StudyInstanceUID,
		"(0008,1090)": ManufacturerModelName,
		" 52009229 ":  SharedFunctionalGroupsSequence,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "0010", "0010001G", "001000100"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestHexAndString(t *testing.T) {
	assert.Equal(t, "0020000D", StudyInstanceUID.Hex())
	assert.Equal(t, "(0020,000D)", StudyInstanceUID.String())
	assert.Equal(t, "7FE00010", PixelData.Hex())
}

func TestKeyword(t *testing.T) {
	assert.Equal(t, "PatientName", PatientName.Keyword())
	assert.Equal(t, "ManufacturerModelName", ManufacturerModelName.Keyword())
	assert.Equal(t, "PN", PatientName.DictVR())
	assert.Equal(t, "SQ", AnatomicRegionSequence.DictVR())
	assert.Empty(t, HeidelbergScanPattern.Keyword())
	assert.True(t, HeidelbergScanPattern.IsPrivate())
	assert.True(t, TransferSyntaxUID.IsFileMeta())
}

func TestOrdering(t *testing.T) {
	assert.True(t, TransferSyntaxUID.Less(SOPClassUID))
	assert.True(t, SOPClassUID.Less(SOPInstanceUID))
	assert.False(t, PixelData.Less(PatientName))
}

func TestYAMLRoundTrip(t *testing.T) {
	type doc struct {
		Tags []Tag `yaml:"tags"`
	}
	out, err := yaml.Marshal(doc{Tags: []Tag{PatientName, ImageLaterality}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "00100010")

	var back doc
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, []Tag{PatientName, ImageLaterality}, back.Tags)
}
