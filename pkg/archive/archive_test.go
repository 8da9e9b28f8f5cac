package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestWithExtractedRemovesTempDir(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	writeZip(t, zipPath, map[string]string{
		"b/2.dcm": "two",
		"a/1.dcm": "one",
	})

	var seenDir string
	err := WithExtracted(context.Background(), zipPath, func(dir string, files []string) error {
		seenDir = dir
		require.Len(t, files, 2)
		assert.Equal(t, filepath.Join(dir, "a", "1.dcm"), files[0])
		return errors.New("callback failed")
	})
	assert.EqualError(t, err, "callback failed")
	_, statErr := os.Stat(seenDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractRejectsZipSlip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, zipPath, map[string]string{"../../escape.txt": "x"})
	err := Extract(context.Background(), zipPath, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestSelectDICOM(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
		err   error
	}{
		{
			name:  "single candidate",
			files: []string{"/t/x/img.dcm", "/t/x/notes.txt"},
			want:  "/t/x/img.dcm",
		},
		{
			name:  "mac resource forks are ignored",
			files: []string{"/t/__MACOSX/img.dcm", "/t/x/img.dcm"},
			want:  "/t/x/img.dcm",
		},
		{
			name:  "several candidates prefer .1.1.dcm",
			files: []string{"/t/x/a.2.1.dcm", "/t/x/.hidden.1.1.dcm", "/t/x/a.1.1.dcm"},
			want:  "/t/x/a.1.1.dcm",
		},
		{
			name:  "several candidates without .1.1.dcm",
			files: []string{"/t/x/a.dcm", "/t/x/b.dcm"},
			err:   ErrArchiveStructure,
		},
		{
			name:  "lone file without extension",
			files: []string{"/t/x/IM000001"},
			want:  "/t/x/IM000001",
		},
		{
			name:  "empty",
			files: nil,
			err:   ErrArchiveStructure,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectDICOM(tc.files)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"cfp/a.dcm", "cfp/b.txt", "oct/deep/c.dcm"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	all, err := Walk(root)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dcms, err := Walk(root, "**.dcm")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "cfp", "a.dcm"), filepath.Join(root, "oct", "deep", "c.dcm")}, dcms)

	top, err := Walk(root, "cfp/*")
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = Walk(root, "[")
	assert.Error(t, err)
}
