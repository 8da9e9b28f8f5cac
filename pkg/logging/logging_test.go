package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx(t *testing.T) {
	ctx := AppendCtx(context.Background(), slog.String("run", "r1"))
	ctx = AppendCtx(ctx, slog.String("item", "a.dcm"))

	attrs := Attrs(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, "run", attrs[0].Key)
	assert.Equal(t, "item", attrs[1].Key)

	// the parent is untouched
	parent := AppendCtx(context.Background(), slog.String("run", "r1"))
	_ = AppendCtx(parent, slog.String("item", "b.dcm"))
	assert.Len(t, Attrs(parent), 1)
}

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)
	ctx := AppendCtx(context.Background(), slog.String("run", "r1"))

	log.InfoContext(ctx, "converted", "path", "x.dcm")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "converted", rec["msg"])
	assert.Equal(t, "r1", rec["run"])
	assert.Equal(t, "x.dcm", rec["path"])
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelWarn)
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.log")
	w := RotatingFile(path, 0, 2)
	defer w.Close()
	log := Logger(w, false, slog.LevelInfo)
	log.Info("hello")
	require.FileExists(t, path)
}
