package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/fairdata.go/pkg/logging"
)

func TestRunContinuesPastFailures(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	report := Run(context.Background(), items, func(_ context.Context, item string) (string, error) {
		switch item {
		case "b":
			return "", errors.New("bad input")
		case "d":
			panic("codec exploded")
		}
		return item + "!", nil
	})

	require.Len(t, report.Results, 5)
	assert.NotEmpty(t, report.RunID)
	for i, res := range report.Results {
		assert.Equal(t, items[i], res.Item)
	}
	assert.Len(t, report.Succeeded(), 3)
	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.EqualError(t, failed[0].Err, "bad input")
	assert.Contains(t, failed[1].Err.Error(), "codec exploded")
	assert.Equal(t, "e!", report.Results[4].Value)
	assert.Contains(t, report.Summary(), "3 ok, 2 failed")
}

func TestRunStableItemIDs(t *testing.T) {
	fn := func(context.Context, string) (int, error) { return 1, nil }
	a := Run(context.Background(), []string{"x"}, fn)
	b := Run(context.Background(), []string{"x"}, fn)
	assert.Equal(t, a.Results[0].ID, b.Results[0].ID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	report := Run(ctx, []string{"1", "2", "3"}, func(_ context.Context, item string) (struct{}, error) {
		seen = append(seen, item)
		if item == "1" {
			cancel()
		}
		return struct{}{}, nil
	})
	assert.Equal(t, []string{"1"}, seen)
	require.Len(t, report.Results, 3)
	assert.NoError(t, report.Results[0].Err)
	assert.ErrorIs(t, report.Results[1].Err, context.Canceled)
	assert.ErrorIs(t, report.Results[2].Err, context.Canceled)
}

func TestRunDumpsFailuresOnlyAtDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	fail := func(context.Context, string) (int, error) { return 0, errors.New("bad input") }

	var buf bytes.Buffer
	slog.SetDefault(logging.Logger(&buf, false, slog.LevelInfo))
	Run(context.Background(), []string{"x"}, fail)
	assert.Contains(t, buf.String(), "batch item failed")
	assert.NotContains(t, buf.String(), "batch item dump")

	buf.Reset()
	slog.SetDefault(logging.Logger(&buf, false, slog.LevelDebug))
	Run(context.Background(), []string{"x"}, fail)
	assert.Contains(t, buf.String(), "batch item dump")
}
