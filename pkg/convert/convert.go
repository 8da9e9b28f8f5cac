package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/fairdata.go/pkg/archive"
	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/util"
)

// Write rewrites ext under rule and encodes the result to path
func Write(path string, rule *ConversionRule, ext *Extraction) error {
	meta, body, err := Rewrite(rule, ext)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	return dcm.WriteFile(path, meta, body, ext.Flags)
}

// ConvertFile converts one DICOM file
func ConvertFile(ctx context.Context, rule *ConversionRule, in, out string) error {
	ext, err := Extract(in, rule)
	if err != nil {
		return err
	}
	if err := Write(out, rule, ext); err != nil {
		return err
	}
	slog.DebugContext(ctx, "converted", "rule", rule.Name, "in", in, "out", out)
	return nil
}

// ConvertZip converts the DICOM file selected from a vendor zip export
func ConvertZip(ctx context.Context, rule *ConversionRule, zipPath, out string) error {
	return archive.WithExtracted(ctx, zipPath, func(_ string, files []string) error {
		in, err := archive.SelectDICOM(files)
		if err != nil {
			return fmt.Errorf("%s: %w", zipPath, err)
		}
		return ConvertFile(ctx, rule, in, out)
	})
}

// Convert dispatches on the input extension
func Convert(ctx context.Context, rule *ConversionRule, in, out string) error {
	if strings.EqualFold(filepath.Ext(in), ".zip") {
		return ConvertZip(ctx, rule, in, out)
	}
	return ConvertFile(ctx, rule, in, out)
}

// OutputPath names the converted file for in under outDir
func OutputPath(outDir, in string) string {
	base := filepath.Base(in)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+".dcm")
}

// ConvertBatch converts every input into outDir. A failed input never stops
// the batch; the report value is the output path. Inputs sharing a base name
// after the first get the short hash of their input path appended.
func ConvertBatch(ctx context.Context, rule *ConversionRule, inputs []string, outDir string) batch.Report[string] {
	claimed := map[string]string{}
	return batch.Run(ctx, inputs, func(ctx context.Context, in string) (string, error) {
		out := OutputPath(outDir, in)
		if prev, ok := claimed[out]; ok && prev != in {
			out = disambiguate(out, in)
			slog.WarnContext(ctx, "output name taken", "first", prev, "out", out)
		}
		claimed[out] = in
		if err := Convert(ctx, rule, in, out); err != nil {
			return "", err
		}
		return out, nil
	})
}

func disambiguate(out, in string) string {
	return strings.TrimSuffix(out, ".dcm") + "-" + util.HashUUID(in)[:8] + ".dcm"
}
