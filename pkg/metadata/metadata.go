// Package metadata collects the per-file acquisition table that accompanies a
// converted imaging domain.
package metadata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/dcm"
	"github.com/jpfielding/fairdata.go/pkg/dcm/tag"
	"github.com/jpfielding/fairdata.go/pkg/logging"
)

// DateTimeLayout is the normalized acquisition datetime
const DateTimeLayout = "2006-01-02T15:04:05"

// Domain values of a row
const (
	DomainDICOM    = "DICOM"
	DomainNotDICOM = "Not DICOM"
)

// Columns is the header of the table
var Columns = []string{
	"domain",
	"modality",
	"patient_id",
	"laterality",
	"manufacturer",
	"filepath",
	"acquisitiondatetime",
}

// Profile decides the modality column for one imaging domain
type Profile struct {
	Name        string
	SOPClassUID string
	Match       string
	Mismatch    string
}

var (
	// CFPIR tags fundus photography
	CFPIR = Profile{Name: "cfpir", SOPClassUID: dcm.OphthalmicPhotography8BitUID, Match: "CFP/IR", Mismatch: "not CFP/IR"}
	// OCT tags tomography B-scans
	OCT = Profile{Name: "oct", SOPClassUID: dcm.OphthalmicTomographyUID, Match: "OCT", Mismatch: "not OCT"}
)

// ProfileByName resolves cfpir or oct
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(name) {
	case CFPIR.Name:
		return CFPIR, nil
	case OCT.Name:
		return OCT, nil
	}
	return Profile{}, fmt.Errorf("unknown metadata profile %q", name)
}

// Modality labels a SOP class under the profile
func (p Profile) Modality(sopClassUID string) string {
	if sopClassUID == p.SOPClassUID {
		return p.Match
	}
	return p.Mismatch
}

// Row is one line of the table
type Row struct {
	Domain              string
	Modality            string
	PatientID           string
	Laterality          string
	Manufacturer        string
	FilePath            string
	AcquisitionDateTime string
}

// Record is the row in column order
func (r Row) Record() []string {
	return []string{r.Domain, r.Modality, r.PatientID, r.Laterality, r.Manufacturer, r.FilePath, r.AcquisitionDateTime}
}

// ReadRow builds the row for path. Files the codec rejects still get a row,
// marked Not DICOM with only the path filled in; missing files are an error.
func ReadRow(path string, p Profile) (Row, error) {
	f, err := dcm.ReadFile(path, dcm.WithoutPixelData())
	if err != nil && !errors.Is(err, dcm.ErrNotDICOM) {
		return Row{}, err
	}
	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		return Row{}, fmt.Errorf("resolving %s: %w", path, absErr)
	}
	if err != nil {
		return Row{Domain: DomainNotDICOM, FilePath: abs}, nil
	}
	body := f.Dataset.Elements
	get := func(t tag.Tag) string {
		v, _ := dcm.First(body, t)
		return v
	}
	return Row{
		Domain:              DomainDICOM,
		Modality:            p.Modality(get(tag.SOPClassUID)),
		PatientID:           get(tag.PatientID),
		Laterality:          get(tag.ImageLaterality),
		Manufacturer:        get(tag.Manufacturer),
		FilePath:            abs,
		AcquisitionDateTime: NormalizeDateTime(get(tag.AcquisitionDateTime)),
	}, nil
}

// NormalizeDateTime rewrites a DICOM DT or vendor date into DateTimeLayout.
// Values that do not parse are returned as they are.
func NormalizeDateTime(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	// DT carries optional fractional seconds and a UTC offset after the
	// 14 digit stamp; the table keeps local acquisition time only
	if len(s) > 14 && isDigits(s[:14]) {
		s = s[:14]
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return raw
	}
	return t.Format(DateTimeLayout)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Collect reads a row per file. Failed files are in the report and have no row.
func Collect(ctx context.Context, files []string, p Profile) ([]Row, batch.Report[Row]) {
	ctx = logging.AppendCtx(ctx, slog.String("profile", p.Name))
	report := batch.Run(ctx, files, func(_ context.Context, path string) (Row, error) {
		return ReadRow(path, p)
	})
	rows := make([]Row, 0, len(report.Results))
	for _, res := range report.Succeeded() {
		rows = append(rows, res.Value)
	}
	return rows, report
}

// WriteTSV writes the header and rows tab separated
func WriteTSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("writing %s: %w", r.FilePath, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTSV collects rows for files and writes them to path
func SaveTSV(ctx context.Context, path string, files []string, p Profile) (batch.Report[Row], error) {
	rows, report := Collect(ctx, files, p)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return report, fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return report, fmt.Errorf("creating %s: %w", path, err)
	}
	err = WriteTSV(f, rows)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return report, err
}
