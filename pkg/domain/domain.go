// Package domain binds each imaging data domain to its conversion rule and
// metadata table.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jpfielding/fairdata.go/pkg/convert"
	"github.com/jpfielding/fairdata.go/pkg/metadata"
)

// Domain converts the files of one data domain and tabulates them
type Domain interface {
	Name() string
	Convert(ctx context.Context, in, out string) error
	Metadata(ctx context.Context, files []string, out string) error
}

// Imaging is a DICOM domain
type Imaging struct {
	name    string
	rule    *convert.ConversionRule
	profile metadata.Profile
}

// NewImaging binds rule and profile under name
func NewImaging(name string, rule *convert.ConversionRule, profile metadata.Profile) *Imaging {
	return &Imaging{name: name, rule: rule, profile: profile}
}

// CFPIR is color fundus and infrared photography
func CFPIR() *Imaging {
	return NewImaging("cfpir", convert.CFPIR(), metadata.CFPIR)
}

// OCT is optical coherence tomography
func OCT() *Imaging {
	return NewImaging("oct", convert.OCTB(), metadata.OCT)
}

func (d *Imaging) Name() string { return d.name }

// Rule is the conversion rule of the domain
func (d *Imaging) Rule() *convert.ConversionRule { return d.rule }

// Convert rewrites in, a DICOM file or vendor zip, to out
func (d *Imaging) Convert(ctx context.Context, in, out string) error {
	return convert.Convert(ctx, d.rule, in, out)
}

// Metadata writes the TSV table for files to out. Unreadable files are
// logged and left out of the table.
func (d *Imaging) Metadata(ctx context.Context, files []string, out string) error {
	report, err := metadata.SaveTSV(ctx, out, files, d.profile)
	if err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		slog.WarnContext(ctx, "metadata incomplete", "domain", d.name, "failed", len(failed))
	}
	return nil
}

var domains = map[string]func() *Imaging{
	"cfpir": CFPIR,
	"oct":   OCT,
}

// Names lists the known domains
func Names() []string {
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a domain by name
func Lookup(name string) (Domain, error) {
	fn, ok := domains[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown domain %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return fn(), nil
}
