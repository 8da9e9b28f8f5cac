// Package identify recognizes the vendor export zips collected by the study
// and summarizes each one without converting it.
package identify

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/jpfielding/fairdata.go/pkg/archive"
	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/classify"
)

var (
	// ErrNotZip is returned for inputs without a .zip extension
	ErrNotZip = errors.New("not a zip file")
	// ErrUnknownKind is returned for zips no identifier recognizes
	ErrUnknownKind = errors.New("unknown file type")
	// ErrFilename is returned when a name lacks the parts its kind encodes
	ErrFilename = errors.New("unexpected file name")
	// ErrLaterality is returned for FLIO names without an OD or OS eye
	ErrLaterality = errors.New("invalid laterality")
)

// Kind is the detected export type
type Kind int

const (
	KindNotZip Kind = iota
	KindEnv
	KindECG
	KindFLIO
	KindDICOM
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNotZip:
		return "not-zip"
	case KindEnv:
		return "env"
	case KindECG:
		return "ecg"
	case KindFLIO:
		return "flio"
	case KindDICOM:
		return "dicom"
	}
	return "unknown"
}

// DICOMVendors are the device names that mark an imaging export
var DICOMVendors = []string{"Optomed", "Eidon", "Maestro", "Triton", "Cirrus", "Spectralis"}

// DetectKind classifies path by its name. The whole path is inspected since
// exports are filed under device named folders.
func DetectKind(path string) Kind {
	switch {
	case !strings.HasSuffix(path, ".zip"):
		return KindNotZip
	case strings.Contains(path, "ENV"):
		return KindEnv
	case strings.Contains(path, "xml"):
		return KindECG
	case strings.Contains(path, "FLIO"):
		return KindFLIO
	}
	for _, vendor := range DICOMVendors {
		if strings.Contains(path, vendor) {
			return KindDICOM
		}
	}
	return KindUnknown
}

// Identify summarizes the export at path
func Identify(ctx context.Context, path string) (*classify.Summary, error) {
	kind := DetectKind(path)
	slog.DebugContext(ctx, "identify", "path", path, "kind", kind)
	switch kind {
	case KindNotZip:
		return nil, fmt.Errorf("%s: %w", path, ErrNotZip)
	case KindEnv:
		return identifyEnv(path)
	case KindECG:
		return identifyECG(ctx, path)
	case KindFLIO:
		return identifyFLIO(path)
	case KindDICOM:
		return identifyDICOM(ctx, path)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownKind)
}

// IdentifyBatch summarizes many exports; a bad one never stops the rest
func IdentifyBatch(ctx context.Context, paths []string) batch.Report[*classify.Summary] {
	return batch.Run(ctx, paths, Identify)
}

// identifyEnv reads <...>-<patient>-<sensor>.zip
func identifyEnv(path string) (*classify.Summary, error) {
	parts := strings.Split(filepath.Base(path), "-")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%s: want <patient>-<sensor>.zip: %w", path, ErrFilename)
	}
	sensor, _, _ := strings.Cut(parts[len(parts)-1], ".")
	return &classify.Summary{
		Domain:     "CSV",
		PatientID:  "AIREADI-" + parts[len(parts)-2],
		Laterality: classify.NotAvailable,
		Protocol:   "environmental_sensor",
		SensorID:   sensor,
	}, nil
}

// identifyFLIO reads the patient seven fields from the end and the eye from the last
func identifyFLIO(path string) (*classify.Summary, error) {
	parts := strings.Split(filepath.Base(path), "_")
	if len(parts) < 7 {
		return nil, fmt.Errorf("%s: want at least 7 '_' separated fields: %w", path, ErrFilename)
	}
	var laterality string
	switch eye := parts[len(parts)-1]; {
	case strings.HasPrefix(eye, "OD"):
		laterality = "R"
	case strings.HasPrefix(eye, "OS"):
		laterality = "L"
	default:
		return nil, fmt.Errorf("%s: %q: %w", path, eye, ErrLaterality)
	}
	return &classify.Summary{
		Domain:     classify.DomainDICOM,
		PatientID:  "AIREADI-" + parts[len(parts)-7],
		Laterality: laterality,
		Protocol:   "FLIO",
	}, nil
}

func identifyDICOM(ctx context.Context, path string) (*classify.Summary, error) {
	var s classify.Summary
	err := archive.WithExtracted(ctx, path, func(_ string, files []string) error {
		in, err := archive.SelectDICOM(files)
		if err != nil {
			return err
		}
		s, err = classify.Summarize(in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// RestingECG is the part of a resting ECG export the identifier reads
type RestingECG struct {
	XMLName      xml.Name `xml:"restingecgdata"`
	DocumentInfo struct {
		DocumentName string `xml:"documentname"`
	} `xml:"documentinfo"`
	UserDefines struct {
		UserDefine []struct {
			Label string `xml:"label"`
			Value string `xml:"value"`
		} `xml:"userdefine"`
	} `xml:"userdefines"`
	Patient struct {
		GeneralPatientData struct {
			Name struct {
				FirstName string `xml:"firstname"`
				LastName  string `xml:"lastname"`
			} `xml:"name"`
		} `xml:"generalpatientdata"`
	} `xml:"patient"`
}

// ReadRestingECG decodes an ECG export in any declared charset
func ReadRestingECG(path string) (*RestingECG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ecg: %w", err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	dec.CharsetReader = charset.NewReaderLabel
	var ecg RestingECG
	if err := dec.Decode(&ecg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &ecg, nil
}

func identifyECG(ctx context.Context, path string) (*classify.Summary, error) {
	var s *classify.Summary
	err := archive.WithExtracted(ctx, path, func(_ string, files []string) error {
		if len(files) == 0 {
			return fmt.Errorf("empty archive: %w", archive.ErrArchiveStructure)
		}
		ecg, err := ReadRestingECG(files[0])
		if err != nil {
			return err
		}
		if len(ecg.UserDefines.UserDefine) == 0 {
			return fmt.Errorf("%s: no userdefine entries: %w", filepath.Base(files[0]), archive.ErrArchiveStructure)
		}
		s = &classify.Summary{
			Domain:     "xml",
			PatientID:  ecg.Patient.GeneralPatientData.Name.FirstName,
			Laterality: "NA",
			Protocol:   "ECG",
			DocName:    ecg.DocumentInfo.DocumentName,
			Pos:        ecg.UserDefines.UserDefine[0].Value,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
