// Package transfer defines DICOM Transfer Syntaxes
package transfer

// Syntax represents a DICOM Transfer Syntax
type Syntax string

// Standard Transfer Syntaxes
const (
	// Uncompressed
	ImplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2.1"
	ExplicitVRLittleEndianExt Syntax = "1.2.840.10008.1.2.1.64" // Extended (>4GB)
	ExplicitVRBigEndian       Syntax = "1.2.840.10008.1.2.2"    // Retired

	// JPEG Lossless
	JPEGLossless           Syntax = "1.2.840.10008.1.2.4.57"
	JPEGLosslessFirstOrder Syntax = "1.2.840.10008.1.2.4.70"

	// JPEG-LS
	JPEGLSLossless     Syntax = "1.2.840.10008.1.2.4.80"
	JPEGLSNearLossless Syntax = "1.2.840.10008.1.2.4.81"

	// JPEG 2000
	JPEG2000Lossless Syntax = "1.2.840.10008.1.2.4.90"
	JPEG2000         Syntax = "1.2.840.10008.1.2.4.91"

	// JPEG Lossy
	JPEGBaseline Syntax = "1.2.840.10008.1.2.4.50"
	JPEGExtended Syntax = "1.2.840.10008.1.2.4.51"

	// Other
	RLELossless        Syntax = "1.2.840.10008.1.2.5"
	DeflatedExplicitVR Syntax = "1.2.840.10008.1.2.1.99"
)

// Flags are the two encoding properties a rewrite re-applies to its output
type Flags struct {
	LittleEndian bool `json:"little_endian"`
	ImplicitVR   bool `json:"implicit_vr"`
}

// IsExplicitVR returns true if this transfer syntax uses explicit VR
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian returns true if this transfer syntax uses little endian byte order
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// IsEncapsulated returns true if pixel data is encapsulated (compressed)
func (s Syntax) IsEncapsulated() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRLittleEndianExt, ExplicitVRBigEndian:
		return false
	default:
		return true
	}
}

// Flags reports the byte order and VR encoding of s
func (s Syntax) Flags() Flags {
	return Flags{LittleEndian: s.IsLittleEndian(), ImplicitVR: !s.IsExplicitVR()}
}

// Matches reports whether s encodes with the given flags
func (s Syntax) Matches(f Flags) bool {
	return s.Flags() == f
}

// FromFlags picks the uncompressed syntax for f. Implicit VR big endian does
// not exist, so it falls back to explicit big endian.
func FromFlags(f Flags) Syntax {
	switch {
	case f.LittleEndian && f.ImplicitVR:
		return ImplicitVRLittleEndian
	case f.LittleEndian:
		return ExplicitVRLittleEndian
	default:
		return ExplicitVRBigEndian
	}
}

// Name returns a human-readable name for the transfer syntax
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case ExplicitVRLittleEndianExt:
		return "Explicit VR Little Endian Extended"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	case JPEGLossless:
		return "JPEG Lossless (Process 14)"
	case JPEGLosslessFirstOrder:
		return "JPEG Lossless First-Order (Process 14, SV1)"
	case JPEGLSLossless:
		return "JPEG-LS Lossless"
	case JPEGLSNearLossless:
		return "JPEG-LS Near-Lossless"
	case JPEG2000Lossless:
		return "JPEG 2000 Lossless"
	case JPEG2000:
		return "JPEG 2000"
	case JPEGBaseline:
		return "JPEG Baseline (Process 1)"
	case JPEGExtended:
		return "JPEG Extended (Process 2 & 4)"
	case RLELossless:
		return "RLE Lossless"
	case DeflatedExplicitVR:
		return "Deflated Explicit VR Little Endian"
	default:
		return string(s)
	}
}

// FromUID converts a UID string to a Syntax
func FromUID(uid string) Syntax {
	return Syntax(uid)
}
