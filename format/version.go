package format

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is returned when a file carries a version tag this
// library cannot read or write.
var ErrUnsupportedVersion = errors.New("unsupported drawing version")

// Version identifies a drawing file generation. The numeric values match the
// release numbers stored inside the file headers, so they order correctly
// with plain comparisons.
type Version uint8

const (
	VersionUnknown Version = 0
	AC1012         Version = 19 // R13
	AC1014         Version = 21 // R14
	AC1015         Version = 23 // R2000
	AC1018         Version = 25 // R2004
	AC1021         Version = 27 // R2007
	AC1024         Version = 29 // R2010
	AC1027         Version = 31 // R2013
	AC1032         Version = 33 // R2018
)

// ParseVersion maps a 6-byte version tag (e.g. "AC1015") to its Version.
func ParseVersion(tag string) (Version, error) {
	switch tag {
	case "AC1012":
		return AC1012, nil
	case "AC1014":
		return AC1014, nil
	case "AC1015":
		return AC1015, nil
	case "AC1018":
		return AC1018, nil
	case "AC1021":
		return AC1021, nil
	case "AC1024":
		return AC1024, nil
	case "AC1027":
		return AC1027, nil
	case "AC1032":
		return AC1032, nil
	default:
		return VersionUnknown, fmt.Errorf("%w: %q", ErrUnsupportedVersion, tag)
	}
}

func (v Version) String() string {
	switch v {
	case AC1012:
		return "AC1012"
	case AC1014:
		return "AC1014"
	case AC1015:
		return "AC1015"
	case AC1018:
		return "AC1018"
	case AC1021:
		return "AC1021"
	case AC1024:
		return "AC1024"
	case AC1027:
		return "AC1027"
	case AC1032:
		return "AC1032"
	default:
		return "Unknown"
	}
}

// Flags precomputes the version gates used throughout the section and
// object-stream codecs, so version-conditional reads stay concise.
type Flags struct {
	R13_14Only bool // AC1012 or AC1014
	R13_15Only bool // AC1012 through AC1015
	R2000Plus  bool // AC1015+
	R2004Pre   bool // before AC1018
	R2007Pre   bool // AC1021 and before
	R2004Plus  bool // AC1018+
	R2007Plus  bool // AC1021+
	R2010Plus  bool // AC1024+
	R2013Plus  bool // AC1027+
	R2018Plus  bool // AC1032+
}

// VersionFlags computes the gate set for a version.
func VersionFlags(v Version) Flags {
	return Flags{
		R13_14Only: v == AC1012 || v == AC1014,
		R13_15Only: v >= AC1012 && v <= AC1015,
		R2000Plus:  v >= AC1015,
		R2004Pre:   v < AC1018,
		R2007Pre:   v <= AC1021,
		R2004Plus:  v >= AC1018,
		R2007Plus:  v >= AC1021,
		R2010Plus:  v >= AC1024,
		R2013Plus:  v >= AC1027,
		R2018Plus:  v >= AC1032,
	}
}
