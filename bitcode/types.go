package bitcode

// Point2D is a pair of doubles as stored by the 2RD and 2BD field types.
type Point2D struct {
	X, Y float64
}

// Point3D is a triple of doubles as stored by the 3RD and 3BD field types.
type Point3D struct {
	X, Y, Z float64
}

// UnitZ is the default extrusion direction selected by the one-bit
// shortcut form of R2000 and later streams.
var UnitZ = Point3D{Z: 1}

// ColorMode selects how a Color resolves.
type ColorMode uint8

const (
	ColorByBlock ColorMode = iota
	ColorByLayer
	ColorIndexed
	ColorTrueColor
)

// Color is a drawing color as carried by the CMC and ENC field types.
// Indexed colors hold Index; true colors hold the RGB channels.
type Color struct {
	Mode    ColorMode
	Index   int16
	R, G, B uint8
}

// ColorFromIndex maps a color number to a Color. Index 0 means ByBlock and
// 256 means ByLayer; everything else is a palette index.
func ColorFromIndex(index int16) Color {
	switch index {
	case 0:
		return Color{Mode: ColorByBlock}
	case 256:
		return Color{Mode: ColorByLayer}
	default:
		return Color{Mode: ColorIndexed, Index: index}
	}
}

// ColorFromRGB builds a true color.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{Mode: ColorTrueColor, R: r, G: g, B: b}
}

// ColorIndex is the inverse of ColorFromIndex for the legacy index form.
// True colors collapse to index 7, matching how pre-2004 streams store
// colors they cannot represent.
func (c Color) ColorIndex() int16 {
	switch c.Mode {
	case ColorByBlock:
		return 0
	case ColorByLayer:
		return 256
	case ColorTrueColor:
		return 7
	default:
		return c.Index
	}
}

// EntityColor is the ENC field type of 2004 and later streams: a color plus
// an optional transparency word and a book-color marker.
type EntityColor struct {
	Color           Color
	Transparency    uint32
	HasTransparency bool
	IsBookColor     bool
}

// ReferenceType classifies a handle reference by its 4-bit code.
type ReferenceType uint8

const (
	RefUndefined          ReferenceType = 0
	RefSoftOwnership      ReferenceType = 2
	RefHardOwnership      ReferenceType = 3
	RefSoftPointer        ReferenceType = 4
	RefHardPointer        ReferenceType = 5
	RefPlusOne            ReferenceType = 6
	RefMinusOne           ReferenceType = 8
	RefPlusOffset         ReferenceType = 0xA
	RefMinusOffset        ReferenceType = 0xC
)

// refTypeFromCode maps a raw 4-bit reference code, falling back to
// RefUndefined for codes outside the known set.
func refTypeFromCode(code byte) ReferenceType {
	switch code {
	case 0, 2, 3, 4, 5, 6, 8, 0xA, 0xC:
		return ReferenceType(code)
	default:
		return RefUndefined
	}
}

// IsAbsolute reports whether the reference carries an absolute handle
// rather than an offset from the owner's handle.
func (r ReferenceType) IsAbsolute() bool {
	switch r {
	case RefUndefined, RefSoftOwnership, RefHardOwnership, RefSoftPointer, RefHardPointer:
		return true
	default:
		return false
	}
}

// JulianToUnix converts a Julian day number plus milliseconds-of-day into
// seconds since the Unix epoch. Drawing files store timestamps in the
// Julian form; this helper is for callers that want wall-clock values.
func JulianToUnix(jdate, milliseconds int32) float64 {
	return (float64(jdate)-2440587.5)*86400.0 + float64(milliseconds)/1000.0
}
