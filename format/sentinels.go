package format

import (
	"errors"
	"fmt"
)

// ErrInvalidSentinel is returned when a 16-byte section sentinel does not
// match the expected pattern.
var ErrInvalidSentinel = errors.New("invalid section sentinel")

// Sentinel is a fixed 16-byte marker that brackets checksummed sections.
type Sentinel [16]byte

var (
	SentinelHeaderStart = Sentinel{
		0xCF, 0x7B, 0x1F, 0x23, 0xFD, 0xDE, 0x38, 0xA9,
		0x5F, 0x7C, 0x68, 0xB8, 0x4E, 0x6D, 0x33, 0x5F,
	}
	SentinelHeaderEnd = Sentinel{
		0x30, 0x84, 0xE0, 0xDC, 0x02, 0x21, 0xC7, 0x56,
		0xA0, 0x83, 0x97, 0x47, 0xB1, 0x92, 0xCC, 0xA0,
	}
	SentinelClassesStart = Sentinel{
		0x8D, 0xA1, 0xC4, 0xB8, 0xC4, 0xA9, 0xF8, 0xC5,
		0xC0, 0xDC, 0xF4, 0x5F, 0xE7, 0xCF, 0xB6, 0x8A,
	}
	SentinelClassesEnd = Sentinel{
		0x72, 0x5E, 0x3B, 0x47, 0x3B, 0x56, 0x07, 0x3A,
		0x3F, 0x23, 0x0B, 0xA0, 0x18, 0x30, 0x49, 0x75,
	}
	SentinelPreviewStart = Sentinel{
		0x1F, 0x25, 0x6D, 0x07, 0xD4, 0x36, 0x28, 0x28,
		0x9D, 0x57, 0xCA, 0x3F, 0x9D, 0x44, 0x10, 0x2B,
	}
	SentinelPreviewEnd = Sentinel{
		0xE0, 0xDA, 0x92, 0xF8, 0x2B, 0xC9, 0xD7, 0xD7,
		0x62, 0xA8, 0x35, 0xC0, 0x62, 0xBB, 0xEF, 0xD4,
	}
	// SentinelFileHeaderEnd closes the AC1015-and-earlier file header.
	SentinelFileHeaderEnd = Sentinel{
		0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5,
		0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00,
	}
)

// CheckSentinel validates that actual holds the expected sentinel bytes.
func CheckSentinel(actual []byte, expected Sentinel) error {
	if len(actual) != len(expected) {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidSentinel, len(actual))
	}
	for i, b := range expected {
		if actual[i] != b {
			return fmt.Errorf("%w: mismatch at byte %d", ErrInvalidSentinel, i)
		}
	}
	return nil
}
