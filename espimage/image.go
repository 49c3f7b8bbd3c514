package espimage

import "fmt"

// Constants for the ESP image format.
const (
	// Magic is the first byte of every application image header
	Magic = 0xE9

	// HeaderSize is the size of the packed image header in bytes
	HeaderSize = 24

	// SegmentHeaderSize is the size of a segment header (load address + length)
	SegmentHeaderSize = 8

	// MaxSegments is the segment limit enforced by the ESP-IDF image tools
	MaxSegments = 16

	// DefaultImageOffset is the flash offset of the application image
	DefaultImageOffset = 0x10000

	// WPPinDisabled is the WP pin value meaning "not used"
	WPPinDisabled = 0xEE
)

// Header is the main header of an application image.
type Header struct {
	// Magic must be 0xE9 for a valid image
	Magic byte

	// SegmentCount is the number of segments following the header
	SegmentCount byte

	// SPIMode is the flash read mode
	SPIMode SPIMode

	// SPISpeedSize holds the flash frequency (low nibble) and flash size (high nibble)
	SPISpeedSize byte

	// EntryAddr is the address control is transferred to after loading
	EntryAddr uint32

	// WPPin is the WP pin when SPI pins are set via efuse (0xEE = disabled)
	WPPin byte

	// SPIPinDrv holds the drive settings for the SPI flash pins
	SPIPinDrv [3]byte

	// ChipID identifies the chip the image was built for
	ChipID ChipID

	// MinChipRev is the legacy minimal chip revision
	MinChipRev byte

	// MinChipRevFull is the minimal chip revision as major*100 + minor
	MinChipRevFull uint16

	// MaxChipRevFull is the maximal chip revision as major*100 + minor
	MaxChipRevFull uint16

	// Reserved bytes, currently unused
	Reserved [4]byte

	// HashAppended is 1 when a SHA-256 digest follows the image checksum
	HashAppended byte
}

// SegmentHeader precedes each segment's payload in flash.
type SegmentHeader struct {
	// LoadAddr is the address the segment is placed at (0 = no placement)
	LoadAddr uint32

	// DataLen is the payload length in bytes
	DataLen uint32
}

// Segment is a segment header together with its position and payload.
type Segment struct {
	// Index is the ordinal of the segment in the image
	Index int

	// Offset is the absolute flash offset of the segment header
	Offset uint32

	SegmentHeader

	// Data is the segment payload
	Data []byte
}

// PayloadOffset returns the absolute flash offset of the segment payload.
func (s *Segment) PayloadOffset() uint32 {
	return s.Offset + SegmentHeaderSize
}

// Image is a fully parsed application image.
type Image struct {
	// Offset is the flash offset the image was parsed from
	Offset uint32

	// Header is the decoded image header
	Header Header

	// Segments holds all segments in stored order
	Segments []*Segment
}

// Size returns the number of bytes covered by the header and all segments.
func (img *Image) Size() uint32 {
	size := uint32(HeaderSize)
	for _, seg := range img.Segments {
		size += SegmentHeaderSize + seg.DataLen
	}
	return size
}

// SPIMode is the flash read mode stored in the image header.
type SPIMode byte

// SPI flash modes.
const (
	SPIModeQIO      SPIMode = 0x00
	SPIModeQOUT     SPIMode = 0x01
	SPIModeDIO      SPIMode = 0x02
	SPIModeDOUT     SPIMode = 0x03
	SPIModeFastRead SPIMode = 0x04
	SPIModeSlowRead SPIMode = 0x05
)

func (m SPIMode) String() string {
	switch m {
	case SPIModeQIO:
		return "QIO"
	case SPIModeQOUT:
		return "QOUT"
	case SPIModeDIO:
		return "DIO"
	case SPIModeDOUT:
		return "DOUT"
	case SPIModeFastRead:
		return "FAST_READ"
	case SPIModeSlowRead:
		return "SLOW_READ"
	default:
		return fmt.Sprintf("SPIMode(0x%02X)", byte(m))
	}
}

// SPISpeed returns the flash frequency encoded in the low nibble of SPISpeedSize.
func (h *Header) SPISpeed() string {
	switch h.SPISpeedSize & 0x0F {
	case 0x0:
		return "40MHz"
	case 0x1:
		return "26MHz"
	case 0x2:
		return "20MHz"
	case 0xF:
		return "80MHz"
	default:
		return fmt.Sprintf("unknown(0x%X)", h.SPISpeedSize&0x0F)
	}
}

// FlashSize returns the flash size in bytes encoded in the high nibble of
// SPISpeedSize, or 0 if the value is not defined.
func (h *Header) FlashSize() uint32 {
	n := h.SPISpeedSize >> 4
	if n > 7 {
		return 0
	}
	return (1 << 20) << n
}

// Validate checks the magic byte, segment count and chip id.
// Loaders do not call this on their default path.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("invalid magic: got 0x%02X, expected 0x%02X", h.Magic, Magic)
	}
	if h.SegmentCount > MaxSegments {
		return fmt.Errorf("too many segments: got %d, maximum is %d", h.SegmentCount, MaxSegments)
	}
	if !h.ChipID.Known() {
		return fmt.Errorf("unknown chip id: 0x%04X", uint16(h.ChipID))
	}
	return nil
}
