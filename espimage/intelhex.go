package espimage

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// Constants for Intel HEX flash dumps.
const (
	// ErasedByte is the value of erased NOR flash, used to fill gaps
	ErasedByte = 0xFF

	// IntelHexLineLength is the number of data bytes per emitted record
	IntelHexLineLength = 16
)

// ParseIntelHex reads an Intel HEX flash dump and returns a flat flash image
// starting at address 0. Gaps between data records read as ErasedByte.
//
// Example:
//
//	f, _ := os.Open("flash.hex")
//	flash, err := espimage.ParseIntelHex(f)
//	img, err := espimage.ParseBytes(flash, espimage.DefaultImageOffset)
func ParseIntelHex(r io.Reader) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("invalid intel hex: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("no data records found")
	}

	var end uint64
	for _, seg := range segments {
		if e := uint64(seg.Address) + uint64(len(seg.Data)); e > end {
			end = e
		}
	}
	if end > 0xFFFFFFFF {
		return nil, fmt.Errorf("data ends beyond 32-bit address space (0x%X)", end)
	}

	return mem.ToBinary(0, uint32(end), ErasedByte), nil
}

// WriteIntelHex writes flash as an Intel HEX dump based at address 0.
func WriteIntelHex(w io.Writer, flash []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(0, flash); err != nil {
		return fmt.Errorf("add flash data: %w", err)
	}

	if err := mem.DumpIntelHex(w, IntelHexLineLength); err != nil {
		return fmt.Errorf("write intel hex: %w", err)
	}

	return nil
}
