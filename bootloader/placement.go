package bootloader

import "fmt"

// MMU page geometry used for every flash mapping.
const (
	// MMUPageSize is the mapping granularity in bytes
	MMUPageSize = 0x10000

	// MMUPageSizeKB is MMUPageSize in KiB, as the MMU primitives take it
	MMUPageSizeKB = MMUPageSize / 1024
)

// Placement is how a segment is placed.
type Placement int

const (
	// PlaceSkip marks a segment with load address 0; it is not placed
	PlaceSkip Placement = iota

	// PlaceRAM copies the payload from flash into memory
	PlaceRAM

	// PlaceIBus maps the payload on the instruction bus
	PlaceIBus

	// PlaceDBus maps the payload on the data bus
	PlaceDBus
)

func (p Placement) String() string {
	switch p {
	case PlaceSkip:
		return "skip"
	case PlaceRAM:
		return "ram"
	case PlaceIBus:
		return "ibus"
	case PlaceDBus:
		return "dbus"
	default:
		return fmt.Sprintf("Placement(%d)", int(p))
	}
}

// Classifier holds the address predicates of a chip.
type Classifier interface {
	IsRAM(addr uint32) bool
	IsDROM(vaddr uint32) bool
}

// Classify decides the placement of a segment loaded at loadAddr.
// Only loadAddr == 0 is skipped. The bus is chosen from the page-aligned
// address, matching the vaddr later passed to the MMU.
func Classify(c Classifier, loadAddr uint32) Placement {
	switch {
	case loadAddr == 0:
		return PlaceSkip
	case c.IsRAM(loadAddr):
		return PlaceRAM
	case c.IsDROM(loadAddr - loadAddr%MMUPageSize):
		return PlaceDBus
	default:
		return PlaceIBus
	}
}

// Mapping is the page-aligned geometry of a flash mapping.
type Mapping struct {
	// VAddr is the virtual address rounded down to a page boundary
	VAddr uint32

	// PAddr is the flash address rounded down to a page boundary
	PAddr uint32

	// Blocks is the number of pages to map
	Blocks uint32
}

func (m Mapping) String() string {
	return fmt.Sprintf("vaddr 0x%08X paddr 0x%08X blocks %d", m.VAddr, m.PAddr, m.Blocks)
}

// AlignMapping computes the mapping for dataLen bytes that must appear at
// loadAddr and are stored in flash at paddr.
//
// The offset of loadAddr within its page is folded into the block count,
// so the mapping always covers loadAddr..loadAddr+dataLen. VAddr and PAddr
// are rounded down independently.
func AlignMapping(loadAddr, paddr, dataLen uint32) Mapping {
	rem := uint64(loadAddr % MMUPageSize)
	blocks := (uint64(dataLen) + rem + MMUPageSize - 1) / MMUPageSize

	return Mapping{
		VAddr:  loadAddr - loadAddr%MMUPageSize,
		PAddr:  paddr - paddr%MMUPageSize,
		Blocks: uint32(blocks),
	}
}
