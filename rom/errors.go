package rom

import "fmt"

// Status codes returned by the SPI flash primitives.
const (
	// FlashOK indicates success
	FlashOK = 0

	// FlashErr indicates a generic flash failure
	FlashErr = 1

	// FlashTimeout indicates the flash did not respond in time
	FlashTimeout = 2
)

// Status codes returned by IbusMMUSet, DbusMMUSet and MSPIMMUSet.
const (
	// MMUOK indicates the mapping was installed
	MMUOK = 0

	// MMUErrUnaligned indicates vaddr or paddr is not aligned to the page size
	MMUErrUnaligned = 2

	// MMUErrPageSize indicates an unsupported page size
	MMUErrPageSize = 3

	// MMUErrRange indicates vaddr is out of range
	MMUErrRange = 4
)

// Status codes returned by the ESP32 FlashMMUSet primitive.
const (
	// LegacyMMUErrUnaligned indicates vaddr or paddr is not aligned
	LegacyMMUErrUnaligned = 1

	// LegacyMMUErrPID indicates an invalid process id
	LegacyMMUErrPID = 2

	// LegacyMMUErrPageSize indicates an unsupported page size
	LegacyMMUErrPageSize = 3

	// LegacyMMUErrTable indicates the MMU table entries are out of range
	LegacyMMUErrTable = 4

	// LegacyMMUErrRange indicates vaddr is out of range
	LegacyMMUErrRange = 5
)

// StatusError is a non-zero status returned by a ROM primitive.
type StatusError struct {
	// Op is the operation that failed
	Op string

	// Code is the raw status returned by the ROM
	Code int32

	// Reason is a human-readable meaning of Code, if known
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Reason, e.Code)
}

// IsStatusError returns true if the error is a StatusError.
func IsStatusError(err error) bool {
	_, ok := err.(*StatusError)
	return ok
}

// FlashStatusName returns a human-readable name for a flash status code.
func FlashStatusName(code int32) string {
	switch code {
	case FlashOK:
		return "success"
	case FlashErr:
		return "flash error"
	case FlashTimeout:
		return "flash timeout"
	default:
		return ""
	}
}

// MMUStatusName returns a human-readable name for a status of IbusMMUSet,
// DbusMMUSet or MSPIMMUSet.
func MMUStatusName(code int32) string {
	switch code {
	case MMUOK:
		return "success"
	case MMUErrUnaligned:
		return "vaddr or paddr is not aligned"
	case MMUErrPageSize:
		return "page size error"
	case MMUErrRange:
		return "vaddr is out of range"
	default:
		return ""
	}
}

// LegacyMMUStatusName returns a human-readable name for a FlashMMUSet status.
// Statuses OR-ed across CPUs may not match any single code.
func LegacyMMUStatusName(code int32) string {
	switch code {
	case MMUOK:
		return "success"
	case LegacyMMUErrUnaligned:
		return "vaddr or paddr is not aligned"
	case LegacyMMUErrPID:
		return "pid error"
	case LegacyMMUErrPageSize:
		return "page size error"
	case LegacyMMUErrTable:
		return "mmu table to be written is out of range"
	case LegacyMMUErrRange:
		return "vaddr is out of range"
	default:
		return ""
	}
}
