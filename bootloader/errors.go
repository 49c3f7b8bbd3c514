package bootloader

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-espboot/espimage"
)

// ErrEntryReturned is the panic value raised when a Jumper returns.
var ErrEntryReturned = errors.New("entry point returned")

// DeviceMismatchError indicates that the image was built for another chip.
type DeviceMismatchError struct {
	Expected espimage.ChipID
	Actual   espimage.ChipID
}

func (e *DeviceMismatchError) Error() string {
	return fmt.Sprintf("device mismatch: loader expects chip %s (0x%04X), image is for %s (0x%04X)",
		e.Expected, uint16(e.Expected), e.Actual, uint16(e.Actual))
}

// HeaderError indicates that the image header failed validation.
type HeaderError struct {
	Err error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("image header check failed: %v", e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// MappingError indicates that the MMU rejected a segment mapping.
type MappingError struct {
	Segment int
	Bus     Placement
	Mapping Mapping
	Err     error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("segment %d: %s mapping (%s) failed: %v", e.Segment, e.Bus, e.Mapping, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// MemoryError indicates that the platform could not provide memory for a RAM copy.
type MemoryError struct {
	Segment int
	Addr    uint32
	Len     uint32
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("segment %d: no memory at 0x%08X (%d bytes)", e.Segment, e.Addr, e.Len)
}

// FatalError is the panic value raised by Boot when Load fails.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("boot failed: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
