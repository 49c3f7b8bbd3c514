// Package hal implements the chip hardware abstraction used by the loader.
//
// One HAL type serves every supported chip. What differs between variants
// lives in a Chip table:
//   - the instruction-bus (IROM) and data-bus (DROM) flash windows
//   - the cache suspend/resume call sequence (CacheStrategy)
//   - the MMU primitive used to install mappings (MMUStrategy)
//   - register quirks run before flash setup and before cache resume
//
// The HAL calls the ROM through the rom.ROM interface and never touches
// hardware by other means; register quirks go through rom.Registers.
//
// # Lifecycle
//
//	h := hal.New(hal.ESP32S3, platform)
//	if err := h.InitFlash(); err != nil { ... }
//	token := h.InitMMU()
//	... ReadFlash / Memory / IbusMMUSet / DbusMMUSet ...
//	h.ResumeMMU(token)
//
// Out-of-order calls and reuse of the Autoload token panic with *StateError.
package hal
