// Package rom defines the hardware and ROM primitives a loader depends on.
//
// The interfaces mirror the mask-ROM functions of the ESP32 family
// (esp_rom_spiflash_*, Cache_*, mmu_init, ...). Each call returns the raw
// status the ROM returns; callers wrap non-zero statuses in StatusError.
//
// A device port implements ROM over the linked ROM symbols and register
// space; package sim implements it in memory for host use.
package rom

// Flash covers SPI flash configuration and reads.
type Flash interface {
	// EfuseSPIConfig returns the factory-programmed SPI pin configuration.
	EfuseSPIConfig() uint32

	// SPIFlashConfigParam sets the flash geometry. Returns 0 on success.
	SPIFlashConfigParam(deviceID, chipSize, blockSize, sectorSize, pageSize, statusMask uint32) uint32

	// SPIFlashAttach attaches the flash device using the pin configuration.
	SPIFlashAttach(config uint32, legacy bool)

	// SPIFlashRead reads len(dst) bytes starting at flash offset addr.
	// Returns 0 on success.
	SPIFlashRead(addr uint32, dst []byte) int32
}

// Cache covers cache and MMU table initialization and cache control.
type Cache interface {
	// CacheMMUInit resets the cache MMU tables.
	CacheMMUInit()

	// MMUInit resets the flash MMU table of one CPU (ESP32 only).
	MMUInit(cpu uint32)

	// CacheReadEnable enables flash cache reads for one CPU (ESP32 only).
	CacheReadEnable(cpu uint32)

	EnableICache(autoload uint32)
	DisableICache()
	SuspendICache() uint32
	ResumeICache(autoload uint32)
	InvalidateICacheAll()

	EnableDCache(autoload uint32)
	DisableDCache()
	SuspendDCache() uint32
	ResumeDCache(autoload uint32)
	InvalidateDCacheAll()
}

// MMU covers page table programming. psize is in KiB; all calls return 0
// on success.
type MMU interface {
	// FlashMMUSet is the ESP32 per-CPU primitive.
	FlashMMUSet(cpu, pid, vaddr, paddr, psize, num uint32) int32

	// IbusMMUSet maps flash on the instruction bus.
	IbusMMUSet(extRAM, vaddr, paddr, psize, num, fixed uint32) int32

	// DbusMMUSet maps flash on the data bus.
	DbusMMUSet(extRAM, vaddr, paddr, psize, num, fixed uint32) int32

	// MSPIMMUSet maps flash through the unified MSPI cache.
	MSPIMMUSet(sensitive, extRAM, vaddr, paddr, psize, num, fixed uint32) int32
}

// Registers gives 32-bit access to memory-mapped peripheral registers.
type Registers interface {
	ReadReg(addr uint32) uint32
	WriteReg(addr, value uint32)
}

// Memory exposes raw physical memory.
type Memory interface {
	// Memory returns a writable view of n bytes at addr.
	// A host platform may return nil when it cannot back the range.
	Memory(addr, n uint32) []byte
}

// ROM is the full primitive set used by the chip HAL.
type ROM interface {
	Flash
	Cache
	MMU
	Registers
	Memory
}

// Jumper transfers control to an entry point. Jump never returns on a device.
type Jumper interface {
	Jump(entry uint32)
}

// JumperFunc adapts a function to the Jumper interface.
type JumperFunc func(entry uint32)

// Jump calls f(entry).
func (f JumperFunc) Jump(entry uint32) {
	f(entry)
}
