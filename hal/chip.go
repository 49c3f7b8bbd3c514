package hal

import (
	"fmt"
	"strings"

	"github.com/moffa90/go-espboot/espimage"
	"github.com/moffa90/go-espboot/rom"
)

// Flash geometry passed to SPIFlashConfigParam. These are fixed defaults,
// not detected from the device.
const (
	FlashSize       = 0x1000000 // 16 MiB
	FlashBlockSize  = 0x10000   // 64 KiB
	FlashSectorSize = 0x1000    // 4 KiB
	FlashPageSize   = 0x4000    // 16 KiB
	FlashStatusMask = 0xFFFF
)

// CacheStrategy selects the ROM call sequence used to suspend and resume caching.
type CacheStrategy int

const (
	// CacheLegacy resets both per-CPU MMU tables and re-enables cache reads
	// through CacheReadEnable (ESP32).
	CacheLegacy CacheStrategy = iota

	// CacheSplitDisable disables the I and D caches and brings both back on
	// resume (ESP32-S2).
	CacheSplitDisable

	// CacheSuspend enables, suspends and invalidates the I cache, keeping the
	// autoload value for resume.
	CacheSuspend
)

// MMUStrategy selects the ROM primitive used to install flash mappings.
type MMUStrategy int

const (
	// MMULegacy programs the flash MMU of both CPUs for either bus (ESP32).
	MMULegacy MMUStrategy = iota

	// MMUIbusOnly uses the instruction bus primitive for both buses (ESP32-S2).
	MMUIbusOnly

	// MMUSplit uses the instruction or data bus primitive per bus.
	MMUSplit

	// MMUMSPI uses the unified MSPI primitive for both buses.
	MMUMSPI
)

// Quirk is a chip-specific register write outside any ROM primitive.
type Quirk struct {
	// Name identifies the quirk in diagnostics
	Name string

	// Reg is the register address
	Reg uint32

	// Set holds the bits to set, or the value to write when Assign is true
	Set uint32

	// Clear holds the bits to clear before setting
	Clear uint32

	// Assign writes Set verbatim instead of read-modify-write
	Assign bool
}

// Chip is the per-variant table the HAL is parameterized by.
type Chip struct {
	// Name is the canonical lowercase chip name, e.g. "esp32s3"
	Name string

	// ID is the image header chip id for this variant
	ID espimage.ChipID

	// IROM is the instruction-bus flash window
	IROM rom.Window

	// DROM is the data-bus flash window
	DROM rom.Window

	// EfuseSPIConfig reads the SPI pin configuration from efuse before
	// attaching flash; otherwise 0 is used
	EfuseSPIConfig bool

	Cache CacheStrategy
	MMU   MMUStrategy

	// MMUAccessFlash is the ext_ram argument selecting flash for the MMU primitives
	MMUAccessFlash uint32

	// FlashQuirks run at the start of InitFlash
	FlashQuirks []Quirk

	// ResumeQuirks run at the start of ResumeMMU
	ResumeQuirks []Quirk
}

// Region is an address classification.
type Region int

const (
	RegionRAM Region = iota
	RegionIROM
	RegionDROM
)

func (r Region) String() string {
	switch r {
	case RegionRAM:
		return "ram"
	case RegionIROM:
		return "irom"
	case RegionDROM:
		return "drom"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// Region classifies addr. Every address falls in exactly one region.
func (c *Chip) Region(addr uint32) Region {
	switch {
	case c.DROM.Contains(addr):
		return RegionDROM
	case c.IROM.Contains(addr):
		return RegionIROM
	default:
		return RegionRAM
	}
}

// IsRAM reports whether addr is directly addressable memory, i.e. outside
// both mapped flash windows.
func (c *Chip) IsRAM(addr uint32) bool {
	return !c.IROM.Contains(addr) && !c.DROM.Contains(addr)
}

// IsDROM reports whether vaddr is in the data-bus flash window.
func (c *Chip) IsDROM(vaddr uint32) bool {
	return c.DROM.Contains(vaddr)
}

func (c *Chip) mmuReason(code int32) string {
	if c.MMU == MMULegacy {
		return rom.LegacyMMUStatusName(code)
	}
	return rom.MMUStatusName(code)
}

func (c *Chip) String() string {
	return c.Name
}

// Register addresses used by quirks.
const (
	esp32DPortProCacheCtrl1 = 0x3FF00000 + 0x044
	esp32s2RTCCntlSWDConf   = 0x3F408000 + 0x0B0
	esp32s2ExtmemDCacheCtl1 = 0x61800000 + 0x004
	esp32s2ExtmemICacheCtl1 = 0x61800000 + 0x044
)

// Supported chips. These are the shared tables every HAL reads; treat them
// as read-only and use Clone for a variant.
var (
	ESP32 = &Chip{
		Name:           "esp32",
		ID:             espimage.ChipESP32,
		IROM:           rom.Span(0x400C2000, 0x40BFFFFF),
		DROM:           rom.Span(0x3F400000, 0x3FBFFFFF),
		EfuseSPIConfig: true,
		Cache:          CacheLegacy,
		MMU:            MMULegacy,
		MMUAccessFlash: 1 << 15,
		ResumeQuirks: []Quirk{
			// bits 0 and 3 mask the PRO CPU IRAM0/DROM0 cache buses
			{Name: "pro cache bus enable", Reg: esp32DPortProCacheCtrl1, Clear: 0b1001},
		},
	}

	ESP32S2 = &Chip{
		Name:           "esp32s2",
		ID:             espimage.ChipESP32S2,
		IROM:           rom.Span(0x40080000, 0x407FFFFF),
		DROM:           rom.Span(0x3F000000, 0x3FF7FFFF),
		EfuseSPIConfig: true,
		Cache:          CacheSplitDisable,
		MMU:            MMUIbusOnly,
		MMUAccessFlash: 1 << 15,
		FlashQuirks: []Quirk{
			// the super watchdog resets the chip during long flash operations
			{Name: "super watchdog auto feed", Reg: esp32s2RTCCntlSWDConf, Set: 1 << 31},
		},
		ResumeQuirks: []Quirk{
			{Name: "dcache bus enable", Reg: esp32s2ExtmemDCacheCtl1, Set: 0b010, Assign: true},
			{Name: "icache bus enable", Reg: esp32s2ExtmemICacheCtl1, Set: 0b010, Assign: true},
		},
	}

	ESP32S3 = &Chip{
		Name:           "esp32s3",
		ID:             espimage.ChipESP32S3,
		IROM:           rom.Span(0x42000000, 0x427FFFFF),
		DROM:           rom.Span(0x3C000000, 0x3C7FFFFF),
		EfuseSPIConfig: true,
		Cache:          CacheSuspend,
		MMU:            MMUSplit,
	}

	ESP32C2 = &Chip{
		Name:           "esp32c2",
		ID:             espimage.ChipESP32C2,
		IROM:           rom.Span(0x42000000, 0x423FFFFF),
		DROM:           rom.Span(0x3C000000, 0x3C3FFFFF),
		EfuseSPIConfig: true,
		Cache:          CacheSuspend,
		MMU:            MMUSplit,
	}

	ESP32C3 = &Chip{
		Name:           "esp32c3",
		ID:             espimage.ChipESP32C3,
		IROM:           rom.Span(0x42000000, 0x427FFFFF),
		DROM:           rom.Span(0x3C000000, 0x3C7FFFFF),
		EfuseSPIConfig: true,
		Cache:          CacheSuspend,
		MMU:            MMUSplit,
	}

	// The C6 and H2 cache is unified: one flash window serves both buses and
	// is reported as DROM.
	ESP32C6 = &Chip{
		Name:  "esp32c6",
		ID:    espimage.ChipESP32C6,
		DROM:  rom.Span(0x42000000, 0x42FFFFFF),
		Cache: CacheSuspend,
		MMU:   MMUMSPI,
	}

	ESP32H2 = &Chip{
		Name:  "esp32h2",
		ID:    espimage.ChipESP32H2,
		DROM:  rom.Span(0x42000000, 0x42FFFFFF),
		Cache: CacheSuspend,
		MMU:   MMUMSPI,
	}
)

var chips = []*Chip{ESP32, ESP32S2, ESP32S3, ESP32C2, ESP32C3, ESP32C6, ESP32H2}

// Clone returns a deep copy of c that can be modified without touching c.
func (c *Chip) Clone() *Chip {
	out := *c
	out.FlashQuirks = append([]Quirk(nil), c.FlashQuirks...)
	out.ResumeQuirks = append([]Quirk(nil), c.ResumeQuirks...)
	return &out
}

// Chips returns a copy of every supported chip table.
func Chips() []*Chip {
	out := make([]*Chip, len(chips))
	for i, c := range chips {
		out[i] = c.Clone()
	}
	return out
}

// Lookup finds a chip by name. Case and dashes are ignored, so "ESP32-S3"
// and "esp32s3" both match. The shared table is returned; it must not be
// modified.
func Lookup(name string) (*Chip, error) {
	key := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	for _, c := range chips {
		if c.Name == key {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unsupported chip %q", name)
}
