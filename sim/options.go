package sim

import (
	"github.com/moffa90/go-espboot/hal"
	"github.com/moffa90/go-espboot/rom"
)

// DefaultRAMLimit is the total memory Memory will back before returning nil.
const DefaultRAMLimit = 8 << 20

// Config holds the simulator configuration.
type Config struct {
	// IBus and DBus are the windows the MMU primitives accept. An empty
	// window disables the range check for that bus.
	IBus rom.Window
	DBus rom.Window

	// FlashStatus is returned by SPIFlashConfigParam
	FlashStatus uint32

	// EfuseSPIConfig is returned by EfuseSPIConfig
	EfuseSPIConfig uint32

	// ReadFault, when set, makes SPIFlashRead fail for matching reads
	ReadFault func(addr uint32, n int) bool

	// LegacyMMUCodes makes MMU failures use the ESP32 FlashMMUSet codes
	LegacyMMUCodes bool

	// RAMLimit caps the total memory backed by Memory
	RAMLimit uint32
}

func defaultConfig() Config {
	return Config{
		RAMLimit: DefaultRAMLimit,
	}
}

// Option is a functional option for configuring the simulator.
type Option func(*Config)

// WithWindows sets the instruction and data bus flash windows used to
// range-check MMU calls.
//
// Example:
//
//	soc := sim.New(flash, sim.WithWindows(hal.ESP32S3.IROM, hal.ESP32S3.DROM))
func WithWindows(ibus, dbus rom.Window) Option {
	return func(c *Config) {
		c.IBus = ibus
		c.DBus = dbus
	}
}

// WithChip configures the simulator for chip: its flash windows and, for
// chips using the ESP32 FlashMMUSet primitive, its MMU status codes.
//
// Example:
//
//	soc := sim.New(flash, sim.WithChip(hal.ESP32))
func WithChip(chip *hal.Chip) Option {
	return func(c *Config) {
		c.IBus = chip.IROM
		c.DBus = chip.DROM
		c.LegacyMMUCodes = chip.MMU == hal.MMULegacy
	}
}

// WithFlashStatus makes SPIFlashConfigParam return status.
func WithFlashStatus(status uint32) Option {
	return func(c *Config) {
		c.FlashStatus = status
	}
}

// WithEfuseSPIConfig sets the value returned by EfuseSPIConfig.
func WithEfuseSPIConfig(config uint32) Option {
	return func(c *Config) {
		c.EfuseSPIConfig = config
	}
}

// WithReadFault installs a predicate selecting flash reads that fail.
//
// Example:
//
//	// fail every read of the image header
//	sim.WithReadFault(func(addr uint32, n int) bool { return addr == 0x10000 })
func WithReadFault(fault func(addr uint32, n int) bool) Option {
	return func(c *Config) {
		c.ReadFault = fault
	}
}

// WithLegacyMMUCodes makes MMU failures report ESP32 FlashMMUSet codes.
func WithLegacyMMUCodes() Option {
	return func(c *Config) {
		c.LegacyMMUCodes = true
	}
}

// WithRAMLimit caps the total memory backed by Memory.
func WithRAMLimit(limit uint32) Option {
	return func(c *Config) {
		c.RAMLimit = limit
	}
}
