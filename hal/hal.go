package hal

import (
	"fmt"

	"github.com/moffa90/go-espboot/rom"
)

// State is the HAL lifecycle state for one boot pass.
type State int

const (
	StateIdle State = iota
	StateFlashConfigured
	StateCacheSuspended
	StateCacheResumed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFlashConfigured:
		return "flash configured"
	case StateCacheSuspended:
		return "cache suspended"
	case StateCacheResumed:
		return "cache resumed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HAL drives one chip's flash and cache/MMU through the ROM primitives.
//
// A HAL is used for exactly one boot pass and walks
// Idle → FlashConfigured → CacheSuspended → CacheResumed.
// Calling an operation out of order panics with a *StateError.
// HAL is not safe for concurrent use.
type HAL struct {
	chip   *Chip
	rom    rom.ROM
	config Config
	state  State
}

// New creates a HAL for chip on top of the given ROM primitives.
//
// Example:
//
//	h := hal.New(hal.ESP32S3, platform, hal.WithLogger(myLogger))
func New(chip *Chip, r rom.ROM, opts ...Option) *HAL {
	if chip == nil {
		panic("chip cannot be nil")
	}
	if r == nil {
		panic("rom cannot be nil")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &HAL{
		chip:   chip,
		rom:    r,
		config: cfg,
	}
}

// Chip returns the chip table the HAL was created with.
func (h *HAL) Chip() *Chip {
	return h.chip
}

// State returns the current lifecycle state.
func (h *HAL) State() State {
	return h.state
}

// InitFlash runs the chip's pre-flash quirks, configures the flash geometry
// and attaches the flash device.
//
// If the geometry cannot be configured the attach is skipped and a
// *rom.StatusError is returned; the HAL still moves on to FlashConfigured so
// the caller may continue.
func (h *HAL) InitFlash() error {
	h.expect("init flash", StateIdle)

	h.applyQuirks(h.chip.FlashQuirks)

	var spiconfig uint32
	if h.chip.EfuseSPIConfig {
		spiconfig = h.rom.EfuseSPIConfig()
	}

	status := h.rom.SPIFlashConfigParam(0, FlashSize, FlashBlockSize, FlashSectorSize, FlashPageSize, FlashStatusMask)
	h.state = StateFlashConfigured

	if status != rom.FlashOK {
		return &rom.StatusError{
			Op:     "spiflash config param",
			Code:   int32(status),
			Reason: rom.FlashStatusName(int32(status)),
		}
	}

	h.rom.SPIFlashAttach(spiconfig, false)
	h.logDebug("flash attached", "spiconfig", fmt.Sprintf("0x%08X", spiconfig))

	return nil
}

// InitMMU stops caching, clears the cache and returns the token ResumeMMU needs.
func (h *HAL) InitMMU() *Autoload {
	h.expect("init mmu", StateFlashConfigured)

	var value uint32
	switch h.chip.Cache {
	case CacheLegacy:
		h.rom.MMUInit(0)
		h.rom.MMUInit(1)
		value = 1
	case CacheSplitDisable:
		h.rom.CacheMMUInit()
		h.rom.DisableICache()
		h.rom.DisableDCache()
		value = 1
	case CacheSuspend:
		h.rom.CacheMMUInit()
		h.rom.EnableICache(1)
		value = h.rom.SuspendICache()
		h.rom.InvalidateICacheAll()
	default:
		panic(fmt.Sprintf("%s: unknown cache strategy %d", h.chip.Name, h.chip.Cache))
	}

	h.state = StateCacheSuspended
	return &Autoload{owner: h, value: value}
}

// ResumeMMU re-enables caching with the token from InitMMU. It must be the
// last HAL call before control is transferred. The token is consumed.
func (h *HAL) ResumeMMU(t *Autoload) {
	if t == nil || t.owner != h {
		panic(&StateError{Op: "resume mmu", State: h.state, Reason: "autoload token was not issued by this HAL"})
	}
	if t.spent {
		panic(&StateError{Op: "resume mmu", State: h.state, Reason: "autoload token already used"})
	}
	h.expect("resume mmu", StateCacheSuspended)
	t.spent = true

	h.applyQuirks(h.chip.ResumeQuirks)

	switch h.chip.Cache {
	case CacheLegacy:
		h.rom.CacheReadEnable(0)
	case CacheSplitDisable:
		h.rom.ResumeICache(t.value)
		h.rom.ResumeDCache(t.value)
		h.rom.InvalidateICacheAll()
		h.rom.InvalidateDCacheAll()
		h.rom.EnableDCache(t.value)
		h.rom.EnableICache(t.value)
	case CacheSuspend:
		h.rom.ResumeICache(t.value)
	}

	h.state = StateCacheResumed
}

// ReadFlash reads len(dst) bytes from flash offset addr into dst.
// On error the contents of dst are undefined.
func (h *HAL) ReadFlash(addr uint32, dst []byte) error {
	h.expect("read flash", StateFlashConfigured, StateCacheSuspended)

	if status := h.rom.SPIFlashRead(addr, dst); status != rom.FlashOK {
		return &rom.StatusError{
			Op:     fmt.Sprintf("spiflash read 0x%08X+%d", addr, len(dst)),
			Code:   status,
			Reason: rom.FlashStatusName(status),
		}
	}

	return nil
}

// Memory returns a writable view of n bytes of memory at addr.
func (h *HAL) Memory(addr, n uint32) []byte {
	h.expect("memory", StateFlashConfigured, StateCacheSuspended)
	return h.rom.Memory(addr, n)
}

// IsRAM reports whether addr is outside both flash windows.
func (h *HAL) IsRAM(addr uint32) bool {
	return h.chip.IsRAM(addr)
}

// IsDROM reports whether vaddr is in the data-bus flash window.
func (h *HAL) IsDROM(vaddr uint32) bool {
	return h.chip.IsDROM(vaddr)
}

// IbusMMUSet maps numPages pages of pageSizeKB KiB at vaddr onto flash at
// paddr on the instruction bus. fixed != 0 maps every virtual page to the
// same physical page.
func (h *HAL) IbusMMUSet(vaddr, paddr, pageSizeKB, numPages, fixed uint32) error {
	return h.mmuSet("ibus mmu set", false, vaddr, paddr, pageSizeKB, numPages, fixed)
}

// DbusMMUSet is IbusMMUSet for the data bus.
func (h *HAL) DbusMMUSet(vaddr, paddr, pageSizeKB, numPages, fixed uint32) error {
	return h.mmuSet("dbus mmu set", true, vaddr, paddr, pageSizeKB, numPages, fixed)
}

func (h *HAL) mmuSet(op string, dbus bool, vaddr, paddr, psize, num, fixed uint32) error {
	h.expect(op, StateCacheSuspended)

	var status int32
	switch h.chip.MMU {
	case MMULegacy:
		status = h.rom.FlashMMUSet(0, 0, vaddr, paddr, psize, num) |
			h.rom.FlashMMUSet(1, 0, vaddr, paddr, psize, num)
	case MMUIbusOnly:
		status = h.rom.IbusMMUSet(h.chip.MMUAccessFlash, vaddr, paddr, psize, num, fixed)
	case MMUSplit:
		if dbus {
			status = h.rom.DbusMMUSet(h.chip.MMUAccessFlash, vaddr, paddr, psize, num, fixed)
		} else {
			status = h.rom.IbusMMUSet(h.chip.MMUAccessFlash, vaddr, paddr, psize, num, fixed)
		}
	case MMUMSPI:
		status = h.rom.MSPIMMUSet(0, h.chip.MMUAccessFlash, vaddr, paddr, psize, num, fixed)
	default:
		panic(fmt.Sprintf("%s: unknown mmu strategy %d", h.chip.Name, h.chip.MMU))
	}

	if status != rom.MMUOK {
		return &rom.StatusError{
			Op:     op,
			Code:   status,
			Reason: h.chip.mmuReason(status),
		}
	}

	return nil
}

func (h *HAL) applyQuirks(quirks []Quirk) {
	for _, q := range quirks {
		value := q.Set
		if !q.Assign {
			value = (h.rom.ReadReg(q.Reg) &^ q.Clear) | q.Set
		}
		h.rom.WriteReg(q.Reg, value)

		h.logDebug("quirk applied",
			"chip", h.chip.Name,
			"quirk", q.Name,
			"reg", fmt.Sprintf("0x%08X", q.Reg),
			"value", fmt.Sprintf("0x%08X", value),
		)
	}
}

func (h *HAL) expect(op string, allowed ...State) {
	for _, s := range allowed {
		if h.state == s {
			return
		}
	}
	panic(&StateError{Op: op, State: h.state, Allowed: allowed})
}

// logDebug logs a debug message if a logger is configured.
func (h *HAL) logDebug(msg string, keysAndValues ...interface{}) {
	if h.config.Logger != nil {
		h.config.Logger.Debug(msg, keysAndValues...)
	}
}
