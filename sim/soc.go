package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moffa90/go-espboot/rom"
)

// MMU page size accepted by the simulated primitives, in KiB.
const PageSizeKB = 64

const pageBytes = PageSizeKB * 1024

// MMU table names.
const (
	TableIBus = "ibus"
	TableDBus = "dbus"
	TableMSPI = "mspi"
	TablePRO  = "pro"
	TableAPP  = "app"
)

// CacheState is the state of a simulated cache.
type CacheState int

const (
	CacheDisabled CacheState = iota
	CacheEnabled
	CacheSuspended
)

func (s CacheState) String() string {
	switch s {
	case CacheDisabled:
		return "disabled"
	case CacheEnabled:
		return "enabled"
	case CacheSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("CacheState(%d)", int(s))
	}
}

// Call is one recorded ROM call.
type Call struct {
	Name string
	Args []uint32
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprintf("0x%X", a)
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

type region struct {
	base uint32
	data []byte
}

type cache struct {
	state    CacheState
	autoload uint32
}

// SoC is an in-memory ESP32-family system implementing rom.ROM and rom.Jumper.
//
// Flash reads only succeed after SPIFlashAttach, so a failed flash
// configuration shows up as failed reads, as on hardware. Every ROM call is
// appended to the trace.
type SoC struct {
	config Config

	flash        []byte
	attached     bool
	attachConfig uint32

	regs   map[uint32]uint32
	tables map[string]map[uint32]uint32
	ram    []*region
	ramUse uint32

	icache cache
	dcache cache

	trace  []Call
	jumped bool
	entry  uint32
}

var _ rom.ROM = (*SoC)(nil)
var _ rom.Jumper = (*SoC)(nil)

// New creates a simulated SoC with the given flash contents.
//
// Example:
//
//	soc := sim.New(flash, sim.WithChip(hal.ESP32))
//	h := hal.New(hal.ESP32, soc)
func New(flash []byte, opts ...Option) *SoC {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &SoC{
		config: cfg,
		flash:  flash,
		regs:   make(map[uint32]uint32),
		tables: make(map[string]map[uint32]uint32),
	}
}

func (s *SoC) record(name string, args ...uint32) {
	s.trace = append(s.trace, Call{Name: name, Args: args})
}

// EfuseSPIConfig implements rom.Flash.
func (s *SoC) EfuseSPIConfig() uint32 {
	s.record("ets_efuse_get_spiconfig")
	return s.config.EfuseSPIConfig
}

// SPIFlashConfigParam implements rom.Flash.
func (s *SoC) SPIFlashConfigParam(deviceID, chipSize, blockSize, sectorSize, pageSize, statusMask uint32) uint32 {
	s.record("esp_rom_spiflash_config_param", deviceID, chipSize, blockSize, sectorSize, pageSize, statusMask)
	return s.config.FlashStatus
}

// SPIFlashAttach implements rom.Flash.
func (s *SoC) SPIFlashAttach(config uint32, legacy bool) {
	var l uint32
	if legacy {
		l = 1
	}
	s.record("esp_rom_spiflash_attach", config, l)
	s.attached = true
	s.attachConfig = config
}

// SPIFlashRead implements rom.Flash. A failing read leaves dst untouched.
func (s *SoC) SPIFlashRead(addr uint32, dst []byte) int32 {
	s.record("esp_rom_spiflash_read", addr, uint32(len(dst)))

	if !s.attached {
		return rom.FlashErr
	}
	if s.config.ReadFault != nil && s.config.ReadFault(addr, len(dst)) {
		return rom.FlashErr
	}
	if uint64(addr)+uint64(len(dst)) > uint64(len(s.flash)) {
		return rom.FlashErr
	}

	copy(dst, s.flash[addr:])
	return rom.FlashOK
}

// CacheMMUInit implements rom.Cache.
func (s *SoC) CacheMMUInit() {
	s.record("Cache_MMU_Init")
	delete(s.tables, TableIBus)
	delete(s.tables, TableDBus)
	delete(s.tables, TableMSPI)
}

// MMUInit implements rom.Cache.
func (s *SoC) MMUInit(cpu uint32) {
	s.record("mmu_init", cpu)
	delete(s.tables, cpuTable(cpu))
}

// CacheReadEnable implements rom.Cache.
func (s *SoC) CacheReadEnable(cpu uint32) {
	s.record("Cache_Read_Enable_rom", cpu)
	if cpu == 0 {
		s.icache.state = CacheEnabled
		s.dcache.state = CacheEnabled
	}
}

// EnableICache implements rom.Cache.
func (s *SoC) EnableICache(autoload uint32) {
	s.record("Cache_Enable_ICache", autoload)
	s.icache = cache{state: CacheEnabled, autoload: autoload}
}

// DisableICache implements rom.Cache.
func (s *SoC) DisableICache() {
	s.record("Cache_Disable_ICache")
	s.icache.state = CacheDisabled
}

// SuspendICache implements rom.Cache.
func (s *SoC) SuspendICache() uint32 {
	s.record("Cache_Suspend_ICache")
	s.icache.state = CacheSuspended
	return s.icache.autoload
}

// ResumeICache implements rom.Cache.
func (s *SoC) ResumeICache(autoload uint32) {
	s.record("Cache_Resume_ICache", autoload)
	s.icache = cache{state: CacheEnabled, autoload: autoload}
}

// InvalidateICacheAll implements rom.Cache.
func (s *SoC) InvalidateICacheAll() {
	s.record("Cache_Invalidate_ICache_All")
}

// EnableDCache implements rom.Cache.
func (s *SoC) EnableDCache(autoload uint32) {
	s.record("Cache_Enable_DCache", autoload)
	s.dcache = cache{state: CacheEnabled, autoload: autoload}
}

// DisableDCache implements rom.Cache.
func (s *SoC) DisableDCache() {
	s.record("Cache_Disable_DCache")
	s.dcache.state = CacheDisabled
}

// SuspendDCache implements rom.Cache.
func (s *SoC) SuspendDCache() uint32 {
	s.record("Cache_Suspend_DCache")
	s.dcache.state = CacheSuspended
	return s.dcache.autoload
}

// ResumeDCache implements rom.Cache.
func (s *SoC) ResumeDCache(autoload uint32) {
	s.record("Cache_Resume_DCache", autoload)
	s.dcache = cache{state: CacheEnabled, autoload: autoload}
}

// InvalidateDCacheAll implements rom.Cache.
func (s *SoC) InvalidateDCacheAll() {
	s.record("Cache_Invalidate_DCache_All")
}

// FlashMMUSet implements rom.MMU.
func (s *SoC) FlashMMUSet(cpu, pid, vaddr, paddr, psize, num uint32) int32 {
	s.record("cache_flash_mmu_set_rom", cpu, pid, vaddr, paddr, psize, num)
	if pid > 7 {
		return rom.LegacyMMUErrPID
	}
	return s.mmuSet(cpuTable(cpu), s.anyWindow(vaddr), vaddr, paddr, psize, num, 0)
}

// IbusMMUSet implements rom.MMU.
func (s *SoC) IbusMMUSet(extRAM, vaddr, paddr, psize, num, fixed uint32) int32 {
	s.record("Cache_Ibus_MMU_Set", extRAM, vaddr, paddr, psize, num, fixed)
	return s.mmuSet(TableIBus, s.anyWindow(vaddr), vaddr, paddr, psize, num, fixed)
}

// DbusMMUSet implements rom.MMU.
func (s *SoC) DbusMMUSet(extRAM, vaddr, paddr, psize, num, fixed uint32) int32 {
	s.record("Cache_Dbus_MMU_Set", extRAM, vaddr, paddr, psize, num, fixed)
	return s.mmuSet(TableDBus, s.config.DBus, vaddr, paddr, psize, num, fixed)
}

// MSPIMMUSet implements rom.MMU.
func (s *SoC) MSPIMMUSet(sensitive, extRAM, vaddr, paddr, psize, num, fixed uint32) int32 {
	s.record("Cache_MSPI_MMU_Set", sensitive, extRAM, vaddr, paddr, psize, num, fixed)
	return s.mmuSet(TableMSPI, s.anyWindow(vaddr), vaddr, paddr, psize, num, fixed)
}

// anyWindow returns the configured window containing vaddr, or the IBus
// window if none does. Primitives serving both buses are checked this way.
func (s *SoC) anyWindow(vaddr uint32) rom.Window {
	if s.config.DBus.Contains(vaddr) {
		return s.config.DBus
	}
	return s.config.IBus
}

func (s *SoC) mmuSet(table string, w rom.Window, vaddr, paddr, psize, num, fixed uint32) int32 {
	unaligned, pageSize, outOfRange, tableRange := int32(rom.MMUErrUnaligned), int32(rom.MMUErrPageSize),
		int32(rom.MMUErrRange), int32(rom.MMUErrRange)
	if s.config.LegacyMMUCodes {
		unaligned, pageSize, outOfRange, tableRange = rom.LegacyMMUErrUnaligned, rom.LegacyMMUErrPageSize,
			rom.LegacyMMUErrRange, rom.LegacyMMUErrTable
	}

	if psize != PageSizeKB {
		return pageSize
	}
	if vaddr%pageBytes != 0 || paddr%pageBytes != 0 {
		return unaligned
	}
	if !w.Empty() {
		if !w.Contains(vaddr) {
			return outOfRange
		}
		if num > 0 && uint64(vaddr)+uint64(num)*pageBytes-1 > uint64(w.Last()) {
			return tableRange
		}
	}

	t := s.tables[table]
	if t == nil {
		t = make(map[uint32]uint32)
		s.tables[table] = t
	}
	for i := uint32(0); i < num; i++ {
		p := paddr
		if fixed == 0 {
			p += i * pageBytes
		}
		t[vaddr+i*pageBytes] = p
	}

	return rom.MMUOK
}

func cpuTable(cpu uint32) string {
	if cpu == 0 {
		return TablePRO
	}
	return TableAPP
}

// ReadReg implements rom.Registers. Unwritten registers read as 0.
func (s *SoC) ReadReg(addr uint32) uint32 {
	s.record("read_reg", addr)
	return s.regs[addr]
}

// WriteReg implements rom.Registers.
func (s *SoC) WriteReg(addr, value uint32) {
	s.record("write_reg", addr, value)
	s.regs[addr] = value
}

// Memory implements rom.Memory. RAM is one address space: a range inside an
// earlier allocation shares its bytes, and a range overlapping or abutting
// earlier allocations merges them into one buffer so later writes land on
// the same bytes. Slices returned before a merge no longer alias RAM. Once RAMLimit
// would be exceeded nil is returned.
func (s *SoC) Memory(addr, n uint32) []byte {
	s.record("memory", addr, n)

	if uint64(addr)+uint64(n) > 1<<32 {
		return nil
	}
	if r := s.find(addr, n); r != nil {
		off := addr - r.base
		return r.data[off : off+n]
	}

	lo, hi := uint64(addr), uint64(addr)+uint64(n)
	var keep, merge []*region
	for _, r := range s.ram {
		if r.touches(addr, n) {
			merge = append(merge, r)
			lo = min(lo, uint64(r.base))
			hi = max(hi, r.end())
			continue
		}
		keep = append(keep, r)
	}

	use := uint64(s.ramUse) + (hi - lo)
	for _, r := range merge {
		use -= uint64(len(r.data))
	}
	if use > uint64(s.config.RAMLimit) {
		return nil
	}

	m := &region{base: uint32(lo), data: make([]byte, hi-lo)}
	for _, r := range merge {
		copy(m.data[r.base-m.base:], r.data)
	}
	s.ram = append(keep, m)
	s.ramUse = uint32(use)

	off := addr - m.base
	return m.data[off : off+n]
}

func (s *SoC) find(addr, n uint32) *region {
	for _, r := range s.ram {
		if addr >= r.base && uint64(addr)+uint64(n) <= r.end() {
			return r
		}
	}
	return nil
}

func (r *region) end() uint64 {
	return uint64(r.base) + uint64(len(r.data))
}

// touches reports whether [addr, addr+n) overlaps r or abuts it.
func (r *region) touches(addr, n uint32) bool {
	return n > 0 && uint64(addr) <= r.end() && uint64(addr)+uint64(n) >= uint64(r.base)
}

// Transfer is the panic value raised by Jump.
type Transfer struct {
	Entry uint32
}

func (t *Transfer) Error() string {
	return fmt.Sprintf("control transferred to 0x%08X", t.Entry)
}

// Jump implements rom.Jumper. It records the entry and panics with
// *Transfer, standing in for a call that never returns.
func (s *SoC) Jump(entry uint32) {
	s.record("jump", entry)
	s.jumped = true
	s.entry = entry
	panic(&Transfer{Entry: entry})
}

// Run calls f and recovers a *Transfer panic raised inside it.
// Other panics propagate.
//
// Example:
//
//	entry, ok := sim.Run(func() { loader.Boot(soc) })
func Run(f func()) (entry uint32, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, isTransfer := r.(*Transfer)
			if !isTransfer {
				panic(r)
			}
			entry, ok = t.Entry, true
		}
	}()

	f()
	return 0, false
}

// Trace returns every ROM call recorded so far.
func (s *SoC) Trace() []Call {
	out := make([]Call, len(s.trace))
	copy(out, s.trace)
	return out
}

// CallNames returns the names of the recorded calls in order.
func (s *SoC) CallNames() []string {
	names := make([]string, len(s.trace))
	for i, c := range s.trace {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times the named ROM call was made.
func (s *SoC) Count(name string) int {
	n := 0
	for _, c := range s.trace {
		if c.Name == name {
			n++
		}
	}
	return n
}

// ResetTrace clears the call trace.
func (s *SoC) ResetTrace() {
	s.trace = nil
}

// Attached reports whether flash was attached and with which configuration.
func (s *SoC) Attached() (bool, uint32) {
	return s.attached, s.attachConfig
}

// ICache returns the instruction cache state.
func (s *SoC) ICache() CacheState {
	return s.icache.state
}

// DCache returns the data cache state.
func (s *SoC) DCache() CacheState {
	return s.dcache.state
}

// Reg returns a register value without recording a call.
func (s *SoC) Reg(addr uint32) uint32 {
	return s.regs[addr]
}

// SetReg sets a register value without recording a call.
func (s *SoC) SetReg(addr, value uint32) {
	s.regs[addr] = value
}

// RAM returns a copy of n bytes of backed memory at addr, or nil if the
// range was never handed out by Memory.
func (s *SoC) RAM(addr, n uint32) []byte {
	r := s.find(addr, n)
	if r == nil {
		return nil
	}
	off := addr - r.base
	out := make([]byte, n)
	copy(out, r.data[off:off+n])
	return out
}

// Translate looks vaddr up in the named MMU table and returns the flash
// address it maps to.
func (s *SoC) Translate(table string, vaddr uint32) (uint32, bool) {
	page := vaddr - vaddr%pageBytes
	p, ok := s.tables[table][page]
	if !ok {
		return 0, false
	}
	return p + vaddr%pageBytes, true
}

// Pages returns the mapped virtual page addresses of a table in ascending order.
func (s *SoC) Pages(table string) []uint32 {
	pages := make([]uint32, 0, len(s.tables[table]))
	for v := range s.tables[table] {
		pages = append(pages, v)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// FlashAt reads n bytes of flash at addr without recording a call. Reads
// through an MMU mapping use this: see Translate.
func (s *SoC) FlashAt(addr, n uint32) []byte {
	if uint64(addr)+uint64(n) > uint64(len(s.flash)) {
		return nil
	}
	out := make([]byte, n)
	copy(out, s.flash[addr:])
	return out
}

// Jumped reports whether Jump was called and with which entry.
func (s *SoC) Jumped() (uint32, bool) {
	return s.entry, s.jumped
}
