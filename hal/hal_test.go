package hal_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/moffa90/go-espboot/hal"
	"github.com/moffa90/go-espboot/rom"
	"github.com/moffa90/go-espboot/sim"
)

func newSoC(chip *hal.Chip, opts ...sim.Option) *sim.SoC {
	opts = append([]sim.Option{sim.WithChip(chip)}, opts...)
	return sim.New(make([]byte, 0x40000), opts...)
}

// expectStatePanic runs f and returns the *hal.StateError it panics with.
func expectStatePanic(t *testing.T, f func()) (err *hal.StateError) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		se, ok := r.(*hal.StateError)
		if !ok {
			t.Fatalf("panic value %T (%v), want *hal.StateError", r, r)
		}
		err = se
	}()
	f()
	return nil
}

func TestCallSequences(t *testing.T) {
	tests := []struct {
		chip   *hal.Chip
		flash  []string
		mmu    []string
		resume []string
	}{
		{
			chip:   hal.ESP32,
			flash:  []string{"ets_efuse_get_spiconfig", "esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"mmu_init", "mmu_init"},
			resume: []string{"read_reg", "write_reg", "Cache_Read_Enable_rom"},
		},
		{
			chip:  hal.ESP32S2,
			flash: []string{"read_reg", "write_reg", "ets_efuse_get_spiconfig", "esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:   []string{"Cache_MMU_Init", "Cache_Disable_ICache", "Cache_Disable_DCache"},
			resume: []string{
				"write_reg", "write_reg",
				"Cache_Resume_ICache", "Cache_Resume_DCache",
				"Cache_Invalidate_ICache_All", "Cache_Invalidate_DCache_All",
				"Cache_Enable_DCache", "Cache_Enable_ICache",
			},
		},
		{
			chip:   hal.ESP32S3,
			flash:  []string{"ets_efuse_get_spiconfig", "esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"Cache_MMU_Init", "Cache_Enable_ICache", "Cache_Suspend_ICache", "Cache_Invalidate_ICache_All"},
			resume: []string{"Cache_Resume_ICache"},
		},
		{
			chip:   hal.ESP32C2,
			flash:  []string{"ets_efuse_get_spiconfig", "esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"Cache_MMU_Init", "Cache_Enable_ICache", "Cache_Suspend_ICache", "Cache_Invalidate_ICache_All"},
			resume: []string{"Cache_Resume_ICache"},
		},
		{
			chip:   hal.ESP32C3,
			flash:  []string{"ets_efuse_get_spiconfig", "esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"Cache_MMU_Init", "Cache_Enable_ICache", "Cache_Suspend_ICache", "Cache_Invalidate_ICache_All"},
			resume: []string{"Cache_Resume_ICache"},
		},
		{
			chip:   hal.ESP32C6,
			flash:  []string{"esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"Cache_MMU_Init", "Cache_Enable_ICache", "Cache_Suspend_ICache", "Cache_Invalidate_ICache_All"},
			resume: []string{"Cache_Resume_ICache"},
		},
		{
			chip:   hal.ESP32H2,
			flash:  []string{"esp_rom_spiflash_config_param", "esp_rom_spiflash_attach"},
			mmu:    []string{"Cache_MMU_Init", "Cache_Enable_ICache", "Cache_Suspend_ICache", "Cache_Invalidate_ICache_All"},
			resume: []string{"Cache_Resume_ICache"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.chip.Name, func(t *testing.T) {
			soc := newSoC(tt.chip)
			h := hal.New(tt.chip, soc)

			check := func(phase string, want []string) {
				t.Helper()
				got := soc.CallNames()
				if strings.Join(got, ",") != strings.Join(want, ",") {
					t.Errorf("%s calls:\n got  %v\n want %v", phase, got, want)
				}
				soc.ResetTrace()
			}

			if err := h.InitFlash(); err != nil {
				t.Fatalf("InitFlash() error = %v", err)
			}
			check("InitFlash", tt.flash)
			if h.State() != hal.StateFlashConfigured {
				t.Errorf("State() = %s, want flash configured", h.State())
			}

			token := h.InitMMU()
			check("InitMMU", tt.mmu)
			if h.State() != hal.StateCacheSuspended {
				t.Errorf("State() = %s, want cache suspended", h.State())
			}

			h.ResumeMMU(token)
			check("ResumeMMU", tt.resume)
			if h.State() != hal.StateCacheResumed {
				t.Errorf("State() = %s, want cache resumed", h.State())
			}
			if !token.Spent() {
				t.Error("token should be spent after ResumeMMU")
			}
		})
	}
}

func TestAttachConfig(t *testing.T) {
	tests := []struct {
		chip *hal.Chip
		want uint32
	}{
		{chip: hal.ESP32, want: 0xABCD},
		{chip: hal.ESP32S3, want: 0xABCD},
		{chip: hal.ESP32C6, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.chip.Name, func(t *testing.T) {
			soc := newSoC(tt.chip, sim.WithEfuseSPIConfig(0xABCD))
			h := hal.New(tt.chip, soc)

			if err := h.InitFlash(); err != nil {
				t.Fatalf("InitFlash() error = %v", err)
			}

			attached, cfg := soc.Attached()
			if !attached {
				t.Fatal("flash not attached")
			}
			if cfg != tt.want {
				t.Errorf("attach config = 0x%X, want 0x%X", cfg, tt.want)
			}

			args := soc.Trace()[len(soc.Trace())-2].Args
			want := []uint32{0, hal.FlashSize, hal.FlashBlockSize, hal.FlashSectorSize, hal.FlashPageSize, hal.FlashStatusMask}
			for i := range want {
				if args[i] != want[i] {
					t.Errorf("config param arg %d = 0x%X, want 0x%X", i, args[i], want[i])
				}
			}
		})
	}
}

func TestInitFlashConfigFailure(t *testing.T) {
	soc := newSoC(hal.ESP32S3, sim.WithFlashStatus(rom.FlashTimeout))
	h := hal.New(hal.ESP32S3, soc)

	err := h.InitFlash()
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var se *rom.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error type %T, want *rom.StatusError", err)
	}
	if se.Code != rom.FlashTimeout {
		t.Errorf("Code = %d, want %d", se.Code, rom.FlashTimeout)
	}
	if !strings.Contains(err.Error(), "spiflash config param") {
		t.Errorf("error should name the operation, got: %v", err)
	}

	if soc.Count("esp_rom_spiflash_attach") != 0 {
		t.Error("attach should be skipped when configuration fails")
	}

	// the HAL still advances, but reads fail because flash is not attached
	if h.State() != hal.StateFlashConfigured {
		t.Errorf("State() = %s, want flash configured", h.State())
	}
	if err := h.ReadFlash(0, make([]byte, 4)); err == nil {
		t.Error("ReadFlash() should fail without attach")
	}
}

func TestQuirks(t *testing.T) {
	t.Run("esp32 resume", func(t *testing.T) {
		const reg = 0x3FF00044
		soc := newSoC(hal.ESP32)
		soc.SetReg(reg, 0xFF)

		h := hal.New(hal.ESP32, soc)
		h.InitFlash()
		h.ResumeMMU(h.InitMMU())

		if got := soc.Reg(reg); got != 0xF6 {
			t.Errorf("reg 0x%08X = 0x%X, want 0xF6", reg, got)
		}
	})

	t.Run("esp32s2 flash", func(t *testing.T) {
		const reg = 0x3F4080B0
		soc := newSoC(hal.ESP32S2)
		soc.SetReg(reg, 0x1)

		h := hal.New(hal.ESP32S2, soc)
		h.InitFlash()

		if got := soc.Reg(reg); got != 0x80000001 {
			t.Errorf("reg 0x%08X = 0x%X, want 0x80000001", reg, got)
		}
	})

	t.Run("esp32s2 resume", func(t *testing.T) {
		soc := newSoC(hal.ESP32S2)
		soc.SetReg(0x61800004, 0xFF)
		soc.SetReg(0x61800044, 0xFF)

		h := hal.New(hal.ESP32S2, soc)
		h.InitFlash()
		h.ResumeMMU(h.InitMMU())

		for _, reg := range []uint32{0x61800004, 0x61800044} {
			if got := soc.Reg(reg); got != 0b010 {
				t.Errorf("reg 0x%08X = 0x%X, want 0x2", reg, got)
			}
		}
		if soc.ICache() != sim.CacheEnabled || soc.DCache() != sim.CacheEnabled {
			t.Errorf("caches = %s/%s, want enabled", soc.ICache(), soc.DCache())
		}
	})
}

func TestMMUDispatch(t *testing.T) {
	tests := []struct {
		chip      *hal.Chip
		dbus      bool
		wantCalls map[string]int
		wantTable []string
	}{
		{chip: hal.ESP32, dbus: true, wantCalls: map[string]int{"cache_flash_mmu_set_rom": 2}, wantTable: []string{sim.TablePRO, sim.TableAPP}},
		{chip: hal.ESP32, dbus: false, wantCalls: map[string]int{"cache_flash_mmu_set_rom": 2}, wantTable: []string{sim.TablePRO, sim.TableAPP}},
		{chip: hal.ESP32S2, dbus: true, wantCalls: map[string]int{"Cache_Ibus_MMU_Set": 1}, wantTable: []string{sim.TableIBus}},
		{chip: hal.ESP32S2, dbus: false, wantCalls: map[string]int{"Cache_Ibus_MMU_Set": 1}, wantTable: []string{sim.TableIBus}},
		{chip: hal.ESP32S3, dbus: true, wantCalls: map[string]int{"Cache_Dbus_MMU_Set": 1}, wantTable: []string{sim.TableDBus}},
		{chip: hal.ESP32S3, dbus: false, wantCalls: map[string]int{"Cache_Ibus_MMU_Set": 1}, wantTable: []string{sim.TableIBus}},
		{chip: hal.ESP32C3, dbus: true, wantCalls: map[string]int{"Cache_Dbus_MMU_Set": 1}, wantTable: []string{sim.TableDBus}},
		{chip: hal.ESP32C6, dbus: true, wantCalls: map[string]int{"Cache_MSPI_MMU_Set": 1}, wantTable: []string{sim.TableMSPI}},
		{chip: hal.ESP32H2, dbus: true, wantCalls: map[string]int{"Cache_MSPI_MMU_Set": 1}, wantTable: []string{sim.TableMSPI}},
	}

	for _, tt := range tests {
		name := tt.chip.Name + "/ibus"
		// the ESP32 IROM window does not start on a page boundary
		vaddr := (tt.chip.IROM.Base + 0xFFFF) &^ 0xFFFF
		set := (*hal.HAL).IbusMMUSet
		if tt.dbus {
			name = tt.chip.Name + "/dbus"
			vaddr = tt.chip.DROM.Base
			set = (*hal.HAL).DbusMMUSet
		}

		t.Run(name, func(t *testing.T) {
			soc := newSoC(tt.chip)
			h := hal.New(tt.chip, soc)
			h.InitFlash()
			h.InitMMU()
			soc.ResetTrace()

			if err := set(h, vaddr, 0x20000, 64, 2, 0); err != nil {
				t.Fatalf("mmu set error = %v", err)
			}

			for name, n := range tt.wantCalls {
				if got := soc.Count(name); got != n {
					t.Errorf("%s called %d times, want %d (trace %v)", name, got, n, soc.CallNames())
				}
			}
			for _, table := range tt.wantTable {
				p, ok := soc.Translate(table, vaddr+0x10004)
				if !ok || p != 0x30004 {
					t.Errorf("table %s: Translate() = 0x%X, %v; want 0x30004, true", table, p, ok)
				}
			}
		})
	}
}

func TestMMUAccessFlashArgument(t *testing.T) {
	soc := newSoC(hal.ESP32S2)
	h := hal.New(hal.ESP32S2, soc)
	h.InitFlash()
	h.InitMMU()
	soc.ResetTrace()

	h.DbusMMUSet(hal.ESP32S2.DROM.Base, 0x10000, 64, 1, 0)

	args := soc.Trace()[0].Args
	if args[0] != 1<<15 {
		t.Errorf("ext_ram argument = 0x%X, want 0x8000", args[0])
	}
}

func TestMMUErrors(t *testing.T) {
	tests := []struct {
		name       string
		chip       *hal.Chip
		vaddr      uint32
		paddr      uint32
		psize      uint32
		wantCode   int32
		wantReason string
	}{
		{name: "unaligned", chip: hal.ESP32S3, vaddr: 0x3C000100, paddr: 0x10000, psize: 64, wantCode: rom.MMUErrUnaligned, wantReason: "not aligned"},
		{name: "page size", chip: hal.ESP32S3, vaddr: 0x3C000000, paddr: 0x10000, psize: 16, wantCode: rom.MMUErrPageSize, wantReason: "page size"},
		{name: "range", chip: hal.ESP32S3, vaddr: 0x3D000000, paddr: 0x10000, psize: 64, wantCode: rom.MMUErrRange, wantReason: "out of range"},
		{name: "legacy unaligned", chip: hal.ESP32, vaddr: 0x3F400100, paddr: 0x10000, psize: 64, wantCode: rom.LegacyMMUErrUnaligned, wantReason: "not aligned"},
		{name: "legacy page size", chip: hal.ESP32, vaddr: 0x3F400000, paddr: 0x10000, psize: 16, wantCode: rom.LegacyMMUErrPageSize, wantReason: "page size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			soc := newSoC(tt.chip)
			h := hal.New(tt.chip, soc)
			h.InitFlash()
			h.InitMMU()

			err := h.DbusMMUSet(tt.vaddr, tt.paddr, tt.psize, 1, 0)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var se *rom.StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error type %T, want *rom.StatusError", err)
			}
			if se.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", se.Code, tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantReason) {
				t.Errorf("error should contain %q, got: %v", tt.wantReason, err)
			}
			if !strings.Contains(err.Error(), "dbus mmu set") {
				t.Errorf("error should name the operation, got: %v", err)
			}
		})
	}
}

func TestReadFlash(t *testing.T) {
	flash := make([]byte, 0x100)
	flash[0x10] = 0xE9
	soc := sim.New(flash)
	h := hal.New(hal.ESP32C3, soc)
	h.InitFlash()

	dst := make([]byte, 1)
	if err := h.ReadFlash(0x10, dst); err != nil {
		t.Fatalf("ReadFlash() error = %v", err)
	}
	if dst[0] != 0xE9 {
		t.Errorf("dst = 0x%02X, want 0xE9", dst[0])
	}

	err := h.ReadFlash(0xFF, make([]byte, 4))
	if err == nil {
		t.Fatal("expected error reading past the end")
	}
	if !strings.Contains(err.Error(), "spiflash read 0x000000FF+4") {
		t.Errorf("error should name the read, got: %v", err)
	}
	if !rom.IsStatusError(err) {
		t.Errorf("error type %T, want *rom.StatusError", err)
	}
}

func TestStateViolations(t *testing.T) {
	fresh := func() *hal.HAL {
		return hal.New(hal.ESP32S3, newSoC(hal.ESP32S3))
	}

	t.Run("read before init", func(t *testing.T) {
		h := fresh()
		err := expectStatePanic(t, func() { h.ReadFlash(0, make([]byte, 1)) })
		if err.State != hal.StateIdle {
			t.Errorf("State = %s, want idle", err.State)
		}
		if !strings.Contains(err.Error(), "read flash not allowed in state idle") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("init flash twice", func(t *testing.T) {
		h := fresh()
		h.InitFlash()
		expectStatePanic(t, func() { h.InitFlash() })
	})

	t.Run("map before suspend", func(t *testing.T) {
		h := fresh()
		h.InitFlash()
		expectStatePanic(t, func() { h.IbusMMUSet(0x42000000, 0, 64, 1, 0) })
	})

	t.Run("init mmu before flash", func(t *testing.T) {
		h := fresh()
		expectStatePanic(t, func() { h.InitMMU() })
	})

	t.Run("read after resume", func(t *testing.T) {
		h := fresh()
		h.InitFlash()
		h.ResumeMMU(h.InitMMU())
		expectStatePanic(t, func() { h.ReadFlash(0, make([]byte, 1)) })
		expectStatePanic(t, func() { h.Memory(0x3FC88000, 4) })
	})

	t.Run("token reuse", func(t *testing.T) {
		h := fresh()
		h.InitFlash()
		token := h.InitMMU()
		h.ResumeMMU(token)

		err := expectStatePanic(t, func() { h.ResumeMMU(token) })
		if !strings.Contains(err.Error(), "already used") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("foreign token", func(t *testing.T) {
		a, b := fresh(), fresh()
		a.InitFlash()
		b.InitFlash()
		tokenA := a.InitMMU()
		b.InitMMU()

		err := expectStatePanic(t, func() { b.ResumeMMU(tokenA) })
		if !strings.Contains(err.Error(), "not issued by this HAL") {
			t.Errorf("unexpected message: %v", err)
		}
		if tokenA.Spent() {
			t.Error("rejected token should not be spent")
		}
	})

	t.Run("nil token", func(t *testing.T) {
		h := fresh()
		h.InitFlash()
		h.InitMMU()
		expectStatePanic(t, func() { h.ResumeMMU(nil) })
	})
}

func TestNewPanics(t *testing.T) {
	tests := []struct {
		name string
		f    func()
	}{
		{name: "nil chip", f: func() { hal.New(nil, sim.New(nil)) }},
		{name: "nil rom", f: func() { hal.New(hal.ESP32, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.f()
		})
	}
}

type recordingLogger struct {
	debug []string
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Info(msg string, kv ...interface{})  {}
func (l *recordingLogger) Error(msg string, kv ...interface{}) {}

func TestLogger(t *testing.T) {
	logger := &recordingLogger{}
	h := hal.New(hal.ESP32S2, newSoC(hal.ESP32S2), hal.WithLogger(logger))
	h.InitFlash()

	want := []string{"quirk applied", "flash attached"}
	if strings.Join(logger.debug, ",") != strings.Join(want, ",") {
		t.Errorf("debug messages = %v, want %v", logger.debug, want)
	}
}
