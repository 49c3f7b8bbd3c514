package bootloader

import (
	"fmt"

	"github.com/moffa90/go-espboot/espimage"
	"github.com/moffa90/go-espboot/hal"
	"github.com/moffa90/go-espboot/rom"
)

// HAL is the chip layer the loader drives. *hal.HAL implements it.
type HAL interface {
	InitFlash() error
	InitMMU() *hal.Autoload
	ResumeMMU(t *hal.Autoload)
	ReadFlash(addr uint32, dst []byte) error
	Memory(addr, n uint32) []byte
	IsRAM(addr uint32) bool
	IsDROM(vaddr uint32) bool
	IbusMMUSet(vaddr, paddr, pageSizeKB, numPages, fixed uint32) error
	DbusMMUSet(vaddr, paddr, pageSizeKB, numPages, fixed uint32) error
}

// Loader places the segments of an application image and transfers
// control to its entry point.
//
// A Loader performs one boot pass per call to Load and is not safe for
// concurrent use.
type Loader struct {
	hal    HAL
	config Config
}

// New creates a new Loader on top of the given HAL.
//
// Example:
//
//	h := hal.New(hal.ESP32S3, soc)
//	ldr := bootloader.New(h,
//	    bootloader.WithLogger(logger),
//	    bootloader.WithImageOffset(0x10000),
//	)
func New(h HAL, opts ...Option) *Loader {
	if h == nil {
		panic("hal cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Loader{
		hal:    h,
		config: cfg,
	}
}

// Config returns the effective configuration.
func (l *Loader) Config() Config {
	return l.config
}

// Load performs the boot pass up to, but not including, the jump:
//  1. Configure and attach flash
//  2. Suspend the cache and keep the autoload token
//  3. Read and decode the image header
//  4. Read each segment header and place the segment
//  5. Resume the cache with the token
//
// Failures are logged and loading continues, unless strict mode is on.
// In strict mode the first failure is returned and the cache is left
// suspended; the caller is expected to halt.
//
// Example:
//
//	report, err := ldr.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("entry 0x%08X\n", report.Entry)
func (l *Loader) Load() (*Report, error) {
	// Phase 1: flash
	l.reportProgress(Progress{Phase: PhaseFlash})
	if err := l.hal.InitFlash(); err != nil {
		l.logError("flash configuration failed", "error", err)
		if l.config.Strict {
			return nil, fmt.Errorf("init flash: %w", err)
		}
	}

	// Phase 2: suspend cache
	l.reportProgress(Progress{Phase: PhaseMMU})
	autoload := l.hal.InitMMU()

	// Phase 3: image header. The buffer is shared with the segment headers;
	// a failed read leaves its previous contents in place.
	var buf [espimage.HeaderSize]byte
	offset := l.config.ImageOffset
	if err := l.hal.ReadFlash(offset, buf[:]); err != nil {
		l.logError("image header read failed", "offset", hex32(offset), "error", err)
		if l.config.Strict {
			return nil, fmt.Errorf("read image header: %w", err)
		}
	}

	header := espimage.DecodeHeader(buf[:])
	if err := l.checkHeader(&header); err != nil {
		return nil, err
	}

	total := int(header.SegmentCount)
	l.logInfo("image header",
		"offset", hex32(offset),
		"segments", total,
		"entry", hex32(header.EntryAddr),
		"chip", header.ChipID,
	)
	l.reportProgress(Progress{Phase: PhaseHeader, TotalSegments: total})

	report := &Report{
		Header:   header,
		Entry:    header.EntryAddr,
		Segments: make([]SegmentResult, 0, total),
	}

	// Phase 4: segments
	cursor := offset + espimage.HeaderSize
	for i := 0; i < total; i++ {
		res := l.loadSegment(i, cursor, buf[:espimage.SegmentHeaderSize])
		report.Segments = append(report.Segments, res)

		if res.Err != nil {
			l.logError("segment placement failed", "index", i, "error", res.Err)
			if l.config.Strict {
				return nil, res.Err
			}
		}

		switch res.Placement {
		case PlaceRAM:
			if res.Err == nil {
				report.BytesCopied += uint64(res.DataLen)
			}
		case PlaceIBus, PlaceDBus:
			if res.Err == nil {
				report.BlocksMapped += uint64(res.Mapping.Blocks)
			}
		}

		cursor += espimage.SegmentHeaderSize + res.DataLen

		l.reportProgress(Progress{
			Phase:         PhaseSegment,
			Segment:       i,
			TotalSegments: total,
			Placement:     res.Placement,
			BytesCopied:   report.BytesCopied,
			BlocksMapped:  report.BlocksMapped,
		})
	}
	report.End = cursor

	// Phase 5: resume cache
	l.reportProgress(Progress{
		Phase:         PhaseResume,
		TotalSegments: total,
		BytesCopied:   report.BytesCopied,
		BlocksMapped:  report.BlocksMapped,
	})
	l.hal.ResumeMMU(autoload)

	l.logInfo("image loaded",
		"segments", total,
		"bytes_copied", report.BytesCopied,
		"blocks_mapped", report.BlocksMapped,
		"failed", len(report.Failed()),
	)

	return report, nil
}

// Boot runs Load and transfers control to the image entry point.
// It does not return: a Load error panics with *FatalError, and a Jumper
// that returns panics with ErrEntryReturned.
//
// Example:
//
//	ldr.Boot(soc)
func (l *Loader) Boot(j rom.Jumper) {
	if j == nil {
		panic("jumper cannot be nil")
	}

	report, err := l.Load()
	if err != nil {
		l.logError("boot failed", "error", err)
		panic(&FatalError{Err: err})
	}

	l.reportProgress(Progress{
		Phase:         PhaseJump,
		TotalSegments: len(report.Segments),
		BytesCopied:   report.BytesCopied,
		BlocksMapped:  report.BlocksMapped,
	})
	l.logInfo("jumping to entry", "entry", hex32(report.Entry))

	j.Jump(report.Entry)

	panic(ErrEntryReturned)
}

// loadSegment reads the segment header at cursor into buf and places the
// segment. The returned result carries any placement error.
func (l *Loader) loadSegment(index int, cursor uint32, buf []byte) SegmentResult {
	if err := l.hal.ReadFlash(cursor, buf); err != nil {
		l.logError("segment header read failed", "index", index, "offset", hex32(cursor), "error", err)
		if l.config.Strict {
			return SegmentResult{Index: index, Offset: cursor, Err: fmt.Errorf("read segment %d header: %w", index, err)}
		}
	}

	sh := espimage.DecodeSegmentHeader(buf)
	res := SegmentResult{
		Index:    index,
		Offset:   cursor,
		LoadAddr: sh.LoadAddr,
		DataLen:  sh.DataLen,
	}

	l.logInfo("segment",
		"index", index,
		"start", hex32(sh.LoadAddr),
		"end", hex32(sh.LoadAddr+sh.DataLen),
		"len", hex32(sh.DataLen),
	)

	payload := cursor + espimage.SegmentHeaderSize
	res.Placement = Classify(l.hal, sh.LoadAddr)

	switch res.Placement {
	case PlaceSkip:
		l.logDebug("segment skipped", "index", index)

	case PlaceRAM:
		dst := l.hal.Memory(sh.LoadAddr, sh.DataLen)
		if uint64(len(dst)) < uint64(sh.DataLen) {
			res.Err = &MemoryError{Segment: index, Addr: sh.LoadAddr, Len: sh.DataLen}
			break
		}
		if err := l.hal.ReadFlash(payload, dst[:sh.DataLen]); err != nil {
			res.Err = fmt.Errorf("segment %d: copy to 0x%08X: %w", index, sh.LoadAddr, err)
		}

	case PlaceIBus, PlaceDBus:
		m := AlignMapping(sh.LoadAddr, payload, sh.DataLen)
		res.Mapping = m

		l.logDebug("mapping segment",
			"index", index,
			"bus", res.Placement,
			"vaddr", hex32(m.VAddr),
			"paddr", hex32(m.PAddr),
			"blocks", m.Blocks,
		)

		var err error
		if res.Placement == PlaceDBus {
			err = l.hal.DbusMMUSet(m.VAddr, m.PAddr, MMUPageSizeKB, m.Blocks, 0)
		} else {
			err = l.hal.IbusMMUSet(m.VAddr, m.PAddr, MMUPageSizeKB, m.Blocks, 0)
		}
		if err != nil {
			res.Err = &MappingError{Segment: index, Bus: res.Placement, Mapping: m, Err: err}
		}
	}

	return res
}

// checkHeader applies the optional header checks. It returns an error only
// in strict mode.
func (l *Loader) checkHeader(h *espimage.Header) error {
	if l.config.MagicCheck {
		if err := h.Validate(); err != nil {
			herr := &HeaderError{Err: err}
			l.logError("image header rejected", "error", herr)
			if l.config.Strict {
				return herr
			}
		}
	}

	if l.config.ExpectedChip != nil && h.ChipID != *l.config.ExpectedChip {
		merr := &DeviceMismatchError{Expected: *l.config.ExpectedChip, Actual: h.ChipID}
		l.logError("image chip mismatch", "error", merr)
		if l.config.Strict {
			return merr
		}
	}

	return nil
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}

// reportProgress calls the progress callback if configured.
func (l *Loader) reportProgress(progress Progress) {
	if l.config.ProgressCallback != nil {
		l.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (l *Loader) logDebug(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (l *Loader) logInfo(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (l *Loader) logError(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Error(msg, keysAndValues...)
	}
}
