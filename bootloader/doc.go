// Package bootloader provides the second-stage boot pass for ESP32-family chips.
//
// # Overview
//
// This package orchestrates the complete application load sequence:
//   - Configuring and attaching the SPI flash
//   - Suspending the cache and keeping the autoload token
//   - Reading the image header at the image offset
//   - Placing each segment: copy into RAM, or map on the IBus or DBus
//   - Resuming the cache
//   - Transferring control to the image entry point
//
// # Basic Usage
//
// The loader runs on top of a chip HAL, which in turn runs on a ROM:
//
//	soc := sim.New(flash)
//	h := hal.New(hal.ESP32S3, soc)
//
//	ldr := bootloader.New(h)
//	ldr.Boot(soc) // does not return
//
// Load performs the same pass without the jump and returns a Report:
//
//	report, err := ldr.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range report.Segments {
//	    fmt.Printf("segment %d: %s\n", s.Index, s.Placement)
//	}
//
// # Placement Rules
//
// A segment with load address 0 is skipped. A load address inside RAM is
// copied from flash. Any other load address is mapped through the MMU in
// 64 KiB pages: the virtual and flash addresses are each rounded down to a
// page boundary, and the page count covers the offset of the load address
// within its page. Data ROM addresses go to the DBus, all others to the IBus.
//
// The flash cursor advances by the segment header plus the data length after
// every segment, placed or not.
//
// # Progress Tracking
//
//	ldr := bootloader.New(h,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] segment %d/%d\n", p.Phase, p.Segment+1, p.TotalSegments)
//	    }),
//	)
//
// # Configuration Options
//
//	ldr := bootloader.New(h,
//	    bootloader.WithLogger(myLogger),
//	    bootloader.WithImageOffset(0x10000),
//	    bootloader.WithMagicCheck(true),
//	    bootloader.WithExpectedChip(espimage.ChipESP32S3),
//	    bootloader.WithStrict(true),
//	)
//
// # Logging
//
// Integrate with any logging framework:
//
//	type MyLogger struct {
//	    logger *log.Logger
//	}
//
//	func (l *MyLogger) Debug(msg string, kv ...interface{}) {
//	    l.logger.Println("DEBUG:", msg, kv)
//	}
//
//	func (l *MyLogger) Info(msg string, kv ...interface{}) {
//	    l.logger.Println("INFO:", msg, kv)
//	}
//
//	func (l *MyLogger) Error(msg string, kv ...interface{}) {
//	    l.logger.Println("ERROR:", msg, kv)
//	}
//
//	ldr := bootloader.New(h, bootloader.WithLogger(&MyLogger{...}))
//
// # Error Handling
//
// By default the loader fails forward: flash, read and mapping failures are
// logged and the pass continues. WithStrict(true) stops at the first one.
//
// The package provides structured error types:
//   - MappingError: The MMU rejected a segment mapping
//   - MemoryError: No memory was available for a RAM copy
//   - HeaderError: The image header failed validation
//   - DeviceMismatchError: The image targets another chip
//   - FatalError: Panic value of Boot when Load fails
//   - rom.StatusError: A ROM primitive returned a failure status
//
// # Hardware Independence
//
// This package does NOT touch hardware. The HAL interface is satisfied by
// hal.HAL, which needs a rom.ROM implementation. The sim package provides
// a simulated SoC for tests and host tooling.
package bootloader
