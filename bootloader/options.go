package bootloader

import "github.com/moffa90/go-espboot/espimage"

// Config holds the loader configuration.
type Config struct {
	// ProgressCallback is called at each boot phase (optional)
	ProgressCallback ProgressCallback

	// Logger is used for diagnostics (optional)
	Logger Logger

	// ImageOffset is the flash offset of the application image
	ImageOffset uint32

	// Strict turns flash, read, mapping and header-check failures into
	// errors instead of diagnostics
	Strict bool

	// MagicCheck validates the image header (magic, segment count, chip id)
	MagicCheck bool

	// ExpectedChip, when set, is compared with the image header chip id
	ExpectedChip *espimage.ChipID
}

// defaultConfig returns the default configuration: fail-forward, no header checks.
func defaultConfig() Config {
	return Config{
		ImageOffset: espimage.DefaultImageOffset,
	}
}

// Option is a functional option for configuring the Loader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track the boot pass.
//
// Example:
//
//	ldr := bootloader.New(h,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s]\n", p.Phase)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the loader diagnostics.
//
// Example:
//
//	ldr := bootloader.New(h, bootloader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithImageOffset sets the flash offset of the application image.
// Default is 0x10000.
//
// Example:
//
//	ldr := bootloader.New(h, bootloader.WithImageOffset(0x20000))
func WithImageOffset(offset uint32) Option {
	return func(c *Config) {
		c.ImageOffset = offset
	}
}

// WithStrict enables or disables strict mode. In strict mode the first flash
// configuration, read, mapping or header-check failure ends Load with an
// error. Default is false: failures are logged and loading continues.
//
// Example:
//
//	ldr := bootloader.New(h, bootloader.WithStrict(true))
func WithStrict(strict bool) Option {
	return func(c *Config) {
		c.Strict = strict
	}
}

// WithMagicCheck enables header validation (magic byte, segment count, chip id).
// A failed check is a diagnostic, or an error in strict mode.
func WithMagicCheck(check bool) Option {
	return func(c *Config) {
		c.MagicCheck = check
	}
}

// WithExpectedChip compares the image header chip id with id.
// A mismatch is a diagnostic, or an error in strict mode.
//
// Example:
//
//	ldr := bootloader.New(h, bootloader.WithExpectedChip(espimage.ChipESP32S3))
func WithExpectedChip(id espimage.ChipID) Option {
	return func(c *Config) {
		c.ExpectedChip = &id
	}
}
