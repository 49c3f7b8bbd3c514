package hal

// Logger is an optional logging interface; it has the same method set as
// bootloader.Logger so one implementation serves both.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config holds the HAL configuration.
type Config struct {
	// Logger receives quirk and attach diagnostics (optional)
	Logger Logger
}

// Option is a functional option for configuring the HAL.
type Option func(*Config)

// WithLogger sets a logger for HAL diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
