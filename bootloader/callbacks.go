package bootloader

// Boot phases reported through Progress.Phase.
const (
	PhaseFlash   = "flash"
	PhaseMMU     = "mmu"
	PhaseHeader  = "header"
	PhaseSegment = "segment"
	PhaseResume  = "resume"
	PhaseJump    = "jump"
)

// Progress contains information about the boot pass.
// Passed to ProgressCallback as the loader moves through its phases.
type Progress struct {
	// Phase describes the current step:
	//   "flash"   - Configuring and attaching flash
	//   "mmu"     - Suspending the cache
	//   "header"  - Image header decoded
	//   "segment" - A segment was placed
	//   "resume"  - Resuming the cache
	//   "jump"    - About to transfer control
	Phase string

	// Segment is the index of the segment just placed (PhaseSegment only)
	Segment int

	// TotalSegments is the segment count from the image header
	TotalSegments int

	// Placement is how the segment was placed (PhaseSegment only)
	Placement Placement

	// BytesCopied is the total number of bytes copied into RAM so far
	BytesCopied uint64

	// BlocksMapped is the total number of MMU pages mapped so far
	BlocksMapped uint64
}

// ProgressCallback is called at each phase of the boot pass.
// Implementations should return quickly.
//
// Example:
//
//	ldr := bootloader.New(h,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] segment %d/%d\n", p.Phase, p.Segment+1, p.TotalSegments)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the loader.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	ldr := bootloader.New(h, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
