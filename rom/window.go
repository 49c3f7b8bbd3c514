package rom

import "fmt"

// Window is a contiguous address range [Base, Base+Size).
// The zero Window is empty.
type Window struct {
	Base uint32
	Size uint32
}

// Span returns the window covering first..last inclusive.
func Span(first, last uint32) Window {
	return Window{Base: first, Size: last - first + 1}
}

// Contains reports whether addr lies inside w.
func (w Window) Contains(addr uint32) bool {
	return w.Size != 0 && addr >= w.Base && addr-w.Base < w.Size
}

// Last returns the last address inside w. Meaningless for an empty window.
func (w Window) Last() uint32 {
	return w.Base + w.Size - 1
}

// Empty reports whether w covers no addresses.
func (w Window) Empty() bool {
	return w.Size == 0
}

func (w Window) String() string {
	if w.Empty() {
		return "empty"
	}
	return fmt.Sprintf("0x%08X-0x%08X", w.Base, w.Last())
}
