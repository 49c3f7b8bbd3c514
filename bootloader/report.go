package bootloader

import "github.com/moffa90/go-espboot/espimage"

// SegmentResult describes how one segment was handled.
type SegmentResult struct {
	// Index is the segment position in the image
	Index int

	// Offset is the flash offset of the segment header
	Offset uint32

	// LoadAddr and DataLen are taken from the segment header
	LoadAddr uint32
	DataLen  uint32

	// Placement is how the segment was placed
	Placement Placement

	// Mapping is set for PlaceIBus and PlaceDBus
	Mapping Mapping

	// Err is the placement failure, if any
	Err error
}

// Report summarizes a boot pass.
type Report struct {
	// Header is the decoded image header
	Header espimage.Header

	// Entry is the address control is transferred to
	Entry uint32

	// Segments holds one result per segment, in image order
	Segments []SegmentResult

	// End is the flash offset just past the last segment
	End uint32

	// BytesCopied is the number of bytes copied into RAM
	BytesCopied uint64

	// BlocksMapped is the number of MMU pages mapped
	BlocksMapped uint64
}

// Failed returns the segments whose placement failed.
func (r *Report) Failed() []SegmentResult {
	var failed []SegmentResult
	for _, s := range r.Segments {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}
