package espimage

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

// Checksum trailer constants.
const (
	// ChecksumSeed is the initial value of the XOR checksum
	ChecksumSeed = 0xEF

	// ChecksumAlign is the alignment of the image end. The checksum is the
	// last byte of the aligned block following the last segment.
	ChecksumAlign = 16

	// DigestSize is the size of the appended SHA-256 digest
	DigestSize = sha256.Size
)

// Checksum computes the XOR checksum over the payload of every segment.
// Headers are not included.
func Checksum(segs []*Segment) byte {
	sum := byte(ChecksumSeed)
	for _, s := range segs {
		for _, b := range s.Data {
			sum ^= b
		}
	}
	return sum
}

// checksumPad returns the number of zero bytes between an image of size
// bytes and its checksum byte.
func checksumPad(size int) int {
	return (ChecksumAlign - 1) - size%ChecksumAlign
}

// AppendChecksum pads image, appends the checksum of segs and, when withDigest
// is set, the SHA-256 digest of everything before it. image must start with
// the image header; set Header.HashAppended before Build when withDigest is used.
//
// Example:
//
//	h.HashAppended = 1
//	out := espimage.AppendChecksum(espimage.Build(h, segs), segs, true)
func AppendChecksum(image []byte, segs []*Segment, withDigest bool) []byte {
	out := append(image, make([]byte, checksumPad(len(image)))...)
	out = append(out, Checksum(segs))

	if withDigest {
		sum := sha256.Sum256(out)
		out = append(out, sum[:]...)
	}

	return out
}

// ChecksumOffset returns the absolute flash offset of the checksum byte.
func (img *Image) ChecksumOffset() uint32 {
	size := img.Size()
	return img.Offset + size + uint32(checksumPad(int(size)))
}

// ChecksumError indicates the stored image checksum does not match the payload.
type ChecksumError struct {
	Stored   byte
	Computed byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("image checksum mismatch: stored 0x%02X, computed 0x%02X", e.Stored, e.Computed)
}

// DigestError indicates the appended SHA-256 digest does not match the image.
type DigestError struct {
	Stored   []byte
	Computed []byte
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("image digest mismatch: stored %x, computed %x", e.Stored, e.Computed)
}

// Verify checks the checksum trailer of img against data, the buffer img was
// parsed from. The SHA-256 digest is checked when the header says one is
// appended. This is a tooling check; the loader never calls it.
func (img *Image) Verify(data []byte) error {
	off := uint64(img.ChecksumOffset())
	if off >= uint64(len(data)) {
		return fmt.Errorf("checksum at 0x%08X exceeds data length %d", off, len(data))
	}

	if computed := Checksum(img.Segments); data[off] != computed {
		return &ChecksumError{Stored: data[off], Computed: computed}
	}

	if img.Header.HashAppended != 1 {
		return nil
	}

	end := off + 1
	if end+DigestSize > uint64(len(data)) {
		return fmt.Errorf("digest at 0x%08X exceeds data length %d", end, len(data))
	}

	computed := sha256.Sum256(data[img.Offset:end])
	stored := data[end : end+DigestSize]
	if !bytes.Equal(stored, computed[:]) {
		return &DigestError{Stored: stored, Computed: computed[:]}
	}

	return nil
}
