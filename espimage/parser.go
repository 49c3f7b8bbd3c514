package espimage

import (
	"fmt"
	"os"
)

// Parse parses an application image file (esptool "app.bin" layout, image at offset 0).
//
// Example:
//
//	img, err := espimage.Parse("app.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Entry: 0x%08X\n", img.Header.EntryAddr)
func Parse(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseBytes(data, 0)
}

// ParseBytes parses the image located at offset within data.
// data is usually a complete flash dump and offset DefaultImageOffset.
//
// Unlike the decoders, ParseBytes checks every record against the
// length of data and reports truncation as an error.
func ParseBytes(data []byte, offset uint32) (*Image, error) {
	if uint64(offset)+HeaderSize > uint64(len(data)) {
		return nil, fmt.Errorf("image header at 0x%08X exceeds data length %d", offset, len(data))
	}

	img := &Image{
		Offset: offset,
		Header: DecodeHeader(data[offset:]),
	}
	img.Segments = make([]*Segment, 0, img.Header.SegmentCount)

	cursor := uint64(offset) + HeaderSize
	for i := 0; i < int(img.Header.SegmentCount); i++ {
		if cursor+SegmentHeaderSize > uint64(len(data)) {
			return nil, fmt.Errorf("segment %d: header at 0x%08X exceeds data length %d", i, cursor, len(data))
		}

		sh := DecodeSegmentHeader(data[cursor:])
		payload := cursor + SegmentHeaderSize
		end := payload + uint64(sh.DataLen)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("segment %d: payload 0x%08X-0x%08X exceeds data length %d",
				i, payload, end, len(data))
		}

		seg := &Segment{
			Index:         i,
			Offset:        uint32(cursor),
			SegmentHeader: sh,
			Data:          make([]byte, sh.DataLen),
		}
		copy(seg.Data, data[payload:end])
		img.Segments = append(img.Segments, seg)

		cursor = end
	}

	return img, nil
}

// Build assembles an image from a header and segments. The header's
// SegmentCount is set to len(segs); each segment's DataLen is taken from
// its payload and its Offset and Index are filled in relative to the image start.
//
// Example:
//
//	bin := espimage.Build(espimage.Header{Magic: espimage.Magic, EntryAddr: 0x40080000},
//	    []*espimage.Segment{{SegmentHeader: espimage.SegmentHeader{LoadAddr: 0x3FFB0000}, Data: data}})
func Build(h Header, segs []*Segment) []byte {
	if len(segs) > 0xFF {
		panic(fmt.Sprintf("espimage: %d segments do not fit the segment count field", len(segs)))
	}

	h.SegmentCount = byte(len(segs))

	size := HeaderSize
	for _, seg := range segs {
		size += SegmentHeaderSize + len(seg.Data)
	}

	out := h.AppendBinary(make([]byte, 0, size))
	for i, seg := range segs {
		seg.Index = i
		seg.Offset = uint32(len(out))
		seg.DataLen = uint32(len(seg.Data))
		out = seg.SegmentHeader.AppendBinary(out)
		out = append(out, seg.Data...)
	}

	return out
}
