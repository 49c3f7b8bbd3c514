package espimage

import (
	"encoding/binary"
	"fmt"
)

// DecodeHeader decodes a packed image header from the first HeaderSize bytes of b.
//
// b must hold at least HeaderSize bytes. A shorter buffer is a programming
// error of the caller and panics: the format has no length field to check
// against.
func DecodeHeader(b []byte) Header {
	if len(b) < HeaderSize {
		panic(fmt.Sprintf("espimage: header buffer too short: got %d bytes, need %d", len(b), HeaderSize))
	}

	h := Header{
		Magic:          b[0],
		SegmentCount:   b[1],
		SPIMode:        SPIMode(b[2]),
		SPISpeedSize:   b[3],
		EntryAddr:      binary.LittleEndian.Uint32(b[4:8]),
		WPPin:          b[8],
		ChipID:         ChipID(binary.LittleEndian.Uint16(b[12:14])),
		MinChipRev:     b[14],
		MinChipRevFull: binary.LittleEndian.Uint16(b[15:17]),
		MaxChipRevFull: binary.LittleEndian.Uint16(b[17:19]),
		HashAppended:   b[23],
	}
	copy(h.SPIPinDrv[:], b[9:12])
	copy(h.Reserved[:], b[19:23])

	return h
}

// DecodeSegmentHeader decodes a segment header from the first
// SegmentHeaderSize bytes of b. Same contract as DecodeHeader.
func DecodeSegmentHeader(b []byte) SegmentHeader {
	if len(b) < SegmentHeaderSize {
		panic(fmt.Sprintf("espimage: segment header buffer too short: got %d bytes, need %d", len(b), SegmentHeaderSize))
	}

	return SegmentHeader{
		LoadAddr: binary.LittleEndian.Uint32(b[0:4]),
		DataLen:  binary.LittleEndian.Uint32(b[4:8]),
	}
}

// AppendBinary appends the packed encoding of h to b.
func (h *Header) AppendBinary(b []byte) []byte {
	b = append(b, h.Magic, h.SegmentCount, byte(h.SPIMode), h.SPISpeedSize)
	b = binary.LittleEndian.AppendUint32(b, h.EntryAddr)
	b = append(b, h.WPPin)
	b = append(b, h.SPIPinDrv[:]...)
	b = binary.LittleEndian.AppendUint16(b, uint16(h.ChipID))
	b = append(b, h.MinChipRev)
	b = binary.LittleEndian.AppendUint16(b, h.MinChipRevFull)
	b = binary.LittleEndian.AppendUint16(b, h.MaxChipRevFull)
	b = append(b, h.Reserved[:]...)
	return append(b, h.HashAppended)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeaderSize)), nil
}

// AppendBinary appends the packed encoding of s to b.
func (s *SegmentHeader) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, s.LoadAddr)
	return binary.LittleEndian.AppendUint32(b, s.DataLen)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *SegmentHeader) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, SegmentHeaderSize)), nil
}
