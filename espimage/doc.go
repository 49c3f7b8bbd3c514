// Package espimage provides encoding and parsing for ESP application images.
//
// # Image Format
//
// An application image is stored in flash at a fixed offset (0x10000 for the
// factory partition). It consists of a packed 24-byte header followed by
// segment records laid out back-to-back. All multi-byte fields are
// little-endian.
//
// Header Format (24 bytes):
//
//	[Magic(1)][SegmentCount(1)][SPIMode(1)][SpeedSize(1)][EntryAddr(4)]
//	[WPPin(1)][SPIPinDrv(3)][ChipID(2)][MinChipRev(1)]
//	[MinChipRevFull(2)][MaxChipRevFull(2)][Reserved(4)][HashAppended(1)]
//
// Segment Format (8 bytes + payload):
//
//	[LoadAddr(4)][DataLen(4)][Data(DataLen)]
//
// # Usage
//
// Decode the records read from flash by a loader:
//
//	var buf [espimage.HeaderSize]byte
//	readFlash(0x10000, buf[:])
//	hdr := espimage.DecodeHeader(buf[:])
//
// Parse a complete application image on a host:
//
//	img, err := espimage.Parse("app.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, seg := range img.Segments {
//	    fmt.Printf("Segment %d: 0x%08X (%d bytes)\n", seg.Index, seg.LoadAddr, seg.DataLen)
//	}
//
// Load an Intel HEX flash dump:
//
//	flash, err := espimage.ParseIntelHex(f)
//	img, err := espimage.ParseBytes(flash, espimage.DefaultImageOffset)
//
// # Validation
//
// The decoders never validate the magic byte, checksum or appended hash.
// Header.Validate is available for tools and debug builds that want it.
package espimage
