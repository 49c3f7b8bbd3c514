package espimage

import "fmt"

// ChipID is the vendor-assigned chip identifier stored in the image header.
type ChipID uint16

// Chip identifiers per the vendor registry.
const (
	ChipESP32        ChipID = 0x0000
	ChipESP32S2      ChipID = 0x0002
	ChipESP32C3      ChipID = 0x0005
	ChipESP32S3      ChipID = 0x0009
	ChipESP32C2      ChipID = 0x000C
	ChipESP32C6      ChipID = 0x000D
	ChipESP32H2      ChipID = 0x0010
	ChipESP32C5Beta3 ChipID = 0x0011
	ChipESP32P4      ChipID = 0x0012
	ChipESP32C5MP    ChipID = 0x0017
	ChipInvalid      ChipID = 0xFFFF
)

var chipNames = map[ChipID]string{
	ChipESP32:        "ESP32",
	ChipESP32S2:      "ESP32-S2",
	ChipESP32C3:      "ESP32-C3",
	ChipESP32S3:      "ESP32-S3",
	ChipESP32C2:      "ESP32-C2",
	ChipESP32C6:      "ESP32-C6",
	ChipESP32H2:      "ESP32-H2",
	ChipESP32C5Beta3: "ESP32-C5 beta3",
	ChipESP32P4:      "ESP32-P4",
	ChipESP32C5MP:    "ESP32-C5",
}

// Known reports whether id is a registered chip (ChipInvalid is not).
func (id ChipID) Known() bool {
	_, ok := chipNames[id]
	return ok
}

func (id ChipID) String() string {
	if name, ok := chipNames[id]; ok {
		return name
	}
	if id == ChipInvalid {
		return "invalid"
	}
	return fmt.Sprintf("ChipID(0x%04X)", uint16(id))
}
