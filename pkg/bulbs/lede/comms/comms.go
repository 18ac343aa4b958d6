// Package comms provides communication details for the LEDE bulb: the GATT
// identifiers it exposes and the binary command frames it accepts.
package comms

import "tinygo.org/x/bluetooth"

var (
	ControlServiceUUID   = bluetooth.New16BitUUID(0xfff0)
	ControlWriteCharUUID = bluetooth.New16BitUUID(0xfff1)

	InfoServiceUUID          = bluetooth.New16BitUUID(0x180a)
	ModelNumberCharUUID      = bluetooth.New16BitUUID(0x2a24)
	FirmwareRevisionCharUUID = bluetooth.New16BitUUID(0x2a26)
	HardwareRevisionCharUUID = bluetooth.New16BitUUID(0x2a27)
	ManufacturerNameCharUUID = bluetooth.New16BitUUID(0x2a29)
)

// Opcodes understood by the bulb.
const (
	OpPower             byte = 0x0a
	OpPreset            byte = 0x0b
	OpBrightness        byte = 0x0c
	OpColour            byte = 0x0d
	OpColourTemperature byte = 0x0e
	OpNightMode         byte = 0x10
)

