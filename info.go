package golede

import "sort"

// Device Information field names, as assigned by the Bluetooth SIG.
const (
	FieldModelNumber      = "Model Number String"
	FieldFirmwareRevision = "Firmware Revision String"
	FieldHardwareRevision = "Hardware Revision String"
	FieldManufacturerName = "Manufacturer Name String"
)

// DeviceInfo maps a Device Information field name to its value.
type DeviceInfo map[string]string

func (d DeviceInfo) Manufacturer() string     { return d[FieldManufacturerName] }
func (d DeviceInfo) Model() string            { return d[FieldModelNumber] }
func (d DeviceInfo) HardwareRevision() string { return d[FieldHardwareRevision] }
func (d DeviceInfo) FirmwareRevision() string { return d[FieldFirmwareRevision] }

// Keys returns the field names in sorted order.
func (d DeviceInfo) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy that callers may modify freely.
func (d DeviceInfo) Clone() DeviceInfo {
	if d == nil {
		return nil
	}
	c := make(DeviceInfo, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
