package bus

// Device is a peripheral expected at a fixed address on the board
type Device struct {
	Name string
	Addr uint16
}

// Presence is the outcome of addressing one device. Err is nil when the
// device acknowledged.
type Presence struct {
	Device
	Err error
}

// Found reports whether the device acknowledged
func (p Presence) Found() bool {
	return p.Err == nil
}

// Scan addresses each device with an empty write to register 0, which only
// moves its register pointer, and reports which ones acknowledge. Results
// follow the order of devices.
func Scan(t Transport, devices []Device) []Presence {
	out := make([]Presence, 0, len(devices))
	for _, d := range devices {
		out = append(out, Presence{Device: d, Err: t.Write(d.Addr, 0x00, nil)})
	}
	return out
}
