// Package mock provides a simulated LEDE bulb behind a golede.Transport.
// It is intended for development and testing purposes when a physical bulb is not available.
package mock

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
)

// This init function registers the mock with the central registry.
// To use it, you must explicitly import this package.
func init() {
	// Register with a distinct name, "MOCK", so it can be requested specifically.
	golede.Register("MOCK", New)
}

// New creates a LEDE session wired to a fresh simulated bulb. The transport argument is ignored.
func New(device *golede.FoundDevice, _ golede.Transport) golede.Bulb {
	return lede.NewSession(NewTransport(), device.ID, lede.WithName(device.Name))
}

// Mode is what the bulb is currently showing.
type Mode int

const (
	ModeWhite Mode = iota
	ModeColour
	ModePreset
	ModeNight
)

func (m Mode) String() string {
	switch m {
	case ModeWhite:
		return "white"
	case ModeColour:
		return "colour"
	case ModePreset:
		return "preset"
	case ModeNight:
		return "night"
	default:
		return fmt.Sprintf("Unknown Mode (%d)", int(m))
	}
}

// State is a snapshot of the simulated bulb.
type State struct {
	Power             bool
	Mode              Mode
	Brightness        int
	ColourTemperature int
	Red, Green, Blue  byte
	Preset            int
}

// DefaultInfo is what the simulated bulb reports from its Device Information service.
var DefaultInfo = golede.DeviceInfo{
	golede.FieldModelNumber:      "MOCK-LEDE",
	golede.FieldFirmwareRevision: "0.0.1",
	golede.FieldHardwareRevision: "sim",
	golede.FieldManufacturerName: "golede",
}

// Bulb is the simulated device. Frames are validated the way the real bulb does:
// anything with a bad preamble, terminator, length or checksum is dropped.
type Bulb struct {
	mu       sync.Mutex
	state    State
	info     golede.DeviceInfo
	frames   [][]byte
	rejected int
	reads    int
	log      *zap.Logger
}

// NewBulb creates a simulated bulb that is off, in white mode at full brightness.
func NewBulb(log *zap.Logger) *Bulb {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bulb{
		state: State{Mode: ModeWhite, Brightness: comms.MaxLevel},
		info:  DefaultInfo.Clone(),
		log:   log.Named("mock"),
	}
}

// State returns the current state.
func (b *Bulb) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Frames returns every frame written to the control characteristic, accepted or not.
func (b *Bulb) Frames() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.frames))
	copy(out, b.frames)
	return out
}

// Rejected returns how many frames failed validation.
func (b *Bulb) Rejected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

// InfoReads returns how many Device Information reads were served.
func (b *Bulb) InfoReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

// receive applies one frame from the control characteristic.
func (b *Bulb) receive(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, append([]byte(nil), frame...))

	msg, err := comms.ParseFrame(frame)
	if err != nil {
		b.rejected++
		b.log.Warn("MOCK: dropping frame", zap.Error(err), zap.String("frame", fmt.Sprintf("% X", frame)))
		return
	}

	p := msg.Payload
	switch msg.Opcode {
	case comms.OpPower:
		b.state.Power = p[1] == 0x01
	case comms.OpColour:
		if p[1] == 0x02 {
			b.state.Mode = ModeWhite
		} else {
			b.state.Mode = ModeColour
			b.state.Red, b.state.Green, b.state.Blue = p[2], p[3], p[4]
		}
	case comms.OpBrightness:
		b.state.Brightness = int(p[1]) - 2
	case comms.OpColourTemperature:
		b.state.ColourTemperature = int(p[1]) - 2
	case comms.OpPreset:
		b.state.Mode = ModePreset
		b.state.Preset = int(p[1])
	case comms.OpNightMode:
		b.state.Mode = ModeNight
	}
	b.log.Debug("MOCK: frame applied", zap.Uint8("opcode", msg.Opcode), zap.Any("state", b.state))
}

func (b *Bulb) read(name string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	return []byte(b.info[name])
}

// Transport connects to a single simulated bulb at any address.
type Transport struct {
	Bulb *Bulb

	mu          sync.Mutex
	unreachable map[string]bool
	connections int
}

var _ golede.Transport = (*Transport)(nil)

// NewTransport creates a transport with a fresh simulated bulb.
func NewTransport() *Transport {
	return NewTransportWithLogger(zap.NewNop())
}

// NewTransportWithLogger creates a transport whose bulb logs to log.
func NewTransportWithLogger(log *zap.Logger) *Transport {
	return &Transport{Bulb: NewBulb(log), unreachable: map[string]bool{}}
}

// SetUnreachable makes Connect to address fail.
func (t *Transport) SetUnreachable(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unreachable[strings.ToUpper(address)] = true
}

// Connections returns how many connections are open.
func (t *Transport) Connections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connections
}

func (t *Transport) Connect(address string) (golede.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unreachable[strings.ToUpper(address)] {
		return nil, fmt.Errorf("%w: mock bulb %s is unreachable", golede.ErrConnection, address)
	}
	t.connections++
	t.Bulb.log.Info("MOCK: connected", zap.String("address", address))
	return &connection{transport: t}, nil
}

type connection struct {
	transport *Transport
	closed    bool
}

var infoNames = map[bluetooth.UUID]string{
	comms.ModelNumberCharUUID:      golede.FieldModelNumber,
	comms.FirmwareRevisionCharUUID: golede.FieldFirmwareRevision,
	comms.HardwareRevisionCharUUID: golede.FieldHardwareRevision,
	comms.ManufacturerNameCharUUID: golede.FieldManufacturerName,
}

func (c *connection) Endpoint(service, characteristic bluetooth.UUID) (golede.Endpoint, error) {
	if c.closed {
		return nil, fmt.Errorf("%w: mock connection closed", golede.ErrConnection)
	}
	switch {
	case service == comms.ControlServiceUUID && characteristic == comms.ControlWriteCharUUID:
		return &endpoint{conn: c}, nil
	case service == comms.InfoServiceUUID:
		if name, ok := infoNames[characteristic]; ok {
			return &endpoint{conn: c, info: name}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", golede.ErrEndpointNotFound, service, characteristic)
}

func (c *connection) Disconnect() error {
	if c.closed {
		return nil
	}
	c.closed = true

	t := c.transport
	t.mu.Lock()
	t.connections--
	t.mu.Unlock()
	t.Bulb.log.Info("MOCK: disconnected")
	return nil
}

type endpoint struct {
	conn *connection
	info string // empty for the control characteristic
}

func (e *endpoint) Read() ([]byte, error) {
	if e.conn.closed {
		return nil, fmt.Errorf("%w: mock connection closed", golede.ErrRead)
	}
	if e.info == "" {
		return nil, fmt.Errorf("%w: control characteristic is write only", golede.ErrRead)
	}
	return e.conn.transport.Bulb.read(e.info), nil
}

func (e *endpoint) Write(p []byte) error {
	if e.conn.closed {
		return fmt.Errorf("%w: mock connection closed", golede.ErrWrite)
	}
	if e.info != "" {
		return fmt.Errorf("%w: %s is read only", golede.ErrWrite, e.info)
	}
	e.conn.transport.Bulb.receive(p)
	return nil
}
