// Package lede drives the LEDE RGB bulb over a golede.Transport.
package lede

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
)

func init() {
	golede.Register("LEDE", New)
}

// This line is the compile-time check. It will fail to compile if
// *Session ever stops satisfying the golede.Bulb interface.
var _ golede.Bulb = (*Session)(nil)

type state int

const (
	stateDisconnected state = iota
	stateConnected
	// stateClosed is terminal: after Disconnect or any transport failure.
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnected:
		return "connected"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// infoFields are read, in order, from the Device Information service.
var infoFields = []struct {
	char bluetooth.UUID
	name string
}{
	{comms.ModelNumberCharUUID, golede.FieldModelNumber},
	{comms.FirmwareRevisionCharUUID, golede.FieldFirmwareRevision},
	{comms.HardwareRevisionCharUUID, golede.FieldHardwareRevision},
	{comms.ManufacturerNameCharUUID, golede.FieldManufacturerName},
}

// Session is one connection to one bulb. It is not safe for concurrent use.
type Session struct {
	id        uuid.UUID
	address   string
	transport golede.Transport
	opts      options
	log       *zap.Logger

	state     state
	conn      golede.Connection
	writeChar golede.Endpoint   // nil until the first command
	info      golede.DeviceInfo // nil until the first Info call
}

// New creates a session for a found device. It is the registered golede.Factory.
func New(device *golede.FoundDevice, transport golede.Transport) golede.Bulb {
	return NewSession(transport, device.ID, WithName(device.Name))
}

// NewSession creates a session for the bulb at address. Connect must be called before any command.
func NewSession(transport golede.Transport, address string, options ...Option) *Session {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	id := uuid.New()
	return &Session{
		id:        id,
		address:   address,
		transport: transport,
		opts:      opts,
		log: opts.logger.With(
			zap.String("session", id.String()),
			zap.String("address", address),
		),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Address returns the device address the session connects to.
func (s *Session) Address() string {
	return s.address
}

func (s *Session) DeviceName() string {
	if s.opts.name != "" {
		return s.opts.name
	}
	return s.address
}

func (s *Session) DisplayName() string {
	return "LEDE RGB bulb"
}

func (s *Session) IsConnected() bool {
	return s.state == stateConnected
}

// Connect links to the bulb. A failed connection closes the session.
func (s *Session) Connect() error {
	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return golede.ErrSessionClosed
	}

	s.log.Info("connecting")
	conn, err := s.transport.Connect(s.address)
	if err != nil {
		s.state = stateClosed
		err = wrap(golede.ErrConnection, err, "%s", s.address)
		s.log.Error("connect failed", zap.Error(err))
		return err
	}

	s.conn = conn
	s.state = stateConnected
	s.log.Info("connected")
	return nil
}

// Disconnect releases the connection. The session cannot be reused.
func (s *Session) Disconnect() error {
	if s.state != stateConnected {
		s.state = stateClosed
		return nil
	}

	s.log.Info("disconnecting")
	s.state = stateClosed
	s.writeChar = nil
	conn := s.conn
	s.conn = nil
	return conn.Disconnect()
}

// Info reads model, firmware revision, hardware revision and manufacturer on the
// first call and returns a copy of the cached values afterwards.
func (s *Session) Info() (golede.DeviceInfo, error) {
	if s.info != nil {
		return s.info.Clone(), nil
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	info := make(golede.DeviceInfo, len(infoFields))
	for _, f := range infoFields {
		ep, err := s.conn.Endpoint(comms.InfoServiceUUID, f.char)
		if err != nil {
			return nil, s.fail(wrap(golede.ErrEndpointNotFound, err, "%s/%s", comms.InfoServiceUUID, f.char))
		}
		raw, err := ep.Read()
		if err != nil {
			return nil, s.fail(wrap(golede.ErrRead, err, "%s", f.name))
		}
		info[f.name] = strings.TrimRight(string(raw), "\x00")
	}

	s.info = info
	s.log.Debug("device info read", zap.Any("info", info))
	return info.Clone(), nil
}

func (s *Session) On() error {
	return s.send(comms.BuildPowerOnCommand())
}

func (s *Session) Off() error {
	return s.send(comms.BuildPowerOffCommand())
}

func (s *Session) WhiteReset() error {
	return s.send(comms.BuildWhiteResetCommand())
}

// SetBrightness sets the brightness level. Levels outside 0..9 are Ignored.
func (s *Session) SetBrightness(level int) (golede.Result, error) {
	if level < comms.MinLevel || level > comms.MaxLevel {
		return s.ignore("brightness", level), nil
	}
	return golede.Applied, s.send(comms.BuildBrightnessCommand(level))
}

// SetColourTemperature sets the colour temperature. Levels outside 0..9 are Ignored.
func (s *Session) SetColourTemperature(level int) (golede.Result, error) {
	if level < comms.MinLevel || level > comms.MaxLevel {
		return s.ignore("colour_temperature", level), nil
	}
	return golede.Applied, s.send(comms.BuildColourTemperatureCommand(level))
}

func (s *Session) SetRGB(red, green, blue int) error {
	return s.send(comms.BuildColourCommand(red, green, blue))
}

// Preset selects a built-in program. Numbers outside 1..10 are Ignored.
func (s *Session) Preset(number int) (golede.Result, error) {
	if number < comms.MinPreset || number > comms.MaxPreset {
		return s.ignore("preset", number), nil
	}
	return golede.Applied, s.send(comms.BuildPresetCommand(number))
}

func (s *Session) NightMode() error {
	return s.send(comms.BuildNightModeCommand())
}

func (s *Session) ignore(command string, value int) golede.Result {
	s.opts.recorder.CommandIgnored(command)
	s.log.Debug("argument out of range, command ignored", zap.String("command", command), zap.Int("value", value))
	return golede.Ignored
}

// send frames cmd, writes it to the control characteristic and waits for the bulb to settle.
func (s *Session) send(cmd comms.Command) error {
	if err := s.ready(); err != nil {
		return err
	}

	char, err := s.controlCharacteristic()
	if err != nil {
		return err
	}

	frame := cmd.Frame(s.opts.random)
	if err := char.Write(frame); err != nil {
		s.opts.recorder.WriteFailed(cmd.Opcode)
		return s.fail(wrap(golede.ErrWrite, err, "opcode 0x%02X", cmd.Opcode))
	}
	s.opts.recorder.FrameWritten(cmd.Opcode, len(frame))
	s.log.Debug("frame written", zap.String("frame", fmt.Sprintf("% X", frame)))

	s.opts.sleep(s.opts.settleDelay)
	return nil
}

// controlCharacteristic resolves fff0/fff1 once per session.
func (s *Session) controlCharacteristic() (golede.Endpoint, error) {
	if s.writeChar != nil {
		return s.writeChar, nil
	}

	char, err := s.conn.Endpoint(comms.ControlServiceUUID, comms.ControlWriteCharUUID)
	if err != nil {
		return nil, s.fail(wrap(golede.ErrEndpointNotFound, err, "%s/%s", comms.ControlServiceUUID, comms.ControlWriteCharUUID))
	}
	s.writeChar = char
	return char, nil
}

func (s *Session) ready() error {
	switch s.state {
	case stateConnected:
		return nil
	case stateDisconnected:
		return golede.ErrNotConnected
	default:
		return golede.ErrSessionClosed
	}
}

// fail closes the session after a transport failure and returns err.
func (s *Session) fail(err error) error {
	s.log.Error("transport failure, closing session", zap.Error(err))
	if derr := s.Disconnect(); derr != nil {
		s.log.Warn("disconnect after failure", zap.Error(derr))
	}
	return err
}

// wrap tags err with kind unless it already carries it.
func wrap(kind, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}
