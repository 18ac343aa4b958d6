package lede

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
)

type endpointKey struct {
	service, char bluetooth.UUID
}

// fakeEndpoint records writes and serves a fixed value on read.
type fakeEndpoint struct {
	value    []byte
	reads    int
	writes   [][]byte
	writeErr error
	readErr  error
}

func (e *fakeEndpoint) Read() ([]byte, error) {
	e.reads++
	if e.readErr != nil {
		return nil, e.readErr
	}
	return e.value, nil
}

func (e *fakeEndpoint) Write(p []byte) error {
	if e.writeErr != nil {
		return e.writeErr
	}
	e.writes = append(e.writes, append([]byte(nil), p...))
	return nil
}

type fakeConn struct {
	endpoints    map[endpointKey]*fakeEndpoint
	lookups      map[endpointKey]int
	disconnected int
}

func (c *fakeConn) Endpoint(service, char bluetooth.UUID) (golede.Endpoint, error) {
	k := endpointKey{service, char}
	c.lookups[k]++
	ep, ok := c.endpoints[k]
	if !ok {
		return nil, errors.New("characteristic missing")
	}
	return ep, nil
}

func (c *fakeConn) Disconnect() error {
	c.disconnected++
	return nil
}

type fakeTransport struct {
	conn       *fakeConn
	connectErr error
	addresses  []string
}

func (t *fakeTransport) Connect(address string) (golede.Connection, error) {
	t.addresses = append(t.addresses, address)
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return t.conn, nil
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conn: &fakeConn{
		endpoints: map[endpointKey]*fakeEndpoint{
			{comms.ControlServiceUUID, comms.ControlWriteCharUUID}:  {},
			{comms.InfoServiceUUID, comms.ModelNumberCharUUID}:      {value: []byte("LEDE-BULB\x00")},
			{comms.InfoServiceUUID, comms.FirmwareRevisionCharUUID}: {value: []byte("1.0.3")},
			{comms.InfoServiceUUID, comms.HardwareRevisionCharUUID}: {value: []byte("B2")},
			{comms.InfoServiceUUID, comms.ManufacturerNameCharUUID}: {value: []byte("LEDE")},
		},
		lookups: map[endpointKey]int{},
	}}
}

func (t *fakeTransport) control() *fakeEndpoint {
	return t.conn.endpoints[endpointKey{comms.ControlServiceUUID, comms.ControlWriteCharUUID}]
}

type fixedSource byte

func (f fixedSource) IntN(int) int { return int(f) }

type sleepRecorder []time.Duration

func (s *sleepRecorder) sleep(d time.Duration) { *s = append(*s, d) }

func newTestSession(t *testing.T, tr *fakeTransport, extra ...Option) (*Session, *sleepRecorder) {
	t.Helper()
	sleeps := &sleepRecorder{}
	opts := append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(sleeps.sleep),
		WithRandom(fixedSource(0x10)),
	}, extra...)
	s := NewSession(tr, "AA:BB:CC:DD:EE:FF", opts...)
	require.NoError(t, s.Connect())
	return s, sleeps
}

func TestSessionOnEmitsExactFrame(t *testing.T) {
	tr := newFakeTransport()
	s, sleeps := newTestSession(t, tr)

	require.NoError(t, s.On())

	require.Len(t, tr.control().writes, 1)
	assert.Equal(t,
		[]byte{0xAA, 0x0A, 0xFC, 0x3A, 0x86, 0x01, 0x0A, 0x01, 0x01, 0x00, 0x28, 0x0D},
		tr.control().writes[0])
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, []time.Duration(*sleeps))
	assert.Equal(t, []string{"AA:BB:CC:DD:EE:FF"}, tr.addresses)
}

func TestFixedCommandsAreBuiltPerCall(t *testing.T) {
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr)

	require.NoError(t, s.On())
	require.NoError(t, s.NightMode())

	on := comms.BuildPowerOnCommand()
	on.Payload[1] = 0x00
	night := comms.BuildNightModeCommand()
	night.Payload[0] = 0x7f

	require.NoError(t, s.On())
	require.NoError(t, s.NightMode())

	writes := tr.control().writes
	require.Len(t, writes, 4)
	assert.Equal(t, writes[0], writes[2])
	assert.Equal(t, writes[1], writes[3])
	assert.Equal(t,
		[]byte{0xAA, 0x0A, 0xFC, 0x3A, 0x86, 0x01, 0x0A, 0x01, 0x01, 0x00, 0x28, 0x0D},
		writes[2])
}

func TestSessionCommandTable(t *testing.T) {
	tests := []struct {
		name    string
		run     func(s *Session) error
		opcode  byte
		payload []byte
	}{
		{"off", (*Session).Off, comms.OpPower, []byte{0x01, 0x00, 0x01, 0x28}},
		{"white", (*Session).WhiteReset, comms.OpColour, []byte{0x06, 0x02, 0x80, 0x80, 0x80, 0x80, 0x80}},
		{"night", (*Session).NightMode, comms.OpNightMode, []byte{0x02, 0x03, 0x01}},
		{"rgb", func(s *Session) error { return s.SetRGB(255, 0, 300) }, comms.OpColour, []byte{0x06, 0x01, 0xFF, 0x00, 0x2C, 0x80, 0x80}},
		{"cct", func(s *Session) error { _, err := s.SetColourTemperature(3); return err }, comms.OpColourTemperature, []byte{0x01, 0x05}},
		{"preset", func(s *Session) error { _, err := s.Preset(10); return err }, comms.OpPreset, []byte{0x01, 0x0A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			s, _ := newTestSession(t, tr)

			require.NoError(t, tt.run(s))
			require.Len(t, tr.control().writes, 1)

			frame, err := comms.ParseFrame(tr.control().writes[0])
			require.NoError(t, err)
			assert.Equal(t, tt.opcode, frame.Opcode)
			assert.Equal(t, tt.payload, frame.Payload)
		})
	}
}

func TestSessionBrightnessRangePolicy(t *testing.T) {
	tr := newFakeTransport()
	s, sleeps := newTestSession(t, tr)

	for _, level := range []int{-1, 10} {
		res, err := s.SetBrightness(level)
		require.NoError(t, err)
		assert.Equal(t, golede.Ignored, res)
	}
	assert.Empty(t, tr.control().writes)
	assert.Empty(t, *sleeps)

	res, err := s.SetBrightness(0)
	require.NoError(t, err)
	assert.Equal(t, golede.Applied, res)
	res, err = s.SetBrightness(9)
	require.NoError(t, err)
	assert.Equal(t, golede.Applied, res)

	writes := tr.control().writes
	require.Len(t, writes, 2)
	for i, want := range [][]byte{{0x01, 0x02}, {0x01, 0x0B}} {
		frame, err := comms.ParseFrame(writes[i])
		require.NoError(t, err)
		assert.Equal(t, comms.OpBrightness, frame.Opcode)
		assert.Equal(t, want, frame.Payload)
	}
}

func TestSessionIgnoresOutOfRangeLevelsAndPresets(t *testing.T) {
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr)

	for _, v := range []int{-5, -1, 10, 100} {
		res, err := s.SetColourTemperature(v)
		require.NoError(t, err)
		assert.Equal(t, golede.Ignored, res, "cct %d", v)
	}
	for _, v := range []int{0, 11, -1} {
		res, err := s.Preset(v)
		require.NoError(t, err)
		assert.Equal(t, golede.Ignored, res, "preset %d", v)
	}
	assert.Empty(t, tr.control().writes)
}

func TestSessionResolvesControlCharacteristicOnce(t *testing.T) {
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr)

	require.NoError(t, s.On())
	require.NoError(t, s.WhiteReset())
	require.NoError(t, s.Off())

	assert.Equal(t, 1, tr.conn.lookups[endpointKey{comms.ControlServiceUUID, comms.ControlWriteCharUUID}])
	assert.Len(t, tr.control().writes, 3)
}

func TestSessionInfoIsReadOnce(t *testing.T) {
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr)

	first, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, golede.DeviceInfo{
		golede.FieldModelNumber:      "LEDE-BULB",
		golede.FieldFirmwareRevision: "1.0.3",
		golede.FieldHardwareRevision: "B2",
		golede.FieldManufacturerName: "LEDE",
	}, first)

	// mutating the returned copy must not touch the cache
	first[golede.FieldModelNumber] = "changed"

	second, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "LEDE-BULB", second.Model())

	for k, ep := range tr.conn.endpoints {
		if k.service == comms.InfoServiceUUID {
			assert.Equal(t, 1, ep.reads, "reads of %s", k.char)
		}
	}
}

func TestSessionCommandsBeforeConnect(t *testing.T) {
	s := NewSession(newFakeTransport(), "AA:BB:CC:DD:EE:FF", WithSleep(func(time.Duration) {}))

	assert.ErrorIs(t, s.On(), golede.ErrNotConnected)
	_, err := s.Info()
	assert.ErrorIs(t, err, golede.ErrNotConnected)
	assert.False(t, s.IsConnected())
}

func TestSessionDisconnectIsTerminal(t *testing.T) {
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr)

	require.NoError(t, s.On())
	require.NoError(t, s.Disconnect())
	assert.Equal(t, 1, tr.conn.disconnected)
	assert.False(t, s.IsConnected())

	assert.ErrorIs(t, s.On(), golede.ErrSessionClosed)
	assert.ErrorIs(t, s.Connect(), golede.ErrSessionClosed)
	// a second Disconnect does not touch the transport again
	require.NoError(t, s.Disconnect())
	assert.Equal(t, 1, tr.conn.disconnected)
	assert.Len(t, tr.control().writes, 1)
}

func TestSessionConnectFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = errors.New("no route to device")
	s := NewSession(tr, "11:22:33:44:55:66")

	err := s.Connect()
	assert.ErrorIs(t, err, golede.ErrConnection)
	assert.ErrorContains(t, err, "no route to device")
	assert.ErrorIs(t, s.On(), golede.ErrSessionClosed)
}

func TestSessionWriteFailureIsFatal(t *testing.T) {
	tr := newFakeTransport()
	boom := errors.New("link lost")
	tr.control().writeErr = boom
	s, sleeps := newTestSession(t, tr)

	err := s.On()
	assert.ErrorIs(t, err, golede.ErrWrite)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, *sleeps)
	assert.Equal(t, 1, tr.conn.disconnected)

	assert.ErrorIs(t, s.Off(), golede.ErrSessionClosed)
}

func TestSessionMissingControlCharacteristic(t *testing.T) {
	tr := newFakeTransport()
	delete(tr.conn.endpoints, endpointKey{comms.ControlServiceUUID, comms.ControlWriteCharUUID})
	s, _ := newTestSession(t, tr)

	err := s.On()
	assert.ErrorIs(t, err, golede.ErrEndpointNotFound)
	assert.False(t, s.IsConnected())
}

func TestSessionInfoReadFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.conn.endpoints[endpointKey{comms.InfoServiceUUID, comms.HardwareRevisionCharUUID}].readErr = errors.New("att error")
	s, _ := newTestSession(t, tr)

	_, err := s.Info()
	assert.ErrorIs(t, err, golede.ErrRead)
	assert.ErrorIs(t, s.On(), golede.ErrSessionClosed)
}

func TestSessionSettleDelayOption(t *testing.T) {
	tr := newFakeTransport()
	s, sleeps := newTestSession(t, tr, WithSettleDelay(50*time.Millisecond))

	require.NoError(t, s.On())
	require.NoError(t, s.SetRGB(1, 2, 3))
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, []time.Duration(*sleeps))
}

type countingRecorder struct {
	written map[byte]int
	bytes   int
	failed  int
	ignored map[string]int
}

func (r *countingRecorder) FrameWritten(op byte, n int) {
	r.written[op]++
	r.bytes += n
}
func (r *countingRecorder) WriteFailed(byte)        { r.failed++ }
func (r *countingRecorder) CommandIgnored(c string) { r.ignored[c]++ }

func TestSessionRecorder(t *testing.T) {
	rec := &countingRecorder{written: map[byte]int{}, ignored: map[string]int{}}
	tr := newFakeTransport()
	s, _ := newTestSession(t, tr, WithRecorder(rec))

	require.NoError(t, s.On())
	_, err := s.Preset(3)
	require.NoError(t, err)
	_, err = s.Preset(42)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.written[comms.OpPower])
	assert.Equal(t, 1, rec.written[comms.OpPreset])
	assert.Equal(t, 12+12, rec.bytes)
	assert.Equal(t, 1, rec.ignored["preset"])
}

func TestRegisteredFactory(t *testing.T) {
	tr := newFakeTransport()
	bulb, err := golede.NewBulbForDevice(&golede.FoundDevice{Name: "LEDE-01", ID: "AA:BB"}, tr)
	require.NoError(t, err)
	assert.Equal(t, "LEDE-01", bulb.DeviceName())
	assert.Equal(t, "LEDE RGB bulb", bulb.DisplayName())

	_, err = golede.NewBulbForDevice(&golede.FoundDevice{Name: "OTHER"}, tr)
	assert.ErrorIs(t, err, golede.ErrNoDriver)
}
