package golede

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Result reports whether a range-limited command reached the bulb.
type Result int

const (
	// Applied means the command was framed and written.
	Applied Result = iota
	// Ignored means the argument was outside the accepted range and nothing was written.
	Ignored
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("Unknown Result (%d)", int(r))
	}
}

// Bulb is the generic interface for a Bluetooth RGB bulb.
// Implementations of this interface handle the command protocol of a specific model.
// A Bulb is not safe for concurrent use; commands are issued one at a time.
type Bulb interface {
	// Connect links to the bulb. A Bulb that was disconnected, or whose connection
	// failed, cannot be connected again; create a new one instead.
	Connect() error

	// Disconnect releases the connection. Commands issued afterwards fail with ErrSessionClosed.
	Disconnect() error

	// Info reads the Device Information fields once and returns the cached copy afterwards.
	Info() (DeviceInfo, error)

	// On switches the light on.
	On() error

	// Off switches the light off.
	Off() error

	// WhiteReset switches to white mode.
	WhiteReset() error

	// SetBrightness sets the brightness level, 0 to 9.
	SetBrightness(level int) (Result, error)

	// SetColourTemperature sets the colour temperature, 0 (cold) to 9 (warm).
	SetColourTemperature(level int) (Result, error)

	// SetRGB sets the colour. Channels are masked to their low byte.
	SetRGB(red, green, blue int) error

	// Preset selects one of the built-in programs, 1 to 10.
	Preset(number int) (Result, error)

	// NightMode starts the 20 minute night mode.
	NightMode() error

	// DeviceName returns the name the bulb was found under.
	DeviceName() string

	// DisplayName returns a human readable model name.
	DisplayName() string

	// IsConnected reports whether the bulb is in the connected state.
	IsConnected() bool
}

// --- Implementation Registry ---

// Factory is a function that creates a new Bulb for a found device on the given transport.
type Factory func(device *FoundDevice, transport Transport) Bulb

var (
	registry = make(map[string]Factory)
	regLock  = sync.RWMutex{}
)

// Register makes a bulb implementation available by its device name prefix.
// This function should be called from the init() function of the implementation's package.
func Register(namePrefix string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[namePrefix]; found {
		zap.L().Warn("bulb implementation is being overwritten", zap.String("prefix", namePrefix))
	}
	registry[namePrefix] = factory
}

// NewBulbForDevice finds a registered factory for the given device name and
// creates a new Bulb instance. It matches based on the prefix.
// Example: A device named "LEDE-8A21" would match a registered "LEDE" prefix.
func NewBulbForDevice(device *FoundDevice, transport Transport) (Bulb, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	for prefix, factory := range registry {
		if strings.HasPrefix(device.Name, prefix) {
			return factory(device, transport), nil
		}
	}

	return nil, fmt.Errorf("%w: '%s'", ErrNoDriver, device.Name)
}

// Drivers returns the registered name prefixes.
func Drivers() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}
