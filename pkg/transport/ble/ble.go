// Package ble implements golede.Transport on top of tinygo.org/x/bluetooth.
package ble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/golede"
)

// DefaultScanTimeout bounds how long Connect looks for the address before giving up.
const DefaultScanTimeout = 10 * time.Second

// scanStopGrace bounds the wait for Scan to return once StopScan was called.
var scanStopGrace = 2 * time.Second

// maxReadSize is large enough for any Device Information string.
const maxReadSize = 512

// Transport connects to bulbs through golede.BTAdapter.
type Transport struct {
	ScanTimeout time.Duration
	log         *zap.Logger
}

var _ golede.Transport = (*Transport)(nil)

// New creates a transport. A nil logger disables logging.
func New(log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{ScanTimeout: DefaultScanTimeout, log: log.Named("ble")}
}

// Connect scans until a device advertising address is seen, then connects to it.
// Addresses are compared case-insensitively, so MAC strings work on every platform
// that reports MACs and UUID strings work on macOS.
func (t *Transport) Connect(address string) (golede.Connection, error) {
	if err := golede.TryEnableAdapter(); err != nil {
		return nil, fmt.Errorf("%w: enable adapter: %w", golede.ErrConnection, err)
	}

	addr, err := t.find(address)
	if err != nil {
		return nil, err
	}

	t.log.Info("connecting", zap.String("address", address))
	device, err := golede.BTAdapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", golede.ErrConnection, address, err)
	}
	return &connection{device: device, log: t.log}, nil
}

func (t *Transport) find(address string) (bluetooth.Address, error) {
	timeout := t.ScanTimeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	scanErr := make(chan error, 1)

	t.log.Debug("scanning for device", zap.String("address", address), zap.Duration("timeout", timeout))
	go func() {
		scanErr <- golede.BTAdapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matchesAddress(result.Address, address) {
				return
			}
			select {
			case found <- result.Address:
				if err := adapter.StopScan(); err != nil {
					t.log.Warn("failed to stop scan after match", zap.Error(err))
				}
			default:
			}
		})
	}()

	select {
	case addr := <-found:
		t.awaitScanExit(scanErr)
		return addr, nil
	case err := <-scanErr:
		if err == nil {
			err = errors.New("scan stopped")
		}
		return bluetooth.Address{}, fmt.Errorf("%w: scan: %w", golede.ErrConnection, err)
	case <-ctx.Done():
		if err := golede.BTAdapter.StopScan(); err != nil {
			t.log.Warn("failed to stop scan cleanly", zap.Error(err))
		}
		t.awaitScanExit(scanErr)
		return bluetooth.Address{}, fmt.Errorf("%w: %s not seen within %s", golede.ErrConnection, address, timeout)
	}
}

// awaitScanExit gives a stopped scan scanStopGrace to return. A scan that
// does not stop is abandoned so Connect stays bounded.
func (t *Transport) awaitScanExit(scanErr <-chan error) bool {
	timer := time.NewTimer(scanStopGrace)
	defer timer.Stop()
	select {
	case err := <-scanErr:
		if err != nil {
			t.log.Debug("scan ended", zap.Error(err))
		}
		return true
	case <-timer.C:
		t.log.Warn("scan did not stop, abandoning it", zap.Duration("grace", scanStopGrace))
		return false
	}
}

// matchesAddress compares an advertised address with the one asked for, ignoring case.
func matchesAddress(addr bluetooth.Address, want string) bool {
	return strings.EqualFold(addr.String(), strings.TrimSpace(want))
}

type connection struct {
	device bluetooth.Device
	log    *zap.Logger
}

// Endpoint discovers the service, then the characteristic within it.
func (c *connection) Endpoint(service, characteristic bluetooth.UUID) (golede.Endpoint, error) {
	c.log.Debug("discovering", zap.Stringer("service", service), zap.Stringer("characteristic", characteristic))

	services, err := c.device.DiscoverServices([]bluetooth.UUID{service})
	if err != nil {
		return nil, fmt.Errorf("%w: could not discover service %s: %w", golede.ErrEndpointNotFound, service, err)
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{characteristic})
		if err != nil {
			return nil, fmt.Errorf("%w: could not discover characteristic %s: %w", golede.ErrEndpointNotFound, characteristic, err)
		}
		for _, char := range chars {
			if char.UUID() == characteristic {
				return &endpoint{char: char}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", golede.ErrEndpointNotFound, service, characteristic)
}

func (c *connection) Disconnect() error {
	c.log.Info("disconnecting")
	return c.device.Disconnect()
}

type endpoint struct {
	char bluetooth.DeviceCharacteristic
}

func (e *endpoint) Read() ([]byte, error) {
	buf := make([]byte, maxReadSize)
	n, err := e.char.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", golede.ErrRead, err)
	}
	return buf[:n], nil
}

// Write sends p without waiting for an ATT response, as the bulb expects.
func (e *endpoint) Write(p []byte) error {
	if _, err := e.char.WriteWithoutResponse(p); err != nil {
		return fmt.Errorf("%w: %w", golede.ErrWrite, err)
	}
	return nil
}
