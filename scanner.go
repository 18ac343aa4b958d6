package golede

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

// FoundDevice is a bulb seen while scanning.
type FoundDevice struct {
	Name    string
	ID      string
	RSSI    int
	Address bluetooth.Address
}

// BTAdapter is the adapter used for scanning and connecting.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableOnce sync.Once
	enableErr  error
)

// TryEnableAdapter enables BTAdapter once per process.
func TryEnableAdapter() error {
	enableOnce.Do(func() {
		zap.L().Debug("enabling bluetooth adapter")
		enableErr = BTAdapter.Enable()
	})
	return enableErr
}

// ScanStream returns a channel that streams FoundDevice as they are discovered
// and stops scanning when the context is canceled.
func ScanStream(ctx context.Context, customPrefixes ...string) (<-chan FoundDevice, error) {
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	prefixesToScan := getPrefixes(customPrefixes...)
	if len(prefixesToScan) == 0 {
		return nil, errors.New("no implementations registered and no custom prefixes provided")
	}

	deviceChan := make(chan FoundDevice)
	log := zap.L().Named("scan")

	go func() {
		defer close(deviceChan)

		log.Info("starting BLE scan", zap.Strings("prefixes", prefixesToScan))

		handler := func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			dev, ok := matchResult(result, prefixesToScan)
			if !ok {
				return
			}
			select {
			case deviceChan <- dev:
			case <-ctx.Done():
			}
		}

		go func() {
			<-ctx.Done()
			if err := BTAdapter.StopScan(); err != nil {
				log.Warn("error stopping scan", zap.Error(err))
			}
		}()

		if err := BTAdapter.Scan(handler); err != nil {
			log.Error("error starting scan", zap.Error(err))
		}
	}()

	return deviceChan, nil
}

// Scan finds any bluetooth devices with given string prefixes in their name, blocks for duration.
func Scan(duration time.Duration, customPrefixes ...string) ([]FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	foundDevices := make(map[string]FoundDevice)
	for dev := range stream {
		if _, seen := foundDevices[dev.ID]; !seen {
			zap.L().Named("scan").Info("found a match", zap.String("name", dev.Name), zap.String("id", dev.ID))
		}
		foundDevices[dev.ID] = dev
	}

	results := make([]FoundDevice, 0, len(foundDevices))
	for _, device := range foundDevices {
		results = append(results, device)
	}
	return results, nil
}

// ScanForOne returns the first matching device, or an error once duration elapses.
func ScanForOne(duration time.Duration, customPrefixes ...string) (*FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	for dev := range stream {
		cancel()
		// drain so the scan goroutine can exit
		for range stream {
		}
		return &dev, nil
	}
	return nil, errors.New("no supported bulb found")
}

func matchResult(result bluetooth.ScanResult, prefixes []string) (FoundDevice, bool) {
	name := result.LocalName()
	if name == "" {
		return FoundDevice{}, false
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return FoundDevice{
				Name:    name,
				ID:      result.Address.String(),
				RSSI:    int(result.RSSI),
				Address: result.Address,
			}, true
		}
	}
	return FoundDevice{}, false
}

// getPrefixes returns customPrefixes if any were given, otherwise the registered driver prefixes.
func getPrefixes(customPrefixes ...string) []string {
	if len(customPrefixes) > 0 {
		return customPrefixes
	}
	return Drivers()
}
