package golede

import "errors"

var (
	// ErrConnection indicates the device address was unreachable or the link failed.
	ErrConnection = errors.New("connection failed")

	// ErrEndpointNotFound indicates a service or characteristic is missing on the device,
	// usually because it is not a compatible bulb.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrWrite indicates a transport write failed.
	ErrWrite = errors.New("write failed")

	// ErrRead indicates a transport read failed.
	ErrRead = errors.New("read failed")

	// ErrNotConnected indicates a command was issued before Connect.
	ErrNotConnected = errors.New("bulb not connected")

	// ErrSessionClosed indicates the session was disconnected or failed; a new one is required.
	ErrSessionClosed = errors.New("session closed")

	// ErrNoDriver indicates no registered implementation matches a device name.
	ErrNoDriver = errors.New("no implementation found for device")
)
