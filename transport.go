package golede

import "tinygo.org/x/bluetooth"

// Transport establishes links to devices by address.
type Transport interface {
	Connect(address string) (Connection, error)
}

// Connection is a live link to one device.
type Connection interface {
	// Endpoint looks up a characteristic within a service.
	Endpoint(service, characteristic bluetooth.UUID) (Endpoint, error)

	Disconnect() error
}

// Endpoint is a readable and writable characteristic on the remote device.
type Endpoint interface {
	Read() ([]byte, error)
	Write(p []byte) error
}
