package comms

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrShortFrame    = errors.New("frame too short")
	ErrBadPreamble   = errors.New("frame preamble mismatch")
	ErrBadTerminator = errors.New("frame terminator mismatch")
	ErrBadChecksum   = errors.New("frame checksum mismatch")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrPayloadLength = errors.New("payload length mismatch")
)

// payloadLengths is the payload size the bulb expects for each opcode.
var payloadLengths = map[byte]int{
	OpPower:             4,
	OpPreset:            2,
	OpBrightness:        2,
	OpColour:            7,
	OpColourTemperature: 2,
	OpNightMode:         3,
}

// HasRandomChecksum reports whether frames for opcode carry a nonce and checksum.
func HasRandomChecksum(opcode byte) bool {
	return opcode != OpPower
}

// DecodedFrame is a frame split back into its fields.
type DecodedFrame struct {
	Command
	Nonce    byte
	Checksum byte
}

// ParseFrame validates a frame the way the bulb does and splits it into its fields.
func ParseFrame(frame []byte) (DecodedFrame, error) {
	// preamble + opcode + terminator
	if len(frame) < len(Preamble)+2 {
		return DecodedFrame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	if !bytes.Equal(frame[:len(Preamble)], Preamble[:]) {
		return DecodedFrame{}, fmt.Errorf("%w: % X", ErrBadPreamble, frame[:len(Preamble)])
	}
	if frame[len(frame)-1] != Terminator {
		return DecodedFrame{}, fmt.Errorf("%w: 0x%02X", ErrBadTerminator, frame[len(frame)-1])
	}

	body := frame[len(Preamble) : len(frame)-1]
	opcode := body[0]
	want, ok := payloadLengths[opcode]
	if !ok {
		return DecodedFrame{}, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, opcode)
	}

	msg := DecodedFrame{Command: Command{Opcode: opcode, RandomChecksum: HasRandomChecksum(opcode)}}
	if !msg.RandomChecksum {
		if len(body)-1 != want {
			return DecodedFrame{}, fmt.Errorf("%w: opcode 0x%02X expects %d, got %d", ErrPayloadLength, opcode, want, len(body)-1)
		}
		msg.Payload = append([]byte(nil), body[1:]...)
		return msg, nil
	}

	if len(body)-3 != want {
		return DecodedFrame{}, fmt.Errorf("%w: opcode 0x%02X expects %d, got %d", ErrPayloadLength, opcode, want, len(body)-3)
	}
	msg.Payload = append([]byte(nil), body[1:len(body)-2]...)
	msg.Nonce = body[len(body)-2]
	msg.Checksum = body[len(body)-1]
	if sum := Checksum(body[:len(body)-1]); sum != msg.Checksum {
		return DecodedFrame{}, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrBadChecksum, sum, msg.Checksum)
	}
	return msg, nil
}
