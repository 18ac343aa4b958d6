package comms

import "math/rand/v2"

// Constants for the command frame.
const (
	// ChecksumOffset is added to the byte sum before truncating to 8 bits.
	ChecksumOffset = 28
	// Terminator is the last byte of every frame.
	Terminator byte = 0x0d
)

// Preamble is the fixed header of every frame.
var Preamble = [6]byte{0xaa, 0x0a, 0xfc, 0x3a, 0x86, 0x01}

// Accepted argument ranges.
const (
	MinLevel  = 0
	MaxLevel  = 9
	MinPreset = 1
	MaxPreset = 10
)

// RandomSource draws the nonce byte. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultRandom draws from the process-wide math/rand/v2 generator.
var DefaultRandom RandomSource = globalSource{}

// Command is an opcode and its payload, before framing.
type Command struct {
	Opcode  byte
	Payload []byte
	// RandomChecksum appends a random nonce byte followed by a checksum.
	RandomChecksum bool
}

// Frame encodes the command, drawing the nonce from src when one is needed.
func (c Command) Frame(src RandomSource) []byte {
	return Encode(c.Opcode, c.Payload, c.RandomChecksum, src)
}

// Encode creates an encoded frame for the bulb:
// preamble, opcode, payload, [nonce, checksum], terminator.
func Encode(opcode byte, payload []byte, withRandomChecksum bool, src RandomSource) []byte {
	if !withRandomChecksum {
		return encode(opcode, payload, nil)
	}
	if src == nil {
		src = DefaultRandom
	}
	nonce := byte(src.IntN(256))
	return encode(opcode, payload, &nonce)
}

// EncodeWithNonce is Encode with a caller-chosen nonce byte.
func EncodeWithNonce(opcode byte, payload []byte, nonce byte) []byte {
	return encode(opcode, payload, &nonce)
}

func encode(opcode byte, payload []byte, nonce *byte) []byte {
	size := len(Preamble) + 1 + len(payload) + 1
	if nonce != nil {
		size += 2
	}

	message := make([]byte, 0, size)
	message = append(message, Preamble[:]...)

	body := len(message)
	message = append(message, opcode)
	message = append(message, payload...)

	if nonce != nil {
		message = append(message, *nonce)
		message = append(message, Checksum(message[body:]))
	}

	return append(message, Terminator)
}

// Checksum computes (28 + sum of data) mod 256.
func Checksum(data []byte) byte {
	sum := byte(ChecksumOffset)
	for _, b := range data {
		sum += b
	}
	return sum
}

// BuildPowerOnCommand creates the command to switch the light on.
func BuildPowerOnCommand() Command {
	return Command{Opcode: OpPower, Payload: []byte{0x01, 0x01, 0x00, 0x28}}
}

// BuildPowerOffCommand creates the command to switch the light off.
func BuildPowerOffCommand() Command {
	return Command{Opcode: OpPower, Payload: []byte{0x01, 0x00, 0x01, 0x28}}
}

// BuildWhiteResetCommand creates the command to switch to white mode.
func BuildWhiteResetCommand() Command {
	return Command{
		Opcode:         OpColour,
		Payload:        []byte{0x06, 0x02, 0x80, 0x80, 0x80, 0x80, 0x80},
		RandomChecksum: true,
	}
}

// BuildBrightnessCommand creates the command to set brightness. Level is not range checked.
func BuildBrightnessCommand(level int) Command {
	return Command{Opcode: OpBrightness, Payload: []byte{0x01, byte(level + 2)}, RandomChecksum: true}
}

// BuildColourTemperatureCommand creates the command to set the colour temperature.
// Level is not range checked.
func BuildColourTemperatureCommand(level int) Command {
	return Command{Opcode: OpColourTemperature, Payload: []byte{0x01, byte(level + 2)}, RandomChecksum: true}
}

// BuildColourCommand creates the command to set an RGB colour. Each channel is masked to 8 bits.
func BuildColourCommand(red, green, blue int) Command {
	return Command{
		Opcode:         OpColour,
		Payload:        []byte{0x06, 0x01, byte(red & 0xff), byte(green & 0xff), byte(blue & 0xff), 0x80, 0x80},
		RandomChecksum: true,
	}
}

// BuildPresetCommand creates the command to select a preset. Number is not range checked.
func BuildPresetCommand(number int) Command {
	return Command{Opcode: OpPreset, Payload: []byte{0x01, byte(number)}, RandomChecksum: true}
}

// BuildNightModeCommand creates the command to start the 20 minute night mode.
func BuildNightModeCommand() Command {
	return Command{Opcode: OpNightMode, Payload: []byte{0x02, 0x03, 0x01}, RandomChecksum: true}
}

// RandomColour draws a colour from src.
func RandomColour(src RandomSource) (red, green, blue int) {
	if src == nil {
		src = DefaultRandom
	}
	return src.IntN(256), src.IntN(256), src.IntN(256)
}
