// Package io defines the interfaces the machine uses to talk to the outside
// world: the OUT/IN device contract, the audio-trigger sink, and the keyboard
// events the host forwards into the input port.
package io

// Device is an 8-bit I/O port the CPU reaches through OUT/IN. The shift
// device and input port in package device both implement it.
type Device interface {
	// In returns the current value of the given port.
	In(port uint8) uint8
	// Out writes val to the given port.
	Out(port uint8, val uint8)
}

// AudioSink receives the fixed arcade sound triggers forwarded from OUT
// writes to ports 3 and 5. sound identifies the bit that changed: bits 0-7
// of port 3 are sounds 0-7 and bits 0-7 of port 5 are sounds 8-15; on
// reports whether that bit just went high (true) or low (false).
type AudioSink interface {
	Trigger(sound uint8, on bool)
}

// Key identifies one of the five controls the input port tracks.
type Key int

const (
	KeyCoin Key = iota
	KeyStart
	KeyFire
	KeyLeft
	KeyRight
)
