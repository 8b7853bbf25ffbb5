// Package device implements the Space Invaders shift register and input
// port, the one arcade-specific peripheral the CPU core must model because
// it's addressed directly through OUT/IN.
package device

import (
	"fmt"

	"github.com/kmatsuoka/invaders/io"
)

// Port bit positions within the input latch (§4.5 key mapping).
const (
	bitCoin  = 1 << 0
	bitStart = 1 << 2
	bitFire  = 1 << 4
	bitLeft  = 1 << 5
	bitRight = 1 << 6
)

// Chip implements the shift register (OUT 2/4, IN 3) and the input/coin
// port (IN 0/1/2, OUT 3/5 as audio triggers). It satisfies io.Device.
type Chip struct {
	shift0 uint8
	shift1 uint8
	offset uint8

	input uint8

	audio     io.AudioSink
	prevPort3 uint8
	prevPort5 uint8
	debug     bool
}

// ChipDef collects the Chip's collaborators.
type ChipDef struct {
	// Audio receives port 3/5 bit-trigger notifications. May be nil.
	Audio io.AudioSink
	// Debug if true enables Debug() output.
	Debug bool
}

// Init returns a freshly powered-on Chip.
func Init(d *ChipDef) *Chip {
	c := &Chip{
		audio: d.Audio,
		debug: d.Debug,
	}
	c.PowerOn()
	return c
}

// PowerOn resets the chip to its power-on state: shift registers clear, and
// the input latch's bit 2 (coin-not-inserted default) is set.
func (c *Chip) PowerOn() {
	c.shift0 = 0
	c.shift1 = 0
	c.offset = 0
	c.input = bitStart
	c.prevPort3 = 0
	c.prevPort5 = 0
}

// In implements io.Device.
func (c *Chip) In(port uint8) uint8 {
	switch port {
	case 0:
		return 0x0F
	case 1:
		return c.input
	case 2:
		return 0
	case 3:
		shifted := uint16(c.shift1)<<8 | uint16(c.shift0)
		return uint8(shifted >> (8 - c.offset))
	default:
		return 0
	}
}

// Out implements io.Device.
func (c *Chip) Out(port uint8, val uint8) {
	switch port {
	case 2:
		c.offset = val & 0x07
	case 3:
		c.fireAudio(3, val, &c.prevPort3)
	case 4:
		c.shift0 = c.shift1
		c.shift1 = val
	case 5:
		c.fireAudio(5, val, &c.prevPort5)
	}
}

// fireAudio diffs val against the previous byte written to the same port and
// notifies the sink for every bit that changed state. port distinguishes the
// two sound-trigger ports: its bits occupy sound IDs 0-7, port 5's occupy
// 8-15, so the nine fixed sounds never collide across ports.
func (c *Chip) fireAudio(port uint8, val uint8, prev *uint8) {
	if c.audio == nil {
		*prev = val
		return
	}
	base := uint8(0)
	if port == 5 {
		base = 8
	}
	changed := val ^ *prev
	for bit := uint8(0); bit < 8; bit++ {
		mask := uint8(1) << bit
		if changed&mask != 0 {
			c.audio.Trigger(base+bit, val&mask != 0)
		}
	}
	*prev = val
}

// KeyPressed sets the input latch bit for key.
func (c *Chip) KeyPressed(key io.Key) {
	c.setBit(key, true)
}

// KeyReleased clears the input latch bit for key.
func (c *Chip) KeyReleased(key io.Key) {
	c.setBit(key, false)
}

func (c *Chip) setBit(key io.Key, pressed bool) {
	var mask uint8
	switch key {
	case io.KeyCoin:
		mask = bitCoin
	case io.KeyStart:
		mask = bitStart
	case io.KeyFire:
		mask = bitFire
	case io.KeyLeft:
		mask = bitLeft
	case io.KeyRight:
		mask = bitRight
	default:
		return
	}
	if pressed {
		c.input |= mask
	} else {
		c.input &^= mask
	}
}

// Debug returns a one-line dump of the shift/input state when debug is
// enabled, else the empty string.
func (c *Chip) Debug() string {
	if !c.debug {
		return ""
	}
	return fmt.Sprintf("shift0: %.2X shift1: %.2X offset: %.1X input: %.2X", c.shift0, c.shift1, c.offset, c.input)
}
