// Package machine ties the CPU, memory and shift/input device together and
// drives the real-time pacing loop that interleaves instruction execution
// with the two half-frame interrupts Space Invaders needs to draw a frame.
package machine

import (
	"errors"
	"fmt"
	stdio "io"
	"log"
	"time"

	"github.com/kmatsuoka/invaders/cpu"
	"github.com/kmatsuoka/invaders/device"
	"github.com/kmatsuoka/invaders/io"
	"github.com/kmatsuoka/invaders/memory"
)

const (
	// cpuHz is the 8080's clock rate on the Space Invaders board.
	cpuHz = 2_000_000
	// screenHz is the arcade's refresh rate; two interrupts fire per frame.
	screenHz = 60
	// interruptCycles is the cycle budget of one half-frame.
	interruptCycles = cpuHz / screenHz / 2

	cycleDuration = time.Second / cpuHz
)

// Machine is not safe for concurrent use: the host must serialize Tick,
// KeyPressed/KeyReleased and Framebuffer calls with respect to one another,
// the same single-calling-convention contract the teacher's VCS documents
// for its own Tick.
type Machine struct {
	cpu *cpu.Chip
	mem *memory.RAM
	dev *device.Chip

	halted            bool
	halfFrame         uint8
	cyclesToInterrupt int
	lastTick          time.Time

	debug bool
}

// Def collects a Machine's optional collaborators and debug toggles.
type Def struct {
	// Audio receives shift-device sound triggers. May be nil.
	Audio io.AudioSink
	// Debug enables Debug() logging on every component each Tick.
	Debug bool
	// Diag enables the CP/M BDOS diagnostic hook in the CPU (for running
	// 8080 exerciser ROMs rather than Space Invaders itself).
	Diag bool
	// BDOSConsole receives diagnostic console output when Diag is set.
	BDOSConsole stdio.Writer
}

// Init returns a fully wired, powered-on Machine. LoadROM must be called
// before the first Tick to install a program and set PC.
func Init(def *Def) (*Machine, error) {
	mem := memory.NewRAM()
	dev := device.Init(&device.ChipDef{Audio: def.Audio, Debug: def.Debug})
	c, err := cpu.Init(&cpu.ChipDef{
		Mem:         mem,
		Device:      dev,
		Debug:       def.Debug,
		Diag:        def.Diag,
		BDOSConsole: def.BDOSConsole,
	})
	if err != nil {
		return nil, fmt.Errorf("can't initialize cpu: %v", err)
	}
	m := &Machine{
		cpu:               c,
		mem:               mem,
		dev:               dev,
		halfFrame:         1,
		cyclesToInterrupt: interruptCycles,
		debug:             def.Debug,
	}
	return m, nil
}

// LoadROM copies rom into memory starting at offset and sets PC to offset.
// If fixHalt is true, opcode 0x76 (HLT) is additionally patched in at
// address 0 so diagnostic ROMs assembled to run above address 0 can't cause
// a spurious reboot by falling off the end of memory back to 0.
func (m *Machine) LoadROM(rom []uint8, offset uint16, fixHalt bool) error {
	if err := m.mem.LoadROM(rom, offset); err != nil {
		return err
	}
	if fixHalt {
		m.mem.Write(0, 0x76)
	}
	m.cpu.PC = offset
	m.lastTick = time.Now()
	return nil
}

// Framebuffer returns a read-only view of the 7,168-byte video region, valid
// only until the next Tick.
func (m *Machine) Framebuffer() []uint8 {
	return m.mem.Video()
}

// KeyPressed forwards a control press to the input port.
func (m *Machine) KeyPressed(key io.Key) {
	m.dev.KeyPressed(key)
}

// KeyReleased forwards a control release to the input port.
func (m *Machine) KeyReleased(key io.Key) {
	m.dev.KeyReleased(key)
}

// errHalted is returned by Tick once the CPU has halted; the host should
// stop calling Tick (or discard the Machine) on seeing it.
var errHalted = errors.New("machine: cpu halted")

// Tick measures elapsed real time since the last call, converts it to a
// cycle budget at 2 MHz, and executes instructions until the budget is
// exhausted or the CPU halts. Interrupts are requested at half-frame
// boundaries, alternating between half-frame 1 and 2.
func (m *Machine) Tick() error {
	if m.halted {
		return errHalted
	}
	now := time.Now()
	budget := int(now.Sub(m.lastTick) / cycleDuration)

	for !m.halted && budget > 0 {
		cycles, err := m.cpu.Step()
		if m.debug {
			if d := m.cpu.Debug(); d != "" {
				log.Printf("CPU: %s", d)
			}
			if d := m.dev.Debug(); d != "" {
				log.Printf("DEV: %s", d)
			}
		}
		if err != nil || cycles == 0 {
			m.halted = true
			if err != nil {
				log.Printf("machine: halting: %v", err)
			}
			break
		}
		budget -= cycles
		m.cyclesToInterrupt -= cycles
	}

	if m.cyclesToInterrupt <= 0 {
		m.cpu.Interrupt(m.halfFrame)
		m.halfFrame = ^m.halfFrame & 3
		m.cyclesToInterrupt += interruptCycles
	}

	m.lastTick = now
	return nil
}

// Halted reports whether the CPU has executed HLT or an unknown opcode.
func (m *Machine) Halted() bool {
	return m.halted
}
