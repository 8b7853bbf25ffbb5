package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
)

// flatMemory implements memory.Bank directly over a 64 KiB array, used so
// tests can preload arbitrary instruction streams without going through the
// memory package's RAM type.
type flatMemory struct {
	addr [65536]uint8
}

func (r *flatMemory) Read(addr uint16) uint8       { return r.addr[addr] }
func (r *flatMemory) Write(addr uint16, val uint8) { r.addr[addr] = val }
func (r *flatMemory) PowerOn()                     {}

func (r *flatMemory) load(at uint16, bytes ...uint8) {
	for i, b := range bytes {
		r.addr[int(at)+i] = b
	}
}

// nopDevice answers every IN with 0 and ignores every OUT.
type nopDevice struct{}

func (nopDevice) In(uint8) uint8   { return 0 }
func (nopDevice) Out(uint8, uint8) {}

func newChip(t *testing.T, mem *flatMemory) *Chip {
	t.Helper()
	c, err := Init(&ChipDef{Mem: mem, Device: nopDevice{}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

func TestScenario1MVIA(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x3E, 0x2A)
	c := newChip(t, mem)
	c.PC = 0x100

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.A != 0x2A || c.PC != 0x102 || cycles != 7 {
		t.Errorf("A=%#02x PC=%#04x cycles=%d; want A=0x2a PC=0x102 cycles=7", c.A, c.PC, cycles)
	}
}

func TestScenario2ADIOverflow(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x3E, 0xFF, 0xC6, 0x01)
	c := newChip(t, mem)
	c.PC = 0x100

	for i := 0; i < 2; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if c.A != 0x00 || !c.F.Z || !c.F.CY || !c.F.AC || c.F.S || !c.F.P {
		t.Errorf("got A=%#02x Z=%t CY=%t AC=%t S=%t P=%t; want 0x00 true true true false true",
			c.A, c.F.Z, c.F.CY, c.F.AC, c.F.S, c.F.P)
	}
}

func TestScenario3ADIHalfCarryNoOverflow(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x3E, 0x0F, 0xC6, 0x01)
	c := newChip(t, mem)
	c.PC = 0x100

	for i := 0; i < 2; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if c.A != 0x10 || !c.F.AC || c.F.CY || c.F.Z {
		t.Errorf("got A=%#02x AC=%t CY=%t Z=%t; want 0x10 true false false", c.A, c.F.AC, c.F.CY, c.F.Z)
	}
}

func TestScenario4RRCRLC(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x0F) // RRC
	c := newChip(t, mem)
	c.PC = 0x100
	c.A = 0x01
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.A != 0x80 || !c.F.CY {
		t.Errorf("RRC: A=%#02x CY=%t; want 0x80 true", c.A, c.F.CY)
	}

	mem.load(0x102, 0x07) // RLC
	c.PC = 0x102
	c.A = 0x80
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.A != 0x01 || !c.F.CY {
		t.Errorf("RLC: A=%#02x CY=%t; want 0x01 true", c.A, c.F.CY)
	}
}

func TestScenario5PushPop(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100,
		0x31, 0x00, 0x24, // LXI SP,0x2400
		0x01, 0x34, 0x12, // LXI B,0x1234
		0xC5,             // PUSH B
		0xD1,             // POP D
	)
	c := newChip(t, mem)
	c.PC = 0x100
	for i := 0; i < 4; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if c.D != 0x12 || c.E != 0x34 || c.SP != 0x2400 {
		t.Errorf("D=%#02x E=%#02x SP=%#04x; want 0x12 0x34 0x2400", c.D, c.E, c.SP)
	}
}

func TestScenario6Interrupt(t *testing.T) {
	mem := &flatMemory{}
	c := newChip(t, mem)
	c.PC = 0x1000
	c.SP = 0x2400
	c.IntEnable = true

	half := uint8(1)
	c.Interrupt(half)
	if c.PC != 8 {
		t.Fatalf("PC after Interrupt(1) = %#04x; want 0x0008", c.PC)
	}
	if c.IntEnable {
		t.Error("IntEnable should be cleared after interrupt entry")
	}
	ret := c.popAddr()
	if ret != 0x1000 {
		t.Errorf("pushed return address = %#04x; want 0x1000", ret)
	}

	half = ^half & 3
	if half != 2 {
		t.Fatalf("half-frame toggle = %d; want 2", half)
	}
}

func TestCallThenRet(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100,
		0xCD, 0x00, 0x02, // CALL 0x0200
	)
	mem.load(0x200, 0xC9) // RET
	c := newChip(t, mem)
	c.PC = 0x100
	c.SP = 0x2400

	if _, err := c.Step(); err != nil {
		t.Fatalf("CALL: %v", err)
	}
	if c.PC != 0x200 {
		t.Fatalf("PC after CALL = %#04x; want 0x0200", c.PC)
	}
	if _, err := c.Step(); err != nil {
		t.Fatalf("RET: %v", err)
	}
	if c.PC != 0x103 || c.SP != 0x2400 {
		t.Errorf("PC=%#04x SP=%#04x; want 0x0103 0x2400", c.PC, c.SP)
	}
}

func TestDIThenEI(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0xF3) // DI
	c := newChip(t, mem)
	c.PC = 0x100
	c.IntEnable = true
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	before := c.PC
	c.Interrupt(1)
	if c.PC != before {
		t.Errorf("interrupt after DI changed PC to %#04x; want unchanged %#04x", c.PC, before)
	}

	mem.load(c.PC, 0xFB) // EI
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	c.SP = 0x2400
	c.Interrupt(1)
	if c.PC != 8 {
		t.Errorf("interrupt after EI did not fire: PC=%#04x; want 0x0008", c.PC)
	}
}

func TestHaltReturnsHaltOpcode(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x76)
	c := newChip(t, mem)
	c.PC = 0x100
	cycles, err := c.Step()
	if cycles != 0 {
		t.Errorf("cycles = %d; want 0", cycles)
	}
	if _, ok := err.(HaltOpcode); !ok {
		t.Errorf("err = %v (%T); want HaltOpcode", err, err)
	}
}

func TestCALLIsNotUnknownOpcode(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0xCD) // CALL
	c := newChip(t, mem)
	c.PC = 0x100
	// Every byte 0x00-0xFF has a dispatch arm (the duplicate-encoded bytes
	// are aliases), so there is no unassigned byte to feed Step here; this
	// checks that CALL decodes and executes without an error.
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step(0xCD): %v", err)
	}
}

func TestAllOpcodesDecode(t *testing.T) {
	for op := 0; op < 256; op++ {
		mem := &flatMemory{}
		mem.load(0x100, uint8(op), 0x00, 0x00)
		c := newChip(t, mem)
		c.PC = 0x100
		c.SP = 0x2400
		_, err := c.Step()
		if op == 0x76 {
			if _, ok := err.(HaltOpcode); !ok {
				t.Errorf("opcode 0x76: err = %v; want HaltOpcode", err)
			}
			continue
		}
		if _, ok := err.(UnknownOpcode); ok {
			t.Errorf("opcode %#02x: got UnknownOpcode, want a decoded instruction", op)
		}
	}
}

func TestPCAdvancesByInstructionLength(t *testing.T) {
	tests := []struct {
		name string
		op   []uint8
		want uint16
	}{
		{"NOP", []uint8{0x00}, 0x101},
		{"MVI B,d8", []uint8{0x06, 0x42}, 0x102},
		{"LXI B,d16", []uint8{0x01, 0x34, 0x12}, 0x103},
		{"unconditional JMP", []uint8{0xC3, 0x00, 0x02}, 0x0200},
	}
	for _, tc := range tests {
		mem := &flatMemory{}
		mem.load(0x100, tc.op...)
		c := newChip(t, mem)
		c.PC = 0x100
		if _, err := c.Step(); err != nil {
			t.Fatalf("%s: Step: %v", tc.name, err)
		}
		if c.PC != tc.want {
			t.Errorf("%s: PC = %#04x; want %#04x", tc.name, c.PC, tc.want)
		}
	}
}

func TestDebugDump(t *testing.T) {
	mem := &flatMemory{}
	c, err := Init(&ChipDef{Mem: mem, Device: nopDevice{}, Debug: true})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.A = 0xAB
	if got := c.Debug(); got == "" {
		t.Error("Debug() with Debug enabled returned empty string")
	}
	t.Log(spew.Sdump(c))
}

// TestAgainstGoldenTrace steps a short hand-assembled program and checks the
// PC, accumulator, packed flags and cycle count after every instruction
// against a trace computed by hand, the step-accurate verification
// SPEC_FULL.md calls for without needing a real ROM fixture.
func TestAgainstGoldenTrace(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x0000,
		0x3E, 0x05, // MVI A,5
		0x06, 0x03, // MVI B,3
		0x80,       // ADD B
		0x3D,       // DCR A
		0xC6, 0x10, // ADI 0x10
		0x76, // HLT
	)
	c := newChip(t, mem)
	c.SP = 0x2400

	type snapshot struct {
		pc     uint16
		a      uint8
		flags  uint8
		cycles int
	}
	want := []snapshot{
		{pc: 0x0002, a: 0x05, flags: 0x02, cycles: 7}, // MVI A,5
		{pc: 0x0004, a: 0x05, flags: 0x02, cycles: 7}, // MVI B,3
		{pc: 0x0005, a: 0x08, flags: 0x02, cycles: 4}, // ADD B
		{pc: 0x0006, a: 0x07, flags: 0x02, cycles: 5}, // DCR A
		{pc: 0x0008, a: 0x17, flags: 0x06, cycles: 7}, // ADI 0x10
	}

	for i, w := range want {
		cycles, err := c.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got := snapshot{pc: c.PC, a: c.A, flags: c.F.Pack(), cycles: cycles}
		if got != w {
			t.Errorf("step %d: got %+v; want %+v", i, got, w)
		}
	}

	cycles, err := c.Step()
	if cycles != 0 {
		t.Errorf("HLT cycles = %d; want 0", cycles)
	}
	if _, ok := err.(HaltOpcode); !ok {
		t.Errorf("HLT err = %v (%T); want HaltOpcode", err, err)
	}
}

func TestStateDiffAfterMOV(t *testing.T) {
	mem := &flatMemory{}
	mem.load(0x100, 0x47) // MOV B,A
	c := newChip(t, mem)
	c.PC = 0x100
	c.A = 0x99
	want := *c
	want.B = 0x99
	want.PC = 0x101

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if diff := deep.Equal(*c, want); diff != nil {
		t.Errorf("unexpected state diff: %v", diff)
	}
}
