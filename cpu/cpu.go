// Package cpu implements the Intel 8080 instruction set: architectural
// state, the dense opcode dispatch, interrupt entry, and the CP/M-style
// diagnostic hook used to run classic 8080 exerciser ROMs.
package cpu

import (
	"fmt"
	"io"

	"github.com/kmatsuoka/invaders/alu"
	"github.com/kmatsuoka/invaders/flags"
	"github.com/kmatsuoka/invaders/memory"

	ioport "github.com/kmatsuoka/invaders/io"
)

// Chip holds the complete architectural state of one 8080: the seven 8-bit
// registers, stack pointer, program counter, condition codes and the
// interrupt-enable latch.
type Chip struct {
	A, B, C, D, E, H, L uint8
	SP, PC              uint16
	F                   flags.PSW
	IntEnable           bool

	alu alu.ALU
	mem memory.Bank
	dev ioport.Device

	debug bool
	diag  bool
	bdos  io.Writer
}

// InvalidState represents a precondition violation the CPU cannot recover
// from on its own, e.g. a missing required collaborator at construction.
type InvalidState struct {
	Reason string
}

func (e InvalidState) Error() string {
	return fmt.Sprintf("invalid cpu state: %s", e.Reason)
}

// HaltOpcode is returned by Step when HLT (0x76) executes. Callers treat it
// as terminal; Step itself does not refuse later calls, which resume at the
// byte after the HLT.
type HaltOpcode struct {
	Opcode uint8
}

func (e HaltOpcode) Error() string {
	return fmt.Sprintf("HLT(0x%.2X) executed", e.Opcode)
}

// UnknownOpcode is returned by Step when the dispatch has no arm for the
// fetched byte. Treated identically to HaltOpcode by callers: terminal.
type UnknownOpcode struct {
	Opcode uint8
	PC     uint16
}

func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("opcode 0x%.2X at 0x%.4X not implemented", e.Opcode, e.PC)
}

// ChipDef collects the CPU's required and optional collaborators.
type ChipDef struct {
	// Mem is the address space the CPU fetches and stores through.
	Mem memory.Bank
	// Device is the shift-register/input-port peripheral reached via OUT/IN.
	Device ioport.Device
	// Debug enables Debug() output.
	Debug bool
	// Diag enables the CALL 5 CP/M BDOS hook used by 8080 exerciser ROMs.
	// When enabled, BDOSConsole (if non-nil) receives function 2 and 9
	// output instead of the call being executed as a real CALL.
	Diag bool
	// BDOSConsole receives diagnostic console output when Diag is set.
	BDOSConsole io.Writer
}

// Init returns a freshly powered-on Chip wired to the given collaborators.
func Init(d *ChipDef) (*Chip, error) {
	if d.Mem == nil {
		return nil, InvalidState{"ChipDef.Mem must be non-nil"}
	}
	c := &Chip{
		mem:   d.Mem,
		dev:   d.Device,
		debug: d.Debug,
		diag:  d.Diag,
		bdos:  d.BDOSConsole,
	}
	c.PowerOn()
	return c, nil
}

// PowerOn resets all registers, flags and the interrupt latch. It does not
// touch memory; callers load a ROM and set PC afterward.
func (c *Chip) PowerOn() {
	c.A, c.B, c.C, c.D, c.E, c.H, c.L = 0, 0, 0, 0, 0, 0, 0
	c.SP, c.PC = 0, 0
	c.F = flags.PSW{}
	c.IntEnable = false
}

// BC returns the 16-bit B:C pair.
func (c *Chip) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }

// SetBC loads B:C from a 16-bit value.
func (c *Chip) SetBC(v uint16) { c.B, c.C = uint8(v>>8), uint8(v) }

// DE returns the 16-bit D:E pair.
func (c *Chip) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }

// SetDE loads D:E from a 16-bit value.
func (c *Chip) SetDE(v uint16) { c.D, c.E = uint8(v>>8), uint8(v) }

// HL returns the 16-bit H:L pair.
func (c *Chip) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

// SetHL loads H:L from a 16-bit value.
func (c *Chip) SetHL(v uint16) { c.H, c.L = uint8(v>>8), uint8(v) }

func (c *Chip) fromHL() uint8  { return c.mem.Read(c.HL()) }
func (c *Chip) toHL(val uint8) { c.mem.Write(c.HL(), val) }

// push stores hi at SP-1 and lo at SP-2, then decrements SP by 2.
func (c *Chip) push(hi, lo uint8) {
	c.mem.Write(c.SP-1, hi)
	c.mem.Write(c.SP-2, lo)
	c.SP -= 2
}

// popAddr pops a 16-bit little-endian address off the stack.
func (c *Chip) popAddr() uint16 {
	lo := c.mem.Read(c.SP)
	hi := c.mem.Read(c.SP + 1)
	c.SP += 2
	return uint16(hi)<<8 | uint16(lo)
}

// ret pops the return address directly into PC.
func (c *Chip) ret() {
	c.PC = c.popAddr()
}

// call pushes the current PC (unmodified) and jumps to addr. Used by RST n,
// where PC is already exactly the one-byte instruction's return address.
func (c *Chip) call(addr uint16) {
	c.push(uint8(c.PC>>8), uint8(c.PC))
	c.PC = addr
}

// callx pushes PC+2 (skipping the two address bytes CALL/Cxx read) and jumps
// to addr.
func (c *Chip) callx(addr uint16) {
	ret := c.PC + 2
	c.push(uint8(ret>>8), uint8(ret))
	c.PC = addr
}

// Interrupt performs the equivalent of RST n if interrupts are enabled;
// otherwise the request is dropped silently, per the 8080's behavior.
func (c *Chip) Interrupt(n uint8) {
	if !c.IntEnable {
		return
	}
	c.call(8 * uint16(n))
	c.IntEnable = false
}

// Step fetches, decodes and executes exactly one instruction, returning its
// base cycle cost. HLT and unknown opcodes return a cycle count of 0 along
// with a terminal error; the caller is expected to treat both as halt.
func (c *Chip) Step() (int, error) {
	opcode := c.mem.Read(c.PC)
	arg1 := c.mem.Read(c.PC + 1)
	arg2 := c.mem.Read(c.PC + 2)
	args := uint16(arg2)<<8 | uint16(arg1)

	c.PC++
	var inc uint16

	switch opcode {
	case 0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38: // NOP
	case 0x01: // LXI B,d16
		c.C, c.B = arg1, arg2
		inc = 2
	case 0x02: // STAX B
		c.mem.Write(c.BC(), c.A)
	case 0x03: // INX B
		c.SetBC(c.BC() + 1)
	case 0x04: // INR B
		c.B = c.alu.Add(c.B, 1)
		c.F.SetZSP(c.B, &c.alu)
	case 0x05: // DCR B
		c.B = c.alu.Sub(c.B, 1)
		c.F.SetZSP(c.B, &c.alu)
	case 0x06: // MVI B,d8
		c.B = arg1
		inc = 1
	case 0x07: // RLC
		bit7 := c.A >> 7
		c.A = c.A<<1 | bit7
		c.F.CY = bit7 != 0
	case 0x09: // DAD B
		c.SetHL(c.alu.Addx(c.HL(), c.BC()))
		c.F.CY = c.alu.CY
	case 0x0A: // LDAX B
		c.A = c.mem.Read(c.BC())
	case 0x0B: // DCX B
		c.SetBC(c.BC() - 1)
	case 0x0C: // INR C
		c.C = c.alu.Add(c.C, 1)
		c.F.SetZSP(c.C, &c.alu)
	case 0x0D: // DCR C
		c.C = c.alu.Sub(c.C, 1)
		c.F.SetZSP(c.C, &c.alu)
	case 0x0E: // MVI C,d8
		c.C = arg1
		inc = 1
	case 0x0F: // RRC
		bit0 := c.A & 1
		c.A = c.A>>1 | bit0<<7
		c.F.CY = bit0 != 0
	case 0x11: // LXI D,d16
		c.E, c.D = arg1, arg2
		inc = 2
	case 0x12: // STAX D
		c.mem.Write(c.DE(), c.A)
	case 0x13: // INX D
		c.SetDE(c.DE() + 1)
	case 0x14: // INR D
		c.D = c.alu.Add(c.D, 1)
		c.F.SetZSP(c.D, &c.alu)
	case 0x15: // DCR D
		c.D = c.alu.Sub(c.D, 1)
		c.F.SetZSP(c.D, &c.alu)
	case 0x16: // MVI D,d8
		c.D = arg1
		inc = 1
	case 0x17: // RAL
		old := c.A
		cy := uint8(0)
		if c.F.CY {
			cy = 1
		}
		c.A = cy | old<<1
		c.F.CY = old&0x80 != 0
	case 0x19: // DAD D
		c.SetHL(c.alu.Addx(c.HL(), c.DE()))
		c.F.CY = c.alu.CY
	case 0x1A: // LDAX D
		c.A = c.mem.Read(c.DE())
	case 0x1B: // DCX D
		c.SetDE(c.DE() - 1)
	case 0x1C: // INR E
		c.E = c.alu.Add(c.E, 1)
		c.F.SetZSP(c.E, &c.alu)
	case 0x1D: // DCR E
		c.E = c.alu.Sub(c.E, 1)
		c.F.SetZSP(c.E, &c.alu)
	case 0x1E: // MVI E,d8
		c.E = arg1
		inc = 1
	case 0x1F: // RAR
		old := c.A
		cy := uint8(0)
		if c.F.CY {
			cy = 1
		}
		c.A = cy<<7 | old>>1
		c.F.CY = old&1 != 0
	case 0x21: // LXI H,d16
		c.L, c.H = arg1, arg2
		inc = 2
	case 0x22: // SHLD addr
		c.mem.Write(args, c.L)
		c.mem.Write(args+1, c.H)
		inc = 2
	case 0x23: // INX H
		c.SetHL(c.HL() + 1)
	case 0x24: // INR H
		c.H = c.alu.Add(c.H, 1)
		c.F.SetZSP(c.H, &c.alu)
	case 0x25: // DCR H
		c.H = c.alu.Sub(c.H, 1)
		c.F.SetZSP(c.H, &c.alu)
	case 0x26: // MVI H,d8
		c.H = arg1
		inc = 1
	case 0x27: // DAA
		if c.A&0x0F > 9 || c.F.AC {
			c.A = c.alu.Add(c.A, 6)
		}
		c.F.AC = c.alu.AC
		if c.A&0xF0 > 0x90 || c.F.CY {
			c.A = c.alu.Add(c.A, 0x60)
		}
		c.F.SetArith(c.A, &c.alu)
	case 0x29: // DAD H
		c.SetHL(c.alu.Addx(c.HL(), c.HL()))
		c.F.CY = c.alu.CY
	case 0x2A: // LHLD addr
		c.L = c.mem.Read(args)
		c.H = c.mem.Read(args + 1)
		inc = 2
	case 0x2B: // DCX H
		c.SetHL(c.HL() - 1)
	case 0x2C: // INR L
		c.L = c.alu.Add(c.L, 1)
		c.F.SetZSP(c.L, &c.alu)
	case 0x2D: // DCR L
		c.L = c.alu.Sub(c.L, 1)
		c.F.SetZSP(c.L, &c.alu)
	case 0x2E: // MVI L,d8
		c.L = arg1
		inc = 1
	case 0x2F: // CMA
		c.A = ^c.A
	case 0x31: // LXI SP,d16
		c.SP = args
		inc = 2
	case 0x32: // STA addr
		c.mem.Write(args, c.A)
		inc = 2
	case 0x33: // INX SP
		c.SP++
	case 0x34: // INR M
		v := c.alu.Add(c.fromHL(), 1)
		c.F.SetZSP(v, &c.alu)
		c.toHL(v)
	case 0x35: // DCR M
		v := c.alu.Sub(c.fromHL(), 1)
		c.F.SetZSP(v, &c.alu)
		c.toHL(v)
	case 0x36: // MVI M,d8
		c.toHL(arg1)
		inc = 1
	case 0x37: // STC
		c.F.CY = true
	case 0x39: // DAD SP
		c.SetHL(c.alu.Addx(c.HL(), c.SP))
		c.F.CY = c.alu.CY
	case 0x3A: // LDA addr
		c.A = c.mem.Read(args)
		inc = 2
	case 0x3B: // DCX SP
		c.SP--
	case 0x3C: // INR A
		c.A = c.alu.Add(c.A, 1)
		c.F.SetZSP(c.A, &c.alu)
	case 0x3D: // DCR A
		c.A = c.alu.Sub(c.A, 1)
		c.F.SetZSP(c.A, &c.alu)
	case 0x3E: // MVI A,d8
		c.A = arg1
		inc = 1
	case 0x3F: // CMC
		c.F.CY = !c.F.CY

	// MOV r1,r2 (0x40-0x7F, excluding 0x76 HLT)
	case 0x40:
	case 0x41:
		c.B = c.C
	case 0x42:
		c.B = c.D
	case 0x43:
		c.B = c.E
	case 0x44:
		c.B = c.H
	case 0x45:
		c.B = c.L
	case 0x46:
		c.B = c.fromHL()
	case 0x47:
		c.B = c.A
	case 0x48:
		c.C = c.B
	case 0x49:
	case 0x4A:
		c.C = c.D
	case 0x4B:
		c.C = c.E
	case 0x4C:
		c.C = c.H
	case 0x4D:
		c.C = c.L
	case 0x4E:
		c.C = c.fromHL()
	case 0x4F:
		c.C = c.A
	case 0x50:
		c.D = c.B
	case 0x51:
		c.D = c.C
	case 0x52:
	case 0x53:
		c.D = c.E
	case 0x54:
		c.D = c.H
	case 0x55:
		c.D = c.L
	case 0x56:
		c.D = c.fromHL()
	case 0x57:
		c.D = c.A
	case 0x58:
		c.E = c.B
	case 0x59:
		c.E = c.C
	case 0x5A:
		c.E = c.D
	case 0x5B:
	case 0x5C:
		c.E = c.H
	case 0x5D:
		c.E = c.L
	case 0x5E:
		c.E = c.fromHL()
	case 0x5F:
		c.E = c.A
	case 0x60:
		c.H = c.B
	case 0x61:
		c.H = c.C
	case 0x62:
		c.H = c.D
	case 0x63:
		c.H = c.E
	case 0x64:
	case 0x65:
		c.H = c.L
	case 0x66:
		c.H = c.fromHL()
	case 0x67:
		c.H = c.A
	case 0x68:
		c.L = c.B
	case 0x69:
		c.L = c.C
	case 0x6A:
		c.L = c.D
	case 0x6B:
		c.L = c.E
	case 0x6C:
		c.L = c.H
	case 0x6D:
	case 0x6E:
		c.L = c.fromHL()
	case 0x6F:
		c.L = c.A
	case 0x70:
		c.toHL(c.B)
	case 0x71:
		c.toHL(c.C)
	case 0x72:
		c.toHL(c.D)
	case 0x73:
		c.toHL(c.E)
	case 0x74:
		c.toHL(c.H)
	case 0x75:
		c.toHL(c.L)
	case 0x76: // HLT
		return 0, HaltOpcode{opcode}
	case 0x77:
		c.toHL(c.A)
	case 0x78:
		c.A = c.B
	case 0x79:
		c.A = c.C
	case 0x7A:
		c.A = c.D
	case 0x7B:
		c.A = c.E
	case 0x7C:
		c.A = c.H
	case 0x7D:
		c.A = c.L
	case 0x7E:
		c.A = c.fromHL()
	case 0x7F:

	// ADD/ADC/SUB/SBB r (0x80-0x9F)
	case 0x80:
		c.A = c.alu.Add(c.A, c.B)
		c.F.SetArith(c.A, &c.alu)
	case 0x81:
		c.A = c.alu.Add(c.A, c.C)
		c.F.SetArith(c.A, &c.alu)
	case 0x82:
		c.A = c.alu.Add(c.A, c.D)
		c.F.SetArith(c.A, &c.alu)
	case 0x83:
		c.A = c.alu.Add(c.A, c.E)
		c.F.SetArith(c.A, &c.alu)
	case 0x84:
		c.A = c.alu.Add(c.A, c.H)
		c.F.SetArith(c.A, &c.alu)
	case 0x85:
		c.A = c.alu.Add(c.A, c.L)
		c.F.SetArith(c.A, &c.alu)
	case 0x86:
		c.A = c.alu.Add(c.A, c.fromHL())
		c.F.SetArith(c.A, &c.alu)
	case 0x87:
		c.A = c.alu.Add(c.A, c.A)
		c.F.SetArith(c.A, &c.alu)
	case 0x88:
		c.A = c.addc(c.B)
	case 0x89:
		c.A = c.addc(c.C)
	case 0x8A:
		c.A = c.addc(c.D)
	case 0x8B:
		c.A = c.addc(c.E)
	case 0x8C:
		c.A = c.addc(c.H)
	case 0x8D:
		c.A = c.addc(c.L)
	case 0x8E:
		c.A = c.addc(c.fromHL())
	case 0x8F:
		c.A = c.addc(c.A)
	case 0x90:
		c.A = c.alu.Sub(c.A, c.B)
		c.F.SetArith(c.A, &c.alu)
	case 0x91:
		c.A = c.alu.Sub(c.A, c.C)
		c.F.SetArith(c.A, &c.alu)
	case 0x92:
		c.A = c.alu.Sub(c.A, c.D)
		c.F.SetArith(c.A, &c.alu)
	case 0x93:
		c.A = c.alu.Sub(c.A, c.E)
		c.F.SetArith(c.A, &c.alu)
	case 0x94:
		c.A = c.alu.Sub(c.A, c.H)
		c.F.SetArith(c.A, &c.alu)
	case 0x95:
		c.A = c.alu.Sub(c.A, c.L)
		c.F.SetArith(c.A, &c.alu)
	case 0x96:
		c.A = c.alu.Sub(c.A, c.fromHL())
		c.F.SetArith(c.A, &c.alu)
	case 0x97:
		c.A = c.alu.Sub(c.A, c.A)
		c.F.SetArith(c.A, &c.alu)
	case 0x98:
		c.A = c.subb(c.B)
	case 0x99:
		c.A = c.subb(c.C)
	case 0x9A:
		c.A = c.subb(c.D)
	case 0x9B:
		c.A = c.subb(c.E)
	case 0x9C:
		c.A = c.subb(c.H)
	case 0x9D:
		c.A = c.subb(c.L)
	case 0x9E:
		c.A = c.subb(c.fromHL())
	case 0x9F:
		c.A = c.subb(c.A)

	// ANA/XRA/ORA r (0xA0-0xB7)
	case 0xA0:
		c.A &= c.B
		c.F.SetLogic(c.A)
	case 0xA1:
		c.A &= c.C
		c.F.SetLogic(c.A)
	case 0xA2:
		c.A &= c.D
		c.F.SetLogic(c.A)
	case 0xA3:
		c.A &= c.E
		c.F.SetLogic(c.A)
	case 0xA4:
		c.A &= c.H
		c.F.SetLogic(c.A)
	case 0xA5:
		c.A &= c.L
		c.F.SetLogic(c.A)
	case 0xA6:
		c.A &= c.fromHL()
		c.F.SetLogic(c.A)
	case 0xA7:
		c.A &= c.A
		c.F.SetLogic(c.A)
	case 0xA8:
		c.A ^= c.B
		c.F.SetLogic(c.A)
	case 0xA9:
		c.A ^= c.C
		c.F.SetLogic(c.A)
	case 0xAA:
		c.A ^= c.D
		c.F.SetLogic(c.A)
	case 0xAB:
		c.A ^= c.E
		c.F.SetLogic(c.A)
	case 0xAC:
		c.A ^= c.H
		c.F.SetLogic(c.A)
	case 0xAD:
		c.A ^= c.L
		c.F.SetLogic(c.A)
	case 0xAE:
		c.A ^= c.fromHL()
		c.F.SetLogic(c.A)
	case 0xAF:
		c.A ^= c.A
		c.F.SetLogic(c.A)
	case 0xB0:
		c.A |= c.B
		c.F.SetLogic(c.A)
	case 0xB1:
		c.A |= c.C
		c.F.SetLogic(c.A)
	case 0xB2:
		c.A |= c.D
		c.F.SetLogic(c.A)
	case 0xB3:
		c.A |= c.E
		c.F.SetLogic(c.A)
	case 0xB4:
		c.A |= c.H
		c.F.SetLogic(c.A)
	case 0xB5:
		c.A |= c.L
		c.F.SetLogic(c.A)
	case 0xB6:
		c.A |= c.fromHL()
		c.F.SetLogic(c.A)
	case 0xB7:
		c.A |= c.A
		c.F.SetLogic(c.A)

	// CMP r (0xB8-0xBF)
	case 0xB8:
		c.F.SetArith(c.alu.Sub(c.A, c.B), &c.alu)
	case 0xB9:
		c.F.SetArith(c.alu.Sub(c.A, c.C), &c.alu)
	case 0xBA:
		c.F.SetArith(c.alu.Sub(c.A, c.D), &c.alu)
	case 0xBB:
		c.F.SetArith(c.alu.Sub(c.A, c.E), &c.alu)
	case 0xBC:
		c.F.SetArith(c.alu.Sub(c.A, c.H), &c.alu)
	case 0xBD:
		c.F.SetArith(c.alu.Sub(c.A, c.L), &c.alu)
	case 0xBE:
		c.F.SetArith(c.alu.Sub(c.A, c.fromHL()), &c.alu)
	case 0xBF:
		c.F.SetArith(c.alu.Sub(c.A, c.A), &c.alu)

	case 0xC0: // RNZ
		if !c.F.Z {
			c.ret()
		}
	case 0xC1: // POP B
		c.SetBC(c.popAddr())
	case 0xC2: // JNZ addr
		if !c.F.Z {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xC3, 0xCB: // JMP addr (0xCB is the duplicate-encoded alias)
		c.PC = args
	case 0xC4: // CNZ addr
		if !c.F.Z {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xC5: // PUSH B
		c.push(c.B, c.C)
	case 0xC6: // ADI d8
		c.A = c.alu.Add(c.A, arg1)
		c.F.SetArith(c.A, &c.alu)
		inc = 1
	case 0xC7: // RST 0
		c.call(0x00)
	case 0xC8: // RZ
		if c.F.Z {
			c.ret()
		}
	case 0xC9, 0xD9: // RET (0xD9 is the duplicate-encoded alias)
		c.ret()
	case 0xCA: // JZ addr
		if c.F.Z {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xCC: // CZ addr
		if c.F.Z {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xCD, 0xDD, 0xED, 0xFD: // CALL addr (DD/ED/FD are duplicate-encoded aliases)
		if c.diag && opcode == 0xCD && args == 5 && c.bdosHook() {
			inc = 2
			break
		}
		c.callx(args)
	case 0xCE: // ACI d8
		c.A = c.addc(arg1)
		inc = 1
	case 0xCF: // RST 1
		c.call(0x08)
	case 0xD0: // RNC
		if !c.F.CY {
			c.ret()
		}
	case 0xD1: // POP D
		c.SetDE(c.popAddr())
	case 0xD2: // JNC addr
		if !c.F.CY {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xD3: // OUT d8
		c.dev.Out(arg1, c.A)
		inc = 1
	case 0xD4: // CNC addr
		if !c.F.CY {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xD5: // PUSH D
		c.push(c.D, c.E)
	case 0xD6: // SUI d8
		c.A = c.alu.Sub(c.A, arg1)
		c.F.SetArith(c.A, &c.alu)
		inc = 1
	case 0xD7: // RST 2
		c.call(0x10)
	case 0xD8: // RC
		if c.F.CY {
			c.ret()
		}
	case 0xDA: // JC addr
		if c.F.CY {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xDB: // IN d8
		c.A = c.dev.In(arg1)
		inc = 1
	case 0xDC: // CC addr
		if c.F.CY {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xDE: // SBI d8
		c.A = c.subb(arg1)
		inc = 1
	case 0xDF: // RST 3
		c.call(0x18)
	case 0xE0: // RPO
		if !c.F.P {
			c.ret()
		}
	case 0xE1: // POP H
		c.SetHL(c.popAddr())
	case 0xE2: // JPO addr
		if !c.F.P {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xE3: // XTHL
		lo := c.mem.Read(c.SP)
		hi := c.mem.Read(c.SP + 1)
		c.mem.Write(c.SP, c.L)
		c.mem.Write(c.SP+1, c.H)
		c.L, c.H = lo, hi
	case 0xE4: // CPO addr
		if !c.F.P {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xE5: // PUSH H
		c.push(c.H, c.L)
	case 0xE6: // ANI d8
		c.A &= arg1
		c.F.SetLogic(c.A)
		inc = 1
	case 0xE7: // RST 4
		c.call(0x20)
	case 0xE8: // RPE
		if c.F.P {
			c.ret()
		}
	case 0xE9: // PCHL
		c.PC = c.HL()
	case 0xEA: // JPE addr
		if c.F.P {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xEB: // XCHG
		c.D, c.H = c.H, c.D
		c.E, c.L = c.L, c.E
	case 0xEC: // CPE addr
		if c.F.P {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xEE: // XRI d8
		c.A ^= arg1
		c.F.SetLogic(c.A)
		inc = 1
	case 0xEF: // RST 5
		c.call(0x28)
	case 0xF0: // RP
		if !c.F.S {
			c.ret()
		}
	case 0xF1: // POP PSW
		lo := c.mem.Read(c.SP)
		hi := c.mem.Read(c.SP + 1)
		c.F.Unpack(lo)
		c.A = hi
		c.SP += 2
	case 0xF2: // JP addr
		if !c.F.S {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xF3: // DI
		c.IntEnable = false
	case 0xF4: // CP addr
		if !c.F.S {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xF5: // PUSH PSW
		c.push(c.A, c.F.Pack())
	case 0xF6: // ORI d8
		c.A |= arg1
		c.F.SetLogic(c.A)
		inc = 1
	case 0xF7: // RST 6
		c.call(0x30)
	case 0xF8: // RM
		if c.F.S {
			c.ret()
		}
	case 0xF9: // SPHL
		c.SP = c.HL()
	case 0xFA: // JM addr
		if c.F.S {
			c.PC = args
		} else {
			inc = 2
		}
	case 0xFB: // EI
		c.IntEnable = true
	case 0xFC: // CM addr
		if c.F.S {
			c.callx(args)
		} else {
			inc = 2
		}
	case 0xFE: // CPI d8
		c.F.SetArith(c.alu.Sub(c.A, arg1), &c.alu)
		inc = 1
	case 0xFF: // RST 7
		c.call(0x38)

	default:
		return 0, UnknownOpcode{Opcode: opcode, PC: c.PC - 1}
	}

	c.PC += inc
	return int(cycles8080[opcode]), nil
}

// addc is ADC: A + r + CY.
func (c *Chip) addc(r uint8) uint8 {
	cy := uint8(0)
	if c.F.CY {
		cy = 1
	}
	res := c.alu.Add3(c.A, r, cy)
	c.F.SetArith(res, &c.alu)
	return res
}

// subb is SBB: A - r - CY.
func (c *Chip) subb(r uint8) uint8 {
	cy := uint8(0)
	if c.F.CY {
		cy = 1
	}
	res := c.alu.Sub3(c.A, r, cy)
	c.F.SetArith(res, &c.alu)
	return res
}

// bdosHook intercepts the CP/M BDOS console calls (C==9 print $-terminated
// string at DE, C==2 print HL as hex) used by 8080 exerciser ROMs. Returns
// false (and does nothing) when no console is wired, in which case the
// caller falls through to a real CALL.
func (c *Chip) bdosHook() bool {
	if c.bdos == nil {
		return false
	}
	switch c.C {
	case 9:
		addr := c.DE()
		for {
			ch := c.mem.Read(addr)
			if ch == '$' {
				break
			}
			fmt.Fprintf(c.bdos, "%c", ch)
			addr++
		}
	case 2:
		fmt.Fprintf(c.bdos, "%04X", c.HL())
	}
	return true
}

// Debug returns a one-line register/flag dump when debug is enabled, else
// the empty string.
func (c *Chip) Debug() string {
	if !c.debug {
		return ""
	}
	flagsStr := func(b bool, ch byte) byte {
		if b {
			return ch
		}
		return '.'
	}
	return fmt.Sprintf("%.2X%.2X %.2X%.2X %.2X%.2X %.2X%.2X %.4X %.4X\t%c%c%c%c%c",
		c.A, c.F.Pack(), c.B, c.C, c.D, c.E, c.H, c.L, c.PC, c.SP,
		flagsStr(c.F.Z, 'z'), flagsStr(c.F.S, 's'), flagsStr(c.F.P, 'p'),
		flagsStr(c.F.CY, 'c'), flagsStr(c.F.AC, 'a'))
}

// cycles8080 is the canonical base-cycle cost of every opcode, indexed by
// opcode byte.
var cycles8080 = [256]uint8{
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4,
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4,
	4, 10, 16, 5, 5, 5, 7, 4, 4, 10, 16, 5, 5, 5, 7, 4,
	4, 10, 13, 5, 10, 10, 10, 4, 4, 10, 13, 5, 5, 5, 7, 4,

	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5,
	7, 7, 7, 7, 7, 7, 7, 7, 5, 5, 5, 5, 5, 5, 7, 5,

	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4,

	11, 10, 10, 10, 17, 11, 7, 11, 11, 10, 10, 10, 10, 17, 7, 11,
	11, 10, 10, 10, 17, 11, 7, 11, 11, 10, 10, 10, 10, 17, 7, 11,
	11, 10, 10, 18, 17, 11, 7, 11, 11, 5, 10, 5, 17, 17, 7, 11,
	11, 10, 10, 4, 17, 11, 7, 11, 11, 5, 10, 4, 17, 17, 7, 11,
}
