// Package flags implements the 8080 condition codes (PSW) and the derivation
// rules the CPU applies to them after an arithmetic or logic operation. It
// owns bit packing into/out of the single PSW status byte; the actual
// add/subtract math lives in package alu.
package flags

import "github.com/kmatsuoka/invaders/alu"

// PSW masks within the packed status byte. Bit1/3/5 are unused and fixed at
// 1/0/0 respectively.
const (
	maskCY = 1 << 0
	maskP  = 1 << 2
	maskAC = 1 << 4
	maskZ  = 1 << 6
	maskS  = 1 << 7

	fixedBits = 1 << 1 // always set on pack, ignored on unpack
)

// PSW holds the five condition flags the 8080 exposes through PUSH PSW/POP PSW.
type PSW struct {
	Z  bool
	S  bool
	P  bool
	CY bool
	AC bool
}

// Parity reports whether v has an even number of set bits, the convention the
// 8080 uses for its P flag.
func Parity(v uint8) bool {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n%2 == 0
}

// Pack returns the PSW status byte: S Z 0 AC 0 P 1 CY from bit 7 down to 0.
func (f *PSW) Pack() uint8 {
	var b uint8 = fixedBits
	if f.CY {
		b |= maskCY
	}
	if f.P {
		b |= maskP
	}
	if f.AC {
		b |= maskAC
	}
	if f.Z {
		b |= maskZ
	}
	if f.S {
		b |= maskS
	}
	return b
}

// Unpack loads the flags from a status byte as popped off the stack. The
// reserved bits are ignored.
func (f *PSW) Unpack(b uint8) {
	f.CY = b&maskCY != 0
	f.P = b&maskP != 0
	f.AC = b&maskAC != 0
	f.Z = b&maskZ != 0
	f.S = b&maskS != 0
}

// SetZSP derives Z, S and P from a result byte and copies AC from a, leaving
// CY untouched. Used by INR/DCR, which affect AC but never CY.
func (f *PSW) SetZSP(res uint8, a *alu.ALU) {
	f.Z = res == 0
	f.S = res&0x80 != 0
	f.P = Parity(res)
	f.AC = a.AC
}

// SetLogic derives Z/S/P from res and forces CY/AC false, the convention for
// ANA/ORA/XRA/ANI/ORI/XRI.
func (f *PSW) SetLogic(res uint8) {
	f.Z = res == 0
	f.S = res&0x80 != 0
	f.P = Parity(res)
	f.CY = false
	f.AC = false
}

// SetArith derives all five flags from an ALU result: Z/S/P and AC from res
// via SetZSP, CY copied from the ALU that just produced it. Used by
// ADD/ADC/SUB/SBB/CMP and the immediate/memory variants.
func (f *PSW) SetArith(res uint8, a *alu.ALU) {
	f.SetZSP(res, a)
	f.CY = a.CY
}
