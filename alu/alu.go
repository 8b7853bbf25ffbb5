// Package alu implements the primitive 8- and 16-bit add/subtract operations
// of the 8080's arithmetic/logic unit. Each operation returns its wrapped
// result together with the carry and auxiliary-carry side effects the
// instruction set depends on; it never touches sign, zero or parity (that's
// flags.PSW's job).
package alu

// ALU holds the transient CY/AC outputs of the most recent 8-bit operation.
// 16-bit operations (Addx/Subx) only define CY.
type ALU struct {
	CY bool
	AC bool
}

// Add computes (x+y) mod 256, setting CY on unsigned overflow and AC on a
// nibble carry out of bit 3.
func (a *ALU) Add(x, y uint8) uint8 {
	res := int(x) + int(y)
	a.checkAC(int(x&0x0F) + int(y&0x0F))
	a.checkCY(res)
	return uint8(res)
}

// Add3 computes (x+y+z) mod 256. Used for ADC/ACI (z is the incoming carry).
func (a *ALU) Add3(x, y, z uint8) uint8 {
	res := int(x) + int(y) + int(z)
	a.checkAC(int(x&0x0F) + int(y&0x0F) + int(z&0x0F))
	a.checkCY(res)
	return uint8(res)
}

// Addx computes a 16-bit (x+y) with CY set on overflow past 0xFFFF. AC is
// undefined for 16-bit arithmetic and left untouched.
func (a *ALU) Addx(x, y uint16) uint16 {
	res := int(x) + int(y)
	a.checkCY16(res)
	return uint16(res)
}

// Sub computes (x-y) mod 256. CY is the borrow-out. AC follows the 8080's
// "low nibble subtraction did not borrow" convention: it is true when
// (x&0xF)-(y&0xF) is itself > 0xF after wrapping into a negative int, i.e.
// the same "> 0xF" test used for addition, applied to the (possibly
// negative) nibble difference. This matches original_source/src/alu.rs and
// is required for CP/M-style diagnostics that probe half-borrow behavior.
func (a *ALU) Sub(x, y uint8) uint8 {
	res := int(x) - int(y)
	a.checkAC(int(x&0x0F) - int(y&0x0F))
	a.checkCY(res)
	return uint8(res)
}

// Sub3 computes (x-y-z) mod 256; CY/AC follow the same convention as Sub.
func (a *ALU) Sub3(x, y, z uint8) uint8 {
	res := int(x) - int(y) - int(z)
	a.checkAC(int(x&0x0F) - int(y&0x0F) - int(z&0x0F))
	a.checkCY(res)
	return uint8(res)
}

// Subx computes a 16-bit (x-y) with CY set as borrow-out. AC is undefined.
func (a *ALU) Subx(x, y uint16) uint16 {
	res := int(x) - int(y)
	a.checkCY16(res)
	return uint16(res)
}

func (a *ALU) checkCY(res int) {
	a.CY = res < 0 || res > 0xFF
}

func (a *ALU) checkCY16(res int) {
	a.CY = res < 0 || res > 0xFFFF
}

func (a *ALU) checkAC(nibble int) {
	a.AC = nibble > 0xF
}
