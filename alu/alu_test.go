package alu

import "testing"

func TestAdd(t *testing.T) {
	tests := []struct {
		x, y   uint8
		want   uint8
		wantCY bool
		wantAC bool
	}{
		{0xFF, 0x01, 0x00, true, true},
		{0x0F, 0x01, 0x10, false, true},
		{0x01, 0x01, 0x02, false, false},
		{0x80, 0x80, 0x00, true, false},
	}
	for _, tc := range tests {
		var a ALU
		got := a.Add(tc.x, tc.y)
		if got != tc.want || a.CY != tc.wantCY || a.AC != tc.wantAC {
			t.Errorf("Add(%#x,%#x) = %#x,CY=%t,AC=%t; want %#x,CY=%t,AC=%t", tc.x, tc.y, got, a.CY, a.AC, tc.want, tc.wantCY, tc.wantAC)
		}
	}
}

func TestAddAllPairs(t *testing.T) {
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			var a ALU
			got := a.Add(uint8(x), uint8(y))
			want := uint8((x + y) % 256)
			if got != want {
				t.Fatalf("Add(%#x,%#x) = %#x; want %#x", x, y, got, want)
			}
			wantCY := x+y > 255
			if a.CY != wantCY {
				t.Fatalf("Add(%#x,%#x) CY = %t; want %t", x, y, a.CY, wantCY)
			}
			wantAC := (x&0x0F)+(y&0x0F) > 0x0F
			if a.AC != wantAC {
				t.Fatalf("Add(%#x,%#x) AC = %t; want %t", x, y, a.AC, wantAC)
			}
		}
	}
}

func TestAdd3ADC(t *testing.T) {
	var a ALU
	got := a.Add3(0xFF, 0x00, 1)
	if got != 0x00 || !a.CY || !a.AC {
		t.Errorf("Add3(0xFF,0,1) = %#x CY=%t AC=%t; want 0x00 true true", got, a.CY, a.AC)
	}
}

func TestSub(t *testing.T) {
	tests := []struct {
		x, y   uint8
		want   uint8
		wantCY bool
	}{
		{0x00, 0x01, 0xFF, true},
		{0x10, 0x01, 0x0F, false},
		{0x05, 0x05, 0x00, false},
	}
	for _, tc := range tests {
		var a ALU
		got := a.Sub(tc.x, tc.y)
		if got != tc.want || a.CY != tc.wantCY {
			t.Errorf("Sub(%#x,%#x) = %#x,CY=%t; want %#x,CY=%t", tc.x, tc.y, got, a.CY, tc.want, tc.wantCY)
		}
	}
}

func TestAddxSubx(t *testing.T) {
	var a ALU
	got := a.Addx(0xFFFF, 0x0001)
	if got != 0x0000 || !a.CY {
		t.Errorf("Addx(0xFFFF,1) = %#x CY=%t; want 0x0000 true", got, a.CY)
	}
	got = a.Subx(0x0000, 0x0001)
	if got != 0xFFFF || !a.CY {
		t.Errorf("Subx(0,1) = %#x CY=%t; want 0xFFFF true", got, a.CY)
	}
	a2 := ALU{}
	got = a2.Addx(0x1234, 0x0001)
	if got != 0x1235 || a2.CY {
		t.Errorf("Addx(0x1234,1) = %#x CY=%t; want 0x1235 false", got, a2.CY)
	}
}
