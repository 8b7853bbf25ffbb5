package machine

import (
	"testing"
	"time"

	"github.com/kmatsuoka/invaders/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadROMSetsPC(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)

	rom := []uint8{0x3E, 0x2A, 0x76} // MVI A,0x2A; HLT
	require.NoError(t, m.LoadROM(rom, 0x0000, false))
	assert.Equal(t, uint16(0x0000), m.cpu.PC)
}

func TestTickRunsUntilHalt(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)
	rom := []uint8{0x3E, 0x2A, 0x76} // MVI A,0x2A; HLT
	require.NoError(t, m.LoadROM(rom, 0x0000, false))

	m.lastTick = time.Now().Add(-time.Second)
	require.NoError(t, m.Tick())
	assert.True(t, m.Halted())
	assert.Equal(t, uint8(0x2A), m.cpu.A)
}

func TestFramebufferSize(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)
	assert.Len(t, m.Framebuffer(), 7168)
}

func TestKeyPressedReachesInputPort(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)
	m.KeyPressed(io.KeyFire)
	in := m.dev.In(1)
	assert.NotZero(t, in&(1<<4))
	m.KeyReleased(io.KeyFire)
	assert.Zero(t, m.dev.In(1)&(1<<4))
}

func TestDebugFixPatchesHLTAtZero(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)
	rom := []uint8{0x00, 0x00, 0x00}
	require.NoError(t, m.LoadROM(rom, 0x0100, true))
	assert.Equal(t, uint8(0x76), m.mem.Read(0))
}

func TestHalfFrameAlternates(t *testing.T) {
	m, err := Init(&Def{})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), m.halfFrame)
	m.halfFrame = ^m.halfFrame & 3
	assert.Equal(t, uint8(2), m.halfFrame)
	m.halfFrame = ^m.halfFrame & 3
	assert.Equal(t, uint8(1), m.halfFrame)
}
