package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haltcnt/gbaid/irq"
)

type testBus struct{ mem [0x10000]byte }

func (b *testBus) Read16(a uint32) uint16 {
	a &= 0xFFFF
	return uint16(b.mem[a]) | uint16(b.mem[a+1])<<8
}
func (b *testBus) Read32(a uint32) uint32 {
	a &= 0xFFFF
	return uint32(b.mem[a]) | uint32(b.mem[a+1])<<8 | uint32(b.mem[a+2])<<16 | uint32(b.mem[a+3])<<24
}
func (b *testBus) Write16(a uint32, v uint16) {
	a &= 0xFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
}
func (b *testBus) Write32(a uint32, v uint32) {
	a &= 0xFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
	b.mem[a+2] = uint8(v >> 16)
	b.mem[a+3] = uint8(v >> 24)
}

// TestImmediateDMACopy is the literal end-to-end scenario: configuring
// channel 0 for an immediate word copy moves every word and disables
// itself (no repeat).
func TestImmediateDMACopy(t *testing.T) {
	bus := &testBus{}
	bus.Write32(0x100, 0xDEADBEEF)
	bus.Write32(0x104, 0xCAFEF00D)
	e := New(bus, irq.New())

	ch := e.Channels[0]
	ch.Configure(0x100, 0x200, 2, Increment, Increment, false, true, Immediate, true)
	e.RunImmediate()

	assert.EqualValues(t, 0xDEADBEEF, bus.Read32(0x200))
	assert.EqualValues(t, 0xCAFEF00D, bus.Read32(0x204))
	assert.False(t, ch.enabled, "non-repeat channel disables itself after completion")
	assert.True(t, e.IRQ.Pending() == false, "IME is off by default even though the DMA IF bit latched")
	assert.NotZero(t, e.IRQ.IF()&(1<<8), "DMA0 IF bit must be set")
}

func TestVBlankTriggeredRepeat(t *testing.T) {
	bus := &testBus{}
	bus.Write16(0x300, 0xAAAA)
	e := New(bus, irq.New())
	ch := e.Channels[1]
	ch.Configure(0x300, 0x400, 1, Fixed, Increment, true, false, VBlank, false)

	e.Notify(VBlank)
	assert.EqualValues(t, 0xAAAA, bus.Read16(0x400))
	assert.True(t, ch.enabled, "repeat channel stays enabled across VBlank triggers")

	bus.Write16(0x300, 0xBBBB)
	e.Notify(VBlank)
	assert.EqualValues(t, 0xBBBB, bus.Read16(0x400), "destination stays put since dstControl is Fixed")
}
