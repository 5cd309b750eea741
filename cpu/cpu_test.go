package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haltcnt/gbaid/irq"
)

// flatBus is a minimal Bus backed by one flat byte slice, enough to drive
// the CPU decode/execute path in isolation from the memory package.
type flatBus struct {
	mem [1 << 20]byte
}

func (b *flatBus) Read8(a uint32) uint8   { return b.mem[a&0xFFFFF] }
func (b *flatBus) Read16(a uint32) uint16 {
	a &= 0xFFFFF
	return uint16(b.mem[a]) | uint16(b.mem[a+1])<<8
}
func (b *flatBus) Read32(a uint32) uint32 {
	a &= 0xFFFFF
	return uint32(b.mem[a]) | uint32(b.mem[a+1])<<8 | uint32(b.mem[a+2])<<16 | uint32(b.mem[a+3])<<24
}
func (b *flatBus) Write8(a uint32, v uint8) { b.mem[a&0xFFFFF] = v }
func (b *flatBus) Write16(a uint32, v uint16) {
	a &= 0xFFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
}
func (b *flatBus) Write32(a uint32, v uint32) {
	a &= 0xFFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
	b.mem[a+2] = uint8(v >> 16)
	b.mem[a+3] = uint8(v >> 24)
}

func newTestCPU() (*CPU, *flatBus) {
	bus := &flatBus{}
	controller := irq.New()
	c := New(bus, controller)
	c.Regs.SetCPSR(modeBits[ModeSystem]) // user-equivalent, ARM state, no mode banking noise
	return c, bus
}

// TestDataProcessingSUBEQS is the literal end-to-end scenario of a
// conditional, flag-setting SUB: SUBEQS only executes (and only updates
// flags) when Z is already set.
func TestDataProcessingSUBEQS(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.SetR(1, 10)
	c.Regs.SetR(2, 3)

	// SUBEQS R0, R1, R2 = 0000 0000 0101 0001 0000 0000 0000 0010
	instr := uint32(0x0<<28) | (0x2 << 21) | (1 << 20) | (1 << 16) | (0 << 12) | 2
	bus.Write32(0, instr)

	c.Regs.SetFlag(FlagZ, false)
	c.Regs.SetPC(0)
	c.Step()
	require.EqualValues(t, 0, c.Regs.R(0), "EQ condition false: instruction must not execute")

	c.Regs.SetFlag(FlagZ, true)
	c.Regs.SetPC(0)
	c.Step()
	assert.EqualValues(t, 7, c.Regs.R(0))
	assert.False(t, c.Regs.Flag(FlagZ), "7 is non-zero")
	assert.True(t, c.Regs.Flag(FlagC), "10 >= 3: no borrow")
}

func TestConditionEval(t *testing.T) {
	c, _ := newTestCPU()
	c.Regs.SetFlag(FlagZ, true)
	assert.True(t, CondEQ.Eval(c.Regs))
	assert.False(t, CondNE.Eval(c.Regs))

	c.Regs.SetFlag(FlagN, true)
	c.Regs.SetFlag(FlagV, false)
	assert.True(t, CondLT.Eval(c.Regs))
	assert.False(t, CondGE.Eval(c.Regs))
}

func TestShiftLSLZeroIsIdentity(t *testing.T) {
	result, carry := Shift(ShiftLSL, 0xFF, 0, true)
	assert.EqualValues(t, 0xFF, result)
	assert.True(t, carry, "LSL#0 preserves the incoming carry")
}

func TestShiftRORZeroIsRRX(t *testing.T) {
	result, carry := Shift(ShiftROR, 0x1, 0, true)
	assert.EqualValues(t, uint32(1<<31), result)
	assert.True(t, carry, "bit 0 of the rotated value becomes the new carry")
}

func TestRegistersBankOnModeSwitch(t *testing.T) {
	r := NewRegisters()
	r.SetCPSR(modeBits[ModeUser])
	r.SetR(13, 0x1000)

	r.EnterMode(ModeIRQ, 0x08, true)
	r.SetR(13, 0x2000)
	assert.EqualValues(t, ModeIRQ, r.Mode())

	r.SetCPSR(modeBits[ModeUser] | (1 << FlagI))
	assert.EqualValues(t, 0x1000, r.R(13), "User R13 must be unaffected by the IRQ bank's R13")
}

func TestBXSwitchesToThumb(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.SetR(1, 0x00001001) // odd target address selects THUMB
	instr := uint32(0xE<<28) | 0x012FFF11
	bus.Write32(0, instr)
	c.Regs.SetPC(0)
	c.Step()
	assert.EqualValues(t, THUMB, c.Regs.Set())
	assert.EqualValues(t, 0x1000, c.Regs.PC())
}

// TestDataProcessingImmediateUnrotated is the literal end-to-end scenario of
// MOV R0,#1: an 8-bit immediate with a zero rotate field must load exactly
// 1, not the RRX-mangled value a naive Shift(ShiftROR, imm, 0, ...) call
// would produce.
func TestDataProcessingImmediateUnrotated(t *testing.T) {
	c, bus := newTestCPU()
	// MOV R0, #1 = cond=AL, I=1, opcode=MOV(0xD), S=0, Rd=0, rotate=0, imm=1
	instr := uint32(0xE<<28) | (1 << 25) | (0xD << 21) | (0 << 12) | 1
	bus.Write32(0, instr)
	c.Regs.SetFlag(FlagC, true)
	c.Regs.SetPC(0)
	c.Step()
	assert.EqualValues(t, 1, c.Regs.R(0))
	assert.True(t, c.Regs.Flag(FlagC), "rotate==0 must leave the carry flag untouched")
}

// TestMSRImmediateUnrotated covers the same rotate==0 bug for MSR CPSR_c,
// the common boot-sequence mode/IRQ-mask setup.
func TestMSRImmediateUnrotated(t *testing.T) {
	c, bus := newTestCPU()
	// MSR CPSR_c, #0xD3 = cond=AL, I=1, 10=10, fieldMask=0001 (control), Rd=1111, rotate=0, imm=0xD3
	instr := uint32(0xE<<28) | (1 << 25) | (0x32 << 20) | (1 << 16) | (0xF << 12) | 0xD3
	bus.Write32(0, instr)
	c.Regs.SetPC(0)
	c.Step()
	assert.EqualValues(t, 0xD3, c.Regs.CPSR()&0xFF)
}

// TestBranchTargetAccountsForPipelineOffset is the literal end-to-end
// scenario of a forward branch: the ARM7TDMI's 3-stage pipeline means the
// target is relative to the branch instruction's own address plus 8, not
// plus 4.
func TestBranchTargetAccountsForPipelineOffset(t *testing.T) {
	c, bus := newTestCPU()
	// B 0xC at address 0: offset field encodes (target-8)/4 = (12-8)/4 = 1
	instr := uint32(0xE<<28) | (0xA << 24) | 1
	bus.Write32(0, instr)
	c.Regs.SetPC(0)
	c.Step()
	assert.EqualValues(t, 12, c.Regs.PC())
}

func TestIRQRequestDoesNotWakeOnDisabledSource(t *testing.T) {
	controller := irq.New()
	controller.SetIE(0) // nothing enabled
	controller.SetHalt()
	controller.Request(0)
	assert.True(t, controller.Halted(), "an interrupt not enabled in IE must not release halt")
}

func TestIRQRequestWakesOnEnabledSource(t *testing.T) {
	controller := irq.New()
	controller.SetIE(1 << 3)
	controller.SetHalt()
	controller.Request(3)
	assert.False(t, controller.Halted())
}
