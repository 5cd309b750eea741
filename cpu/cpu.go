package cpu

import "github.com/haltcnt/gbaid/irq"

// Bus is the minimal memory interface the CPU needs; memory.Bus satisfies
// it. Kept narrow so cpu never imports memory, matching the teacher's
// practice of passing small interfaces into the CPU rather than the whole
// MMU type.
type Bus interface {
	Read8(address uint32) uint8
	Read16(address uint32) uint16
	Read32(address uint32) uint32
	Write8(address uint32, value uint8)
	Write16(address uint32, value uint16)
	Write32(address uint32, value uint32)
}

// CPU is the ARM7TDMI core: register file, bus, interrupt controller and the
// two-stage-equivalent prefetch latch used for BIOS open-bus reads
// (spec.md section 4.D/4.E).
type CPU struct {
	Regs *Registers
	Bus  Bus
	IRQ  *irq.Controller

	// prefetch is the last fetched opcode word, used as the open-bus value
	// when something reads unmapped memory or the BIOS outside of PC.
	prefetch uint32

	// Cycles is a cycle counter field for callers; Step does not update it.
	Cycles uint64
}

// New constructs a CPU wired to bus and an interrupt controller, reset to the
// BIOS entry vector.
func New(bus Bus, controller *irq.Controller) *CPU {
	c := &CPU{
		Regs: NewRegisters(),
		Bus:  bus,
		IRQ:  controller,
	}
	c.Regs.SetPC(0x00000000)
	return c
}

// Prefetch returns the last fetched instruction word (for open-bus reads).
func (c *CPU) Prefetch() uint32 { return c.prefetch }

// pcRelative returns the program counter value an executing instruction
// must use for PC-relative addressing (branch targets, PC-relative loads,
// ADD Rd,PC,#imm, and any data-processing/transfer operand that names R15):
// the ARM7TDMI's 3-stage pipeline means PC reads as the current
// instruction's own address plus 8 (ARM) or plus 4 (Thumb), one whole
// instruction further ahead than the next-fetch address the step loop has
// already latched into R15 (spec.md section 4.E/F).
func (c *CPU) pcRelative() uint32 {
	if c.Regs.Set() == THUMB {
		return c.Regs.PC() + 2
	}
	return c.Regs.PC() + 4
}

// Step fetches, decodes and executes exactly one instruction (or services a
// pending exception), returning the number of cycles spent. DMA/halt gating
// is the scheduler's responsibility (spec.md section 5): Step assumes the
// caller already checked IRQ.Halted().
func (c *CPU) Step() int {
	if c.IRQ.Pending() {
		c.enterIRQ()
		return 3
	}

	switch c.Regs.Set() {
	case THUMB:
		return c.stepThumb()
	default:
		return c.stepARM()
	}
}

func (c *CPU) stepARM() int {
	pc := c.Regs.PC()
	instr := c.Bus.Read32(pc)
	c.prefetch = instr
	c.Regs.SetR(15, pc+4)
	c.Regs.PCModified = false

	cond := Condition((instr >> 28) & 0xF)
	if cond.Eval(c.Regs) {
		handler := armTable[armKey(instr)]
		if handler != nil {
			handler(c, instr)
		} else {
			c.undefinedInstruction()
		}
	}

	return 2 // flat per-instruction cost
}

func (c *CPU) stepThumb() int {
	pc := c.Regs.PC()
	instr := uint16(c.Bus.Read16(pc))
	c.prefetch = uint32(instr) | uint32(instr)<<16
	c.Regs.SetR(15, pc+2)
	c.Regs.PCModified = false

	handler := thumbTable[thumbKey(instr)]
	if handler != nil {
		handler(c, instr)
	} else {
		c.undefinedInstruction()
	}
	return 2 // flat per-instruction cost
}

// undefinedInstruction enters Undefined mode per the ARM7TDMI exception
// model; the GBA BIOS rarely relies on this, but it keeps the core total
// rather than panicking on a decode miss.
func (c *CPU) undefinedInstruction() {
	returnAddr := c.Regs.PC() - 4
	if c.Regs.Set() == THUMB {
		returnAddr = c.Regs.PC() - 2
	}
	c.Regs.EnterMode(ModeUndefined, returnAddr, false)
	c.Regs.SetPC(0x00000004)
}

// enterIRQ performs the IRQ exception-entry sequence of spec.md section
// 4.G: LR_irq = PC+4, where PC is the address of the next instruction to
// execute (Step services the IRQ before fetching it), PC = 0x18.
func (c *CPU) enterIRQ() {
	c.Regs.EnterMode(ModeIRQ, c.Regs.PC()+4, true)
	c.Regs.SetPC(0x00000018)
}

// SoftwareInterrupt performs the SWI exception-entry sequence: Supervisor
// mode, LR_svc = address of the instruction after the SWI, PC = 0x08.
func (c *CPU) SoftwareInterrupt(returnAddress uint32) {
	c.Regs.EnterMode(ModeSupervisor, returnAddress, false)
	c.Regs.SetPC(0x00000008)
}
