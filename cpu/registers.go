// Package cpu implements the ARM7TDMI register file, shifter, condition
// evaluation and the ARM/THUMB decoders+executors (spec.md sections 4.E and
// 4.F). Ground: the teacher's cpu/registers.go Register8/Register16
// get/set/incr pattern is generalized from the Z80's named register pairs
// to the ARM7TDMI's flat, bankable register file.
package cpu

// Mode is one of the seven ARM7TDMI operating modes.
type Mode uint8

const (
	ModeUser Mode = iota
	ModeFIQ
	ModeIRQ
	ModeSupervisor
	ModeAbort
	ModeUndefined
	ModeSystem
)

// modeBits are the CPSR[4:0] encodings for each Mode.
var modeBits = map[Mode]uint32{
	ModeUser:       0b10000,
	ModeFIQ:        0b10001,
	ModeIRQ:        0b10010,
	ModeSupervisor: 0b10011,
	ModeAbort:      0b10111,
	ModeUndefined:  0b11011,
	ModeSystem:     0b11111,
}

var bitsToMode = func() map[uint32]Mode {
	m := make(map[uint32]Mode, len(modeBits))
	for mode, bits := range modeBits {
		m[bits] = mode
	}
	return m
}()

// InstrSet is ARM or THUMB, mirrored from CPSR bit 5 (T).
type InstrSet uint8

const (
	ARM InstrSet = iota
	THUMB
)

// CPSR flag bit positions.
const (
	FlagN uint = 31
	FlagZ uint = 30
	FlagC uint = 29
	FlagV uint = 28
	FlagT uint = 5
	FlagI uint = 7
	FlagF uint = 6
)

// Registers is the 37-word banked register file of spec.md section 3.
type Registers struct {
	r    [16]uint32 // R0-R15 (current bank view)
	cpsr uint32

	fiqR8_12 [5]uint32 // banked R8-R12 for FIQ
	fiqR13   uint32
	fiqR14   uint32
	fiqSPSR  uint32

	svcR13, svcR14, svcSPSR uint32
	abtR13, abtR14, abtSPSR uint32
	irqR13, irqR14, irqSPSR uint32
	undR13, undR14, undSPSR uint32

	userR8_12 [5]uint32 // the non-FIQ banked view of R8-R12
	userR13   uint32    // User/System R13
	userR14   uint32    // User/System R14

	mode Mode
	set  InstrSet

	// PCModified is a sticky flag set whenever software writes PC; Step
	// clears it before each instruction (spec.md section 3).
	PCModified bool
}

// NewRegisters returns a register file reset to Supervisor mode, ARM state,
// IRQ/FIQ disabled — the GBA BIOS's cold-boot CPU state.
func NewRegisters() *Registers {
	r := &Registers{}
	r.cpsr = modeBits[ModeSupervisor] | (1 << FlagI) | (1 << FlagF)
	r.mode = ModeSupervisor
	r.set = ARM
	return r
}

// Mode returns the cached current mode.
func (r *Registers) Mode() Mode { return r.mode }

// Set returns the cached current instruction set.
func (r *Registers) Set() InstrSet { return r.set }

// R reads general register i (0-15) under the current mode's bank.
func (r *Registers) R(i int) uint32 { return r.r[i] }

// SetR writes general register i under the current bank; writing R15 sets
// the PCModified sticky flag.
func (r *Registers) SetR(i int, v uint32) {
	r.r[i] = v
	if i == 15 {
		r.PCModified = true
	}
}

// PC/SetPC are convenience accessors for R15.
func (r *Registers) PC() uint32      { return r.r[15] }
func (r *Registers) SetPC(v uint32)  { r.SetR(15, v) }

// CPSR returns the current program status register.
func (r *Registers) CPSR() uint32 { return r.cpsr }

// SetCPSR writes CPSR and atomically refreshes the cached mode/set, banking
// registers in and out as needed (spec.md section 3 invariant).
func (r *Registers) SetCPSR(v uint32) {
	newMode, ok := bitsToMode[v&0x1F]
	if !ok {
		newMode = r.mode // reserved mode bits: keep banking, still update flags
	}
	if newMode != r.mode {
		r.bankOut(r.mode)
		r.bankIn(newMode)
		r.mode = newMode
	}
	r.cpsr = v
	if v&(1<<FlagT) != 0 {
		r.set = THUMB
	} else {
		r.set = ARM
	}
}

// Flag reads one CPSR condition flag.
func (r *Registers) Flag(bit uint) bool { return (r.cpsr>>bit)&1 == 1 }

// SetFlag writes one CPSR condition flag (N/Z/C/V only; mode bits must go
// through SetCPSR to keep banking consistent).
func (r *Registers) SetFlag(bit uint, v bool) {
	if v {
		r.cpsr |= 1 << bit
	} else {
		r.cpsr &^= 1 << bit
	}
}

// SPSR returns the saved PSR for the current mode (0 in User/System, which
// have none).
func (r *Registers) SPSR() uint32 {
	switch r.mode {
	case ModeFIQ:
		return r.fiqSPSR
	case ModeSupervisor:
		return r.svcSPSR
	case ModeAbort:
		return r.abtSPSR
	case ModeIRQ:
		return r.irqSPSR
	case ModeUndefined:
		return r.undSPSR
	default:
		return 0
	}
}

// SetSPSR writes the saved PSR for the current mode; a no-op in User/System.
func (r *Registers) SetSPSR(v uint32) {
	switch r.mode {
	case ModeFIQ:
		r.fiqSPSR = v
	case ModeSupervisor:
		r.svcSPSR = v
	case ModeAbort:
		r.abtSPSR = v
	case ModeIRQ:
		r.irqSPSR = v
	case ModeUndefined:
		r.undSPSR = v
	}
}

// RestoreSPSRToCPSR implements the common "MOVS PC,LR" / exception-return
// idiom: copies the current mode's SPSR into CPSR, re-banking as needed.
func (r *Registers) RestoreSPSRToCPSR() {
	r.SetCPSR(r.SPSR())
}

// bankOut saves the live r[8..14] into the outgoing mode's bank slots.
func (r *Registers) bankOut(mode Mode) {
	switch mode {
	case ModeFIQ:
		copy(r.fiqR8_12[:], r.r[8:13])
		r.fiqR13 = r.r[13]
		r.fiqR14 = r.r[14]
	case ModeSupervisor:
		r.svcR13, r.svcR14 = r.r[13], r.r[14]
		copy(r.userR8_12[:], r.r[8:13])
	case ModeAbort:
		r.abtR13, r.abtR14 = r.r[13], r.r[14]
		copy(r.userR8_12[:], r.r[8:13])
	case ModeIRQ:
		r.irqR13, r.irqR14 = r.r[13], r.r[14]
		copy(r.userR8_12[:], r.r[8:13])
	case ModeUndefined:
		r.undR13, r.undR14 = r.r[13], r.r[14]
		copy(r.userR8_12[:], r.r[8:13])
	default: // User/System
		copy(r.userR8_12[:], r.r[8:13])
		r.userR13, r.userR14 = r.r[13], r.r[14]
	}
}

// bankIn loads r[8..14] from the incoming mode's bank slots.
func (r *Registers) bankIn(mode Mode) {
	switch mode {
	case ModeFIQ:
		copy(r.r[8:13], r.fiqR8_12[:])
		r.r[13] = r.fiqR13
		r.r[14] = r.fiqR14
	case ModeSupervisor:
		copy(r.r[8:13], r.userR8_12[:])
		r.r[13], r.r[14] = r.svcR13, r.svcR14
	case ModeAbort:
		copy(r.r[8:13], r.userR8_12[:])
		r.r[13], r.r[14] = r.abtR13, r.abtR14
	case ModeIRQ:
		copy(r.r[8:13], r.userR8_12[:])
		r.r[13], r.r[14] = r.irqR13, r.irqR14
	case ModeUndefined:
		copy(r.r[8:13], r.userR8_12[:])
		r.r[13], r.r[14] = r.undR13, r.undR14
	default: // User/System
		copy(r.r[8:13], r.userR8_12[:])
		r.r[13], r.r[14] = r.userR13, r.userR14
	}
}

// EnterMode performs the standard exception-entry sequence: bank-switches to
// newMode, saves the old CPSR into the new mode's SPSR, sets LR to
// returnAddress, switches to ARM state, and forces the I flag.
func (r *Registers) EnterMode(newMode Mode, returnAddress uint32, disableFIQ bool) {
	oldCPSR := r.cpsr
	r.bankOut(r.mode)
	r.bankIn(newMode)
	r.mode = newMode
	r.r[14] = returnAddress
	r.SetSPSR(oldCPSR)

	newCPSR := oldCPSR
	newCPSR = (newCPSR &^ 0x1F) | modeBits[newMode]
	newCPSR &^= 1 << FlagT // always enter in ARM state
	newCPSR |= 1 << FlagI
	if disableFIQ {
		newCPSR |= 1 << FlagF
	}
	r.cpsr = newCPSR
	r.set = ARM
}
