package cpu

// thumb.go: THUMB-state instruction handlers, one per format of the 19 the
// ARM7TDMI documents. The dispatch table only narrows down to a format (the
// minimal set of fixed bits that distinguish it); each handler decodes its
// own sub-fields, the same two-level approach Gopher2600's thumb.go uses
// (check a fixed high-bit prefix, then switch on the remaining bits).

func thumbPatterns() []thumbPattern {
	return []thumbPattern{
		{mask: 0x3E0, value: 0x000, name: "LSL#", exec: thumbMoveShifted},
		{mask: 0x3E0, value: 0x020, name: "LSR#", exec: thumbMoveShifted},
		{mask: 0x3E0, value: 0x040, name: "ASR#", exec: thumbMoveShifted},
		{mask: 0x3E0, value: 0x060, name: "ADD/SUB", exec: thumbAddSubtract},
		{mask: 0x380, value: 0x080, name: "MOV/CMP/ADD/SUB#8", exec: thumbImmediate},
		{mask: 0x3F0, value: 0x100, name: "ALU", exec: thumbALU},
		{mask: 0x3F0, value: 0x110, name: "HiReg/BX", exec: thumbHiRegister},
		{mask: 0x3E0, value: 0x120, name: "PC-rel LDR", exec: thumbPCRelativeLoad},
		{mask: 0x3C8, value: 0x140, name: "LDR/STR reg", exec: thumbLoadStoreRegisterOffset},
		{mask: 0x3C8, value: 0x148, name: "LDR/STR sign-extended", exec: thumbLoadStoreSignExtended},
		{mask: 0x380, value: 0x180, name: "LDR/STR imm", exec: thumbLoadStoreImmediate},
		{mask: 0x3C0, value: 0x200, name: "LDRH/STRH", exec: thumbLoadStoreHalfword},
		{mask: 0x3C0, value: 0x240, name: "SP-rel LDR/STR", exec: thumbSPRelative},
		{mask: 0x3C0, value: 0x280, name: "LoadAddress", exec: thumbLoadAddress},
		{mask: 0x3FC, value: 0x2C0, name: "AddOffsetToSP", exec: thumbAddOffsetToSP},
		{mask: 0x3D8, value: 0x2D0, name: "Push/Pop", exec: thumbPushPop},
		{mask: 0x3C0, value: 0x300, name: "LDM/STM", exec: thumbMultipleLoadStore},
		{mask: 0x3FC, value: 0x37C, name: "SWI", exec: thumbSWI},
		{mask: 0x3C0, value: 0x340, name: "CondBranch", exec: thumbConditionalBranch},
		{mask: 0x3E0, value: 0x380, name: "Branch", exec: thumbBranch},
		{mask: 0x3C0, value: 0x3C0, name: "LongBranchLink", exec: thumbLongBranchLink},
	}
}

func thumbSetNZ(c *CPU, v uint32) {
	c.Regs.SetFlag(FlagN, v&(1<<31) != 0)
	c.Regs.SetFlag(FlagZ, v == 0)
}

// Format 1: move shifted register (LSL/LSR/ASR by immediate).
func thumbMoveShifted(c *CPU, instr uint16) {
	op := (instr >> 11) & 0x3
	offset := uint((instr >> 6) & 0x1F)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	var kind ShiftType
	switch op {
	case 0:
		kind = ShiftLSL
	case 1:
		kind = ShiftLSR
	default:
		kind = ShiftASR
	}
	// THUMB immediate shifts of 0 on LSR/ASR mean "shift by 32", matching the
	// ARM-state immediate-form semantics already implemented in Shift.
	amount := offset
	if offset == 0 && op != 0 {
		amount = 32
	}
	result, carry := Shift(kind, c.Regs.R(rs), amount, c.Regs.Flag(FlagC))
	c.Regs.SetR(rd, result)
	thumbSetNZ(c, result)
	c.Regs.SetFlag(FlagC, carry)
}

// Format 2: add/subtract register or 3-bit immediate.
func thumbAddSubtract(c *CPU, instr uint16) {
	useImmediate := instr&(1<<10) != 0
	subtract := instr&(1<<9) != 0
	rnOrImm := uint32((instr >> 6) & 0x7)
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	var operand uint32
	if useImmediate {
		operand = rnOrImm
	} else {
		operand = c.Regs.R(int(rnOrImm))
	}

	var result uint32
	var carry, overflow bool
	if subtract {
		result, carry, overflow = subWithFlags(c.Regs.R(rs), operand)
	} else {
		result, carry, overflow = addWithFlags(c.Regs.R(rs), operand)
	}
	c.Regs.SetR(rd, result)
	thumbSetNZ(c, result)
	c.Regs.SetFlag(FlagC, carry)
	c.Regs.SetFlag(FlagV, overflow)
}

// Format 3: MOV/CMP/ADD/SUB with an 8-bit immediate.
func thumbImmediate(c *CPU, instr uint16) {
	op := (instr >> 11) & 0x3
	rd := int((instr >> 8) & 0x7)
	imm := uint32(instr & 0xFF)

	switch op {
	case 0: // MOV
		c.Regs.SetR(rd, imm)
		thumbSetNZ(c, imm)
	case 1: // CMP
		result, carry, overflow := subWithFlags(c.Regs.R(rd), imm)
		thumbSetNZ(c, result)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 2: // ADD
		result, carry, overflow := addWithFlags(c.Regs.R(rd), imm)
		c.Regs.SetR(rd, result)
		thumbSetNZ(c, result)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	default: // SUB
		result, carry, overflow := subWithFlags(c.Regs.R(rd), imm)
		c.Regs.SetR(rd, result)
		thumbSetNZ(c, result)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	}
}

// Format 4: two-register ALU operations.
func thumbALU(c *CPU, instr uint16) {
	op := (instr >> 6) & 0xF
	rs := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	a := c.Regs.R(rd)
	b := c.Regs.R(rs)

	switch op {
	case 0x0: // AND
		r := a & b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	case 0x1: // EOR
		r := a ^ b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	case 0x2: // LSL (register)
		r, carry := Shift(ShiftLSL, a, uint(b&0xFF), c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
	case 0x3: // LSR (register)
		r, carry := Shift(ShiftLSR, a, uint(b&0xFF), c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
	case 0x4: // ASR (register)
		r, carry := Shift(ShiftASR, a, uint(b&0xFF), c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
	case 0x5: // ADC
		r, carry, overflow := addWithFlags3(a, b, c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 0x6: // SBC
		r, carry, overflow := subWithFlags3(a, b, c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 0x7: // ROR (register)
		r, carry := Shift(ShiftROR, a, uint(b&0xFF), c.Regs.Flag(FlagC))
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
	case 0x8: // TST
		thumbSetNZ(c, a&b)
	case 0x9: // NEG
		r, carry, overflow := subWithFlags(0, b)
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 0xA: // CMP
		r, carry, overflow := subWithFlags(a, b)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 0xB: // CMN
		r, carry, overflow := addWithFlags(a, b)
		thumbSetNZ(c, r)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 0xC: // ORR
		r := a | b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	case 0xD: // MUL
		r := a * b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	case 0xE: // BIC
		r := a &^ b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	default: // MVN
		r := ^b
		c.Regs.SetR(rd, r)
		thumbSetNZ(c, r)
	}
}

// Format 5: hi-register operations and BX.
func thumbHiRegister(c *CPU, instr uint16) {
	op := (instr >> 8) & 0x3
	h1 := instr&(1<<7) != 0
	h2 := instr&(1<<6) != 0
	rs := int((instr>>3)&0x7) + boolOffset(h2)
	rd := int(instr&0x7) + boolOffset(h1)

	switch op {
	case 0: // ADD
		c.Regs.SetR(rd, c.Regs.R(rd)+c.Regs.R(rs))
	case 1: // CMP
		result, carry, overflow := subWithFlags(c.Regs.R(rd), c.Regs.R(rs))
		thumbSetNZ(c, result)
		c.Regs.SetFlag(FlagC, carry)
		c.Regs.SetFlag(FlagV, overflow)
	case 2: // MOV
		c.Regs.SetR(rd, c.Regs.R(rs))
	default: // BX
		rn := c.Regs.R(rs)
		if rn&1 == 1 {
			c.Regs.SetPC(rn &^ 1)
		} else {
			c.Regs.SetCPSR(c.Regs.CPSR() &^ (1 << FlagT))
			c.Regs.SetPC(rn &^ 3)
		}
	}
}

func boolOffset(v bool) int {
	if v {
		return 8
	}
	return 0
}

// Format 6: PC-relative load (LDR Rd,[PC,#imm]).
func thumbPCRelativeLoad(c *CPU, instr uint16) {
	rd := int((instr >> 8) & 0x7)
	word := uint32(instr&0xFF) * 4
	base := (c.pcRelative() &^ 3) + word
	c.Regs.SetR(rd, c.Bus.Read32(base))
}

// Format 7: load/store with register offset.
func thumbLoadStoreRegisterOffset(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	byteTransfer := instr&(1<<10) != 0
	ro := int((instr >> 6) & 0x7)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.Regs.R(rb) + c.Regs.R(ro)

	switch {
	case load && byteTransfer:
		c.Regs.SetR(rd, uint32(c.Bus.Read8(addr)))
	case load && !byteTransfer:
		c.Regs.SetR(rd, c.Bus.Read32(addr))
	case !load && byteTransfer:
		c.Bus.Write8(addr, uint8(c.Regs.R(rd)))
	default:
		c.Bus.Write32(addr, c.Regs.R(rd))
	}
}

// Format 8: load/store sign-extended byte/halfword.
func thumbLoadStoreSignExtended(c *CPU, instr uint16) {
	hFlag := instr&(1<<11) != 0
	signFlag := instr&(1<<10) != 0
	ro := int((instr >> 6) & 0x7)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.Regs.R(rb) + c.Regs.R(ro)

	switch {
	case !signFlag && !hFlag: // STRH
		c.Bus.Write16(addr, uint16(c.Regs.R(rd)))
	case !signFlag && hFlag: // LDRH
		c.Regs.SetR(rd, uint32(c.Bus.Read16(addr)))
	case signFlag && !hFlag: // LDSB
		c.Regs.SetR(rd, uint32(int32(int8(c.Bus.Read8(addr)))))
	default: // LDSH
		c.Regs.SetR(rd, uint32(int32(int16(c.Bus.Read16(addr)))))
	}
}

// Format 9: load/store with a 5-bit immediate offset.
func thumbLoadStoreImmediate(c *CPU, instr uint16) {
	byteTransfer := instr&(1<<12) != 0
	load := instr&(1<<11) != 0
	offset := uint32((instr >> 6) & 0x1F)
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)

	var addr uint32
	if byteTransfer {
		addr = c.Regs.R(rb) + offset
	} else {
		addr = c.Regs.R(rb) + offset*4
	}

	switch {
	case load && byteTransfer:
		c.Regs.SetR(rd, uint32(c.Bus.Read8(addr)))
	case load && !byteTransfer:
		c.Regs.SetR(rd, c.Bus.Read32(addr))
	case !load && byteTransfer:
		c.Bus.Write8(addr, uint8(c.Regs.R(rd)))
	default:
		c.Bus.Write32(addr, c.Regs.R(rd))
	}
}

// Format 10: load/store halfword with a 5-bit immediate offset.
func thumbLoadStoreHalfword(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	offset := uint32((instr>>6)&0x1F) * 2
	rb := int((instr >> 3) & 0x7)
	rd := int(instr & 0x7)
	addr := c.Regs.R(rb) + offset

	if load {
		c.Regs.SetR(rd, uint32(c.Bus.Read16(addr)))
	} else {
		c.Bus.Write16(addr, uint16(c.Regs.R(rd)))
	}
}

// Format 11: SP-relative load/store.
func thumbSPRelative(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	rd := int((instr >> 8) & 0x7)
	word := uint32(instr&0xFF) * 4
	addr := c.Regs.R(13) + word

	if load {
		c.Regs.SetR(rd, c.Bus.Read32(addr))
	} else {
		c.Bus.Write32(addr, c.Regs.R(rd))
	}
}

// Format 12: load address (ADD Rd,PC/SP,#imm).
func thumbLoadAddress(c *CPU, instr uint16) {
	useSP := instr&(1<<11) != 0
	rd := int((instr >> 8) & 0x7)
	word := uint32(instr&0xFF) * 4
	if useSP {
		c.Regs.SetR(rd, c.Regs.R(13)+word)
	} else {
		c.Regs.SetR(rd, (c.pcRelative()&^3)+word)
	}
}

// Format 13: add signed offset to stack pointer.
func thumbAddOffsetToSP(c *CPU, instr uint16) {
	negative := instr&(1<<7) != 0
	word := uint32(instr&0x7F) * 4
	if negative {
		c.Regs.SetR(13, c.Regs.R(13)-word)
	} else {
		c.Regs.SetR(13, c.Regs.R(13)+word)
	}
}

// Format 14: push/pop register list (with optional LR/PC).
func thumbPushPop(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	storeLRLoadPC := instr&(1<<8) != 0
	list := instr & 0xFF

	if load {
		sp := c.Regs.R(13)
		for i := 0; i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				c.Regs.SetR(i, c.Bus.Read32(sp))
				sp += 4
			}
		}
		if storeLRLoadPC {
			c.Regs.SetPC(c.Bus.Read32(sp) &^ 1)
			sp += 4
		}
		c.Regs.SetR(13, sp)
		return
	}

	count := 0
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}
	if storeLRLoadPC {
		count++
	}
	sp := c.Regs.R(13) - uint32(count)*4
	c.Regs.SetR(13, sp)
	addr := sp
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			c.Bus.Write32(addr, c.Regs.R(i))
			addr += 4
		}
	}
	if storeLRLoadPC {
		c.Bus.Write32(addr, c.Regs.R(14))
	}
}

// Format 15: multiple load/store (LDMIA/STMIA with write-back).
func thumbMultipleLoadStore(c *CPU, instr uint16) {
	load := instr&(1<<11) != 0
	rb := int((instr >> 8) & 0x7)
	list := instr & 0xFF
	addr := c.Regs.R(rb)

	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			c.Regs.SetR(i, c.Bus.Read32(addr))
		} else {
			c.Bus.Write32(addr, c.Regs.R(i))
		}
		addr += 4
	}
	c.Regs.SetR(rb, addr)
}

// Format 17: software interrupt.
func thumbSWI(c *CPU, instr uint16) {
	c.SoftwareInterrupt(c.Regs.PC())
}

// Format 16: conditional branch.
func thumbConditionalBranch(c *CPU, instr uint16) {
	cond := Condition((instr >> 8) & 0xF)
	if cond == CondAL || cond == CondNV {
		return // reserved encodings in this format; not a valid conditional branch
	}
	if !cond.Eval(c.Regs) {
		return
	}
	offset := int32(int8(instr & 0xFF))
	c.Regs.SetPC(uint32(int32(c.pcRelative()) + offset*2))
}

// Format 18: unconditional branch.
func thumbBranch(c *CPU, instr uint16) {
	raw := instr & 0x7FF
	offset := (int32(raw<<5) >> 5) * 2
	c.Regs.SetPC(uint32(int32(c.pcRelative()) + offset))
}

// Format 19: long branch with link (BL), emitted as a pair of halfwords.
func thumbLongBranchLink(c *CPU, instr uint16) {
	firstHalf := instr&(1<<11) == 0
	offset := uint32(instr & 0x7FF)

	if firstHalf {
		signExtended := int32(offset<<21) >> 9 // offset is bits 22-12 of the target delta
		c.Regs.SetR(14, uint32(int32(c.pcRelative())+signExtended))
		return
	}
	next := c.Regs.PC()
	target := c.Regs.R(14) + offset*2
	c.Regs.SetPC(target)
	c.Regs.SetR(14, (next-2)|1)
}
