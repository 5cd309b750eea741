package cpu

// arm.go: ARM-state instruction handlers. Ground: teacher's cpu/opcodes.go
// dispatches one Z80 opcode per function operating on *CPU; this keeps the
// same "one function per instruction class, operating on the shared CPU
// value" shape, generalized to ARM's condition-coded, operand2-shifted
// instruction set.

func armPatterns() []armPattern {
	return []armPattern{
		{mask: 0xFFF, value: 0x121, name: "BX", exec: armBX},
		{mask: 0xFCF, value: 0x009, name: "MUL/MLA", exec: armMultiply},
		{mask: 0xF8F, value: 0x089, name: "MULL/MLAL", exec: armMultiplyLong},
		{mask: 0xE0F, value: 0x00B, name: "LDRH/STRH", exec: armHalfwordTransfer},
		{mask: 0xE0F, value: 0x00D, name: "LDRSB", exec: armHalfwordTransfer},
		{mask: 0xE0F, value: 0x00F, name: "LDRSH", exec: armHalfwordTransfer},
		{mask: 0xFBF, value: 0x100, name: "MRS", exec: armMRS},
		{mask: 0xFBF, value: 0x120, name: "MSR-reg", exec: armMSRRegister},
		{mask: 0xFB0, value: 0x320, name: "MSR-imm", exec: armMSRImmediate},
		{mask: 0xC00, value: 0x400, name: "LDR/STR", exec: armSingleDataTransfer},
		{mask: 0xE00, value: 0x800, name: "LDM/STM", exec: armBlockDataTransfer},
		{mask: 0xE00, value: 0xA00, name: "B/BL", exec: armBranch},
		{mask: 0xF00, value: 0xF00, name: "SWI", exec: armSWI},
		{mask: 0xC00, value: 0x000, name: "DataProcessing", exec: armDataProcessing},
	}
}

// --- Branch and exchange -------------------------------------------------

func armBX(c *CPU, instr uint32) {
	rn := c.Regs.R(int(instr & 0xF))
	if rn&1 == 1 {
		c.Regs.SetCPSR(c.Regs.CPSR() | (1 << FlagT))
		c.Regs.SetPC(rn &^ 1)
	} else {
		c.Regs.SetCPSR(c.Regs.CPSR() &^ (1 << FlagT))
		c.Regs.SetPC(rn &^ 3)
	}
}

// --- Multiply / multiply-long --------------------------------------------

func armMultiply(c *CPU, instr uint32) {
	accumulate := instr&(1<<21) != 0
	setFlags := instr&(1<<20) != 0
	rd := int((instr >> 16) & 0xF)
	rn := int((instr >> 12) & 0xF)
	rs := int((instr >> 8) & 0xF)
	rm := int(instr & 0xF)

	result := c.Regs.R(rm) * c.Regs.R(rs)
	if accumulate {
		result += c.Regs.R(rn)
	}
	c.Regs.SetR(rd, result)
	if setFlags {
		c.Regs.SetFlag(FlagN, result&(1<<31) != 0)
		c.Regs.SetFlag(FlagZ, result == 0)
	}
}

func armMultiplyLong(c *CPU, instr uint32) {
	signed := instr&(1<<22) != 0
	accumulate := instr&(1<<21) != 0
	setFlags := instr&(1<<20) != 0
	rdHi := int((instr >> 16) & 0xF)
	rdLo := int((instr >> 12) & 0xF)
	rs := int((instr >> 8) & 0xF)
	rm := int(instr & 0xF)

	var result uint64
	if signed {
		result = uint64(int64(int32(c.Regs.R(rm))) * int64(int32(c.Regs.R(rs))))
	} else {
		result = uint64(c.Regs.R(rm)) * uint64(c.Regs.R(rs))
	}
	if accumulate {
		acc := uint64(c.Regs.R(rdHi))<<32 | uint64(c.Regs.R(rdLo))
		result += acc
	}
	c.Regs.SetR(rdLo, uint32(result))
	c.Regs.SetR(rdHi, uint32(result>>32))
	if setFlags {
		c.Regs.SetFlag(FlagN, result&(1<<63) != 0)
		c.Regs.SetFlag(FlagZ, result == 0)
	}
}

// --- Halfword and signed transfers ----------------------------------------

func armHalfwordTransfer(c *CPU, instr uint32) {
	pre := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	immediateOffset := instr&(1<<22) != 0
	writeBack := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)

	var offset uint32
	if immediateOffset {
		offset = ((instr >> 4) & 0xF0) | (instr & 0xF)
	} else {
		offset = c.Regs.R(int(instr & 0xF))
	}

	base := c.Regs.R(rn)
	if rn == 15 {
		base = c.pcRelative()
	}
	var addr uint32
	if up {
		addr = base + offset
	} else {
		addr = base - offset
	}
	effective := base
	if pre {
		effective = addr
	}

	sh := (instr >> 5) & 0x3
	switch {
	case load && sh == 0x1: // LDRH
		c.Regs.SetR(rd, uint32(c.Bus.Read16(effective)))
	case load && sh == 0x2: // LDRSB
		v := c.Bus.Read8(effective)
		c.Regs.SetR(rd, uint32(int32(int8(v))))
	case load && sh == 0x3: // LDRSH
		v := c.Bus.Read16(effective)
		c.Regs.SetR(rd, uint32(int32(int16(v))))
	case !load && sh == 0x1: // STRH
		c.Bus.Write16(effective, uint16(c.Regs.R(rd)))
	}

	if !pre || writeBack {
		c.Regs.SetR(rn, addr)
	}
}

// --- PSR transfer ----------------------------------------------------------

func armMRS(c *CPU, instr uint32) {
	rd := int((instr >> 12) & 0xF)
	useSPSR := instr&(1<<22) != 0
	if useSPSR {
		c.Regs.SetR(rd, c.Regs.SPSR())
	} else {
		c.Regs.SetR(rd, c.Regs.CPSR())
	}
}

func armMSRRegister(c *CPU, instr uint32) {
	useSPSR := instr&(1<<22) != 0
	value := c.Regs.R(int(instr & 0xF))
	armMSRApply(c, instr, useSPSR, value)
}

func armMSRImmediate(c *CPU, instr uint32) {
	useSPSR := instr&(1<<22) != 0
	imm := instr & 0xFF
	rotate := (instr >> 8) & 0xF
	var value uint32
	if rotate == 0 {
		value = imm
	} else {
		value, _ = Shift(ShiftROR, imm, uint(rotate*2), false)
	}
	armMSRApply(c, instr, useSPSR, value)
}

func armMSRApply(c *CPU, instr uint32, useSPSR bool, value uint32) {
	// Field mask bits 19-16 select which PSR byte-fields are written: 3=flags,
	// 2=status, 1=extension, 0=control. The core models flags (31-24) and
	// control (7-0); status/extension bytes are reserved on ARM7TDMI.
	fieldMask := (instr >> 16) & 0xF
	var mask uint32
	if fieldMask&0x8 != 0 {
		mask |= 0xFF000000
	}
	if fieldMask&0x1 != 0 {
		mask |= 0x000000FF
	}
	if useSPSR {
		c.Regs.SetSPSR((c.Regs.SPSR() &^ mask) | (value & mask))
		return
	}
	c.Regs.SetCPSR((c.Regs.CPSR() &^ mask) | (value & mask))
}

// --- Single data transfer (LDR/STR) ---------------------------------------

func armSingleDataTransfer(c *CPU, instr uint32) {
	immediate := instr&(1<<25) == 0 // note: inverted vs data-processing's I bit
	pre := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	byteTransfer := instr&(1<<22) != 0
	writeBack := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)

	var offset uint32
	if immediate {
		offset = instr & 0xFFF
	} else {
		rm := c.Regs.R(int(instr & 0xF))
		shiftType := ShiftType((instr >> 5) & 0x3)
		amount := uint((instr >> 7) & 0x1F)
		offset, _ = Shift(shiftType, rm, amount, c.Regs.Flag(FlagC))
	}

	base := c.Regs.R(rn)
	if rn == 15 {
		base = c.pcRelative()
	}
	var addr uint32
	if up {
		addr = base + offset
	} else {
		addr = base - offset
	}
	effective := base
	if pre {
		effective = addr
	}

	if load {
		if byteTransfer {
			c.Regs.SetR(rd, uint32(c.Bus.Read8(effective)))
		} else {
			v := c.Bus.Read32(effective)
			rot := (effective & 3) * 8
			v = (v >> rot) | (v << (32 - rot))
			c.Regs.SetR(rd, v)
		}
	} else {
		if byteTransfer {
			c.Bus.Write8(effective, uint8(c.Regs.R(rd)))
		} else {
			c.Bus.Write32(effective, c.Regs.R(rd))
		}
	}

	if !pre || writeBack {
		c.Regs.SetR(rn, addr)
	}
}

// --- Block data transfer (LDM/STM) -----------------------------------------

func armBlockDataTransfer(c *CPU, instr uint32) {
	pre := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	psrOrUser := instr&(1<<22) != 0
	writeBack := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	rn := int((instr >> 16) & 0xF)
	list := instr & 0xFFFF

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}
	if count == 0 {
		count = 16 // empty register list: no register moves, but write-back adjusts the base by 16 words
	}

	base := c.Regs.R(rn)
	var start uint32
	if up {
		start = base
	} else {
		start = base - uint32(count)*4
	}

	addr := start
	if up == pre {
		addr += 4
	}

	// psrOrUser selects the user-mode register bank for the transfer and, on
	// an LDM including R15, also restores SPSR into CPSR; the core does not
	// model the user-bank distinction (no separate current-user-mode bank
	// access from a privileged mode beyond what Registers already tracks)
	// and simply performs the transfer against the active bank.
	_ = psrOrUser

	for i := 0; i < 16; i++ {
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

	if load && psrOrUser && list&(1<<15) != 0 {
		c.Regs.RestoreSPSRToCPSR()
	}

	if writeBack {
		if up {
			c.Regs.SetR(rn, base+uint32(count)*4)
		} else {
			c.Regs.SetR(rn, base-uint32(count)*4)
		}
	}
}

// --- Branch / branch-with-link ---------------------------------------------

func armBranch(c *CPU, instr uint32) {
	link := instr&(1<<24) != 0
	offset := instr & 0xFFFFFF
	signExtended := int32(offset<<8) >> 8
	if link {
		c.Regs.SetR(14, c.Regs.PC())
	}
	c.Regs.SetPC(uint32(int32(c.pcRelative()) + signExtended*4))
}

// --- Software interrupt -----------------------------------------------------

func armSWI(c *CPU, instr uint32) {
	c.SoftwareInterrupt(c.Regs.PC())
}

// --- Data processing ---------------------------------------------------------

func armDataProcessing(c *CPU, instr uint32) {
	immediate := instr&(1<<25) != 0
	opcode := (instr >> 21) & 0xF
	setFlags := instr&(1<<20) != 0
	rn := int((instr >> 16) & 0xF)
	rd := int((instr >> 12) & 0xF)

	var op2 uint32
	var shiftCarry bool
	carryIn := c.Regs.Flag(FlagC)

	if immediate {
		imm := instr & 0xFF
		rotate := (instr >> 8) & 0xF
		if rotate == 0 {
			op2, shiftCarry = imm, carryIn
		} else {
			op2, shiftCarry = Shift(ShiftROR, imm, uint(rotate*2), carryIn)
		}
	} else {
		rm := c.Regs.R(int(instr & 0xF))
		shiftType := ShiftType((instr >> 5) & 0x3)
		if instr&(1<<4) != 0 {
			rs := c.Regs.R(int((instr >> 8) & 0xF))
			amount := uint(rs & 0xFF)
			if amount == 0 {
				op2, shiftCarry = rm, carryIn
			} else {
				op2, shiftCarry = Shift(shiftType, rm, amount, carryIn)
			}
		} else {
			amount := uint((instr >> 7) & 0x1F)
			op2, shiftCarry = Shift(shiftType, rm, amount, carryIn)
		}
	}

	op1 := c.Regs.R(rn)
	var result uint32
	var carryOut, overflow bool
	logical := false

	switch opcode {
	case 0x0: // AND
		result = op1 & op2
		logical, carryOut = true, shiftCarry
	case 0x1: // EOR
		result = op1 ^ op2
		logical, carryOut = true, shiftCarry
	case 0x2: // SUB
		result, carryOut, overflow = subWithFlags(op1, op2)
	case 0x3: // RSB
		result, carryOut, overflow = subWithFlags(op2, op1)
	case 0x4: // ADD
		result, carryOut, overflow = addWithFlags(op1, op2)
	case 0x5: // ADC
		result, carryOut, overflow = addWithFlags3(op1, op2, carryIn)
	case 0x6: // SBC
		result, carryOut, overflow = subWithFlags3(op1, op2, carryIn)
	case 0x7: // RSC
		result, carryOut, overflow = subWithFlags3(op2, op1, carryIn)
	case 0x8: // TST
		result = op1 & op2
		logical, carryOut = true, shiftCarry
	case 0x9: // TEQ
		result = op1 ^ op2
		logical, carryOut = true, shiftCarry
	case 0xA: // CMP
		result, carryOut, overflow = subWithFlags(op1, op2)
	case 0xB: // CMN
		result, carryOut, overflow = addWithFlags(op1, op2)
	case 0xC: // ORR
		result = op1 | op2
		logical, carryOut = true, shiftCarry
	case 0xD: // MOV
		result = op2
		logical, carryOut = true, shiftCarry
	case 0xE: // BIC
		result = op1 &^ op2
		logical, carryOut = true, shiftCarry
	default: // MVN
		result = ^op2
		logical, carryOut = true, shiftCarry
	}

	testOnly := opcode >= 0x8 && opcode <= 0xB
	if !testOnly {
		if rd == 15 && setFlags {
			c.Regs.RestoreSPSRToCPSR()
			c.Regs.SetPC(result)
			return
		}
		c.Regs.SetR(rd, result)
	}

	if setFlags {
		c.Regs.SetFlag(FlagN, result&(1<<31) != 0)
		c.Regs.SetFlag(FlagZ, result == 0)
		c.Regs.SetFlag(FlagC, carryOut)
		if !logical {
			c.Regs.SetFlag(FlagV, overflow)
		}
	}
}

func addWithFlags(a, b uint32) (result uint32, carry, overflow bool) {
	sum := uint64(a) + uint64(b)
	result = uint32(sum)
	carry = sum > 0xFFFFFFFF
	overflow = (a^result)&(b^result)&(1<<31) != 0
	return
}

func addWithFlags3(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	c := uint64(0)
	if carryIn {
		c = 1
	}
	sum := uint64(a) + uint64(b) + c
	result = uint32(sum)
	carry = sum > 0xFFFFFFFF
	overflow = (a^result)&(b^result)&(1<<31) != 0
	return
}

func subWithFlags(a, b uint32) (result uint32, carry, overflow bool) {
	result = a - b
	carry = a >= b
	overflow = (a^b)&(a^result)&(1<<31) != 0
	return
}

func subWithFlags3(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	borrow := uint32(1)
	if carryIn {
		borrow = 0
	}
	full := uint64(a) - uint64(b) - uint64(borrow)
	result = uint32(full)
	carry = uint64(a) >= uint64(b)+uint64(borrow)
	overflow = (a^b)&(a^result)&(1<<31) != 0
	return
}
