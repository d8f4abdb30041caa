package cpu

// aluOp computes an 8-bit accumulator operation, given the current carry
// flag (ignored by operations that don't use it), and reports the result
// flags. The eight entries below are indexed by the "op" field (bits 3-5)
// shared by both the register/immediate ALU opcodes (0x80-0xBF, 0xC6-0xFE)
// — one dispatch path replaces the teacher's eight near-identical switch
// blocks (one per ADD/ADC/SUB/SBC/AND/XOR/OR/CP).
type aluOp func(a, b byte, carryIn bool) (byte, flags)

var aluTable = [8]aluOp{aluAdd, aluAdc, aluSub, aluSbc, aluAnd, aluXor, aluOr, aluCmp}

func aluAdd(a, b byte, _ bool) (byte, flags) {
	sum := uint16(a) + uint16(b)
	r := byte(sum)
	return r, flags{Z: r == 0, H: (a&0x0F)+(b&0x0F) > 0x0F, C: sum > 0xFF}
}

func aluAdc(a, b byte, carryIn bool) (byte, flags) {
	var cin uint16
	if carryIn {
		cin = 1
	}
	sum := uint16(a) + uint16(b) + cin
	r := byte(sum)
	return r, flags{Z: r == 0, H: (a&0x0F)+(b&0x0F)+byte(cin) > 0x0F, C: sum > 0xFF}
}

func aluSub(a, b byte, _ bool) (byte, flags) {
	r := a - b
	return r, flags{Z: r == 0, N: true, H: a&0x0F < b&0x0F, C: a < b}
}

func aluSbc(a, b byte, carryIn bool) (byte, flags) {
	var cin byte
	if carryIn {
		cin = 1
	}
	full := int16(a) - int16(b) - int16(cin)
	r := byte(full)
	return r, flags{Z: r == 0, N: true, H: a&0x0F < b&0x0F+cin, C: int16(a) < int16(b)+int16(cin)}
}

func aluAnd(a, b byte, _ bool) (byte, flags) { r := a & b; return r, flags{Z: r == 0, H: true} }
func aluXor(a, b byte, _ bool) (byte, flags) { r := a ^ b; return r, flags{Z: r == 0} }
func aluOr(a, b byte, _ bool) (byte, flags)  { r := a | b; return r, flags{Z: r == 0} }

func aluCmp(a, b byte, _ bool) (byte, flags) {
	_, fl := aluSub(a, b, false)
	return a, fl // CP discards the difference, keeps A
}

func isALURegGroup(op byte) bool { return op&0xC0 == 0x80 }
func isALUImm(op byte) bool      { return op&0xC7 == 0xC6 }

// execALUReg runs ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r (or A,(HL)) — the ALU
// index and operand register both fall out of the opcode's bit fields.
func (c *CPU) execALUReg(op byte) int {
	idx := (op >> 3) & 7
	src := op & 7
	res, fl := aluTable[idx](c.A, c.reg(src), c.carrySet())
	c.A = res
	c.F = fl.pack()
	if src == 6 {
		return 8
	}
	return 4
}

// execALUImm runs ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,d8.
func (c *CPU) execALUImm(op byte) int {
	idx := (op >> 3) & 7
	n := c.fetch8()
	res, fl := aluTable[idx](c.A, n, c.carrySet())
	c.A = res
	c.F = fl.pack()
	return 8
}

func isIncDec8(op byte) bool { return op&0xC0 == 0x00 && op&0x06 == 0x04 }

// execIncDec8 runs INC r / DEC r (and their (HL) forms); bit 0 of the
// opcode selects increment vs decrement, bits 3-5 select the operand.
func (c *CPU) execIncDec8(op byte) int {
	idx := (op >> 3) & 7
	old := c.reg(idx)
	carry := c.carrySet()
	var v byte
	var fl flags
	if op&1 == 0 { // INC
		v = old + 1
		fl = flags{Z: v == 0, H: old&0x0F == 0x0F, C: carry}
	} else { // DEC
		v = old - 1
		fl = flags{Z: v == 0, N: true, H: old&0x0F == 0x00, C: carry}
	}
	c.setReg(idx, v)
	c.F = fl.pack()
	if idx == 6 {
		return 12
	}
	return 4
}

func isIncDecPair(op byte) bool {
	return op&0xC0 == 0x00 && (op&0x0F == 0x03 || op&0x0F == 0x0B)
}

// execIncDecPair runs INC rr / DEC rr for BC/DE/HL/SP. These never touch
// flags on real hardware.
func (c *CPU) execIncDecPair(op byte) int {
	idx := (op >> 4) & 3
	v := c.regPair(idx)
	if op&0x0F == 0x03 {
		v++
	} else {
		v--
	}
	c.setRegPair(idx, v)
	return 8
}

func isAddHLPair(op byte) bool { return op&0xC0 == 0x00 && op&0x0F == 0x09 }

// execAddHLPair runs ADD HL,rr. Z is left untouched; N clears; H/C come
// from the 16-bit addition.
func (c *CPU) execAddHLPair(op byte) int {
	idx := (op >> 4) & 3
	hl := c.hl()
	operand := c.regPair(idx)
	sum := uint32(hl) + uint32(operand)
	h := (hl&0x0FFF)+(operand&0x0FFF) > 0x0FFF
	c.setHL(uint16(sum))
	c.F = flags{Z: c.F&FlagZero != 0, H: h, C: sum > 0xFFFF}.pack()
	return 8
}

func isUnaryAccum(op byte) bool { return op&0xC7 == 0x07 }

// execUnaryAccum runs the eight accumulator-only ops that don't fit the
// regular ALU table: the four rotate-A instructions, DAA, CPL, SCF, CCF.
func (c *CPU) execUnaryAccum(op byte) int {
	switch op {
	case 0x07: // RLCA
		bit7 := c.A >> 7
		c.A = c.A<<1 | bit7
		c.F = flags{C: bit7 == 1}.pack()
	case 0x0F: // RRCA
		bit0 := c.A & 1
		c.A = c.A>>1 | bit0<<7
		c.F = flags{C: bit0 == 1}.pack()
	case 0x17: // RLA
		bit7 := c.A >> 7
		var cin byte
		if c.carrySet() {
			cin = 1
		}
		c.A = c.A<<1 | cin
		c.F = flags{C: bit7 == 1}.pack()
	case 0x1F: // RRA
		bit0 := c.A & 1
		var cin byte
		if c.carrySet() {
			cin = 1
		}
		c.A = c.A>>1 | cin<<7
		c.F = flags{C: bit0 == 1}.pack()
	case 0x27: // DAA
		c.daa()
	case 0x2F: // CPL
		c.A = ^c.A
		c.F = (c.F & (FlagZero | FlagCarry)) | FlagSubtract | FlagHalfCarry
	case 0x37: // SCF
		c.F = (c.F & FlagZero) | FlagCarry
	case 0x3F: // CCF
		z := c.F & FlagZero
		var cy byte
		if !c.carrySet() {
			cy = FlagCarry
		}
		c.F = z | cy
	}
	return 4
}

// daa adjusts A to valid BCD after an ADD/ADC/SUB/SBC, per the documented
// SM83 algorithm keyed off the N and (stale) H/C flags from that op.
func (c *CPU) daa() {
	a := c.A
	subtract := c.F&FlagSubtract != 0
	halfCarry := c.F&FlagHalfCarry != 0
	carry := c.carrySet()
	if !subtract {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if halfCarry || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if halfCarry {
			a -= 0x06
		}
	}
	c.A = a
	c.F = flags{Z: a == 0, N: subtract, C: carry}.pack()
}
