// Package cpu implements the Sharp SM83 (LR35902) instruction core: register
// file, fetch/decode/execute, interrupt dispatch, and cycle accounting.
package cpu

import (
	"github.com/nullform/gbcore/internal/bus"
)

// CPU is the SM83 execution core. It owns the register file and drives the
// bus one instruction at a time; the bus in turn owns everything addressable
// (cartridge, VRAM/OAM, timer, joypad, interrupt flags).
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME       bool
	halted    bool
	eiPending bool // EI's effect is delayed until after the next fetch

	// Cycles is a running total of T-cycles consumed since reset, exposed
	// for conformance tooling; the core itself never reads it back.
	Cycles uint64

	bus *bus.Bus
}

// New returns a CPU wired to b, with PC at 0x0000 (boot-ROM entry point).
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b, SP: 0xFFFE}
}

// SetPC lets a boot stub or test harness place the program counter directly.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Bus exposes the underlying bus for tests and host tooling.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// ResetNoBoot loads the documented post-boot-ROM register state, for runs
// that skip the boot ROM entirely.
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.halted = false
	c.eiPending = false
}

// interruptVectors gives the dispatch address for each IE/IF bit, in
// priority order (index 0 = highest priority).
var interruptVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// pendingInterrupt reports the lowest-numbered set bit of IE&IF, if any.
func (c *CPU) pendingInterrupt() (bit uint, ok bool) {
	pending := c.bus.Read(0xFFFF) & c.bus.Read(0xFF0F) & 0x1F
	if pending == 0 {
		return 0, false
	}
	for bit = 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			return bit, true
		}
	}
	return 0, false
}

// serviceInterrupt acknowledges and dispatches the given interrupt: clears
// its IF bit, disables IME, pushes PC, and jumps to its vector.
func (c *CPU) serviceInterrupt(bit uint) int {
	ifReg := c.bus.Read(0xFF0F)
	c.bus.Write(0xFF0F, ifReg&^(1<<bit))
	c.halted = false
	c.IME = false
	c.push16(c.PC)
	c.PC = interruptVectors[bit]
	return 20
}

// Step executes exactly one instruction (or services one pending interrupt,
// or sleeps one M-cycle in HALT) and returns the T-cycles it consumed. The
// bus's own devices (timer, PPU, ...) are advanced by that many cycles
// before Step returns.
func (c *CPU) Step() (cycles int) {
	// An EI executed in an earlier Step takes effect once this Step is done,
	// so the instruction right after EI still runs with IME off.
	eiArmed, imeBefore := c.eiPending, c.IME
	defer func() {
		if cycles > 0 {
			c.Cycles += uint64(cycles)
			c.bus.Tick(cycles)
		}
		if eiArmed && c.eiPending {
			c.eiPending = false
			if !imeBefore {
				c.IME = true
			}
		}
	}()

	if c.halted {
		bit, ok := c.pendingInterrupt()
		switch {
		case ok && c.IME:
			return c.serviceInterrupt(bit)
		case ok:
			// Exit HALT without servicing when IME is off; the hardware
			// HALT-bug re-read quirk is not modeled.
			c.halted = false
		default:
			return 4
		}
	}

	if c.IME {
		if bit, ok := c.pendingInterrupt(); ok {
			return c.serviceInterrupt(bit)
		}
	}

	op := c.fetch8()
	return c.execute(op)
}

// execute decodes and runs one opcode byte, returning its T-cycle cost.
// Groups are recognized by the same bit-field structure the hardware
// decoder uses (dd/sss/ddd fields), so most of the 245 legal opcodes are
// handled by a handful of generic, table-driven routines rather than one
// case per opcode.
func (c *CPU) execute(op byte) int {
	switch {
	case op == 0x00: // NOP
		return 4
	case op == 0x10: // STOP nn: consume the mandatory second byte
		c.fetch8()
		c.halted = true
		return 4
	case op == 0x76: // HALT
		c.halted = true
		return 4
	case op == 0xCB:
		return c.executeCB(c.fetch8())

	case isLoadImm8(op):
		return c.execLoadImm8(op)
	case isLoadRegReg(op):
		return c.execLoadRegReg(op)
	case isLoadImm16(op):
		return c.execLoadImm16(op)
	case op == 0x08:
		return c.execStoreSP()
	case isIndirectAccum(op):
		return c.execIndirectAccum(op)
	case isLDHPort(op):
		return c.execLDHPort(op)
	case op == 0xE2 || op == 0xF2:
		return c.execLDCPort(op)
	case op == 0xEA || op == 0xFA:
		return c.execLDDirect(op)

	case isIncDecPair(op):
		return c.execIncDecPair(op)
	case isAddHLPair(op):
		return c.execAddHLPair(op)
	case isIncDec8(op):
		return c.execIncDec8(op)

	case isALURegGroup(op):
		return c.execALUReg(op)
	case isALUImm(op):
		return c.execALUImm(op)
	case isUnaryAccum(op):
		return c.execUnaryAccum(op)

	case isJump(op):
		return c.execJump(op)
	case isCall(op):
		return c.execCall(op)
	case isReturn(op):
		return c.execReturn(op)
	case isRST(op):
		return c.execRST(op)
	case isStackSP(op):
		return c.execStackSP(op)
	case op == 0xF3: // DI
		c.IME = false
		c.eiPending = false
		return 4
	case op == 0xFB: // EI
		c.eiPending = true
		return 4
	case isPushPop(op):
		return c.execPushPop(op)

	default:
		// Illegal opcode bytes (0xD3,0xDB,0xDD,0xE3,0xE4,0xEB,0xEC,0xED,
		// 0xF4,0xFC,0xFD): hardware behavior for this core is a no-op.
		return 4
	}
}
