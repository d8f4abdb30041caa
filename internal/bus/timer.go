package bus

import "log/slog"

// timerDividerBit maps TAC's clock-select field to the divider bit whose
// falling edge drives a TIMA increment: 00->4096Hz (bit9), 01->262144Hz
// (bit3), 10->65536Hz (bit5), 11->16384Hz (bit7).
var timerDividerBit = [4]uint{9, 3, 5, 7}

// timerInput reports the current (post-TAC-gating) timer clock input.
func (b *Bus) timerInput() bool {
	if b.tac&0x04 == 0 {
		return false
	}
	bit := timerDividerBit[b.tac&0x03]
	return (b.divInternal>>bit)&1 != 0
}

func (b *Bus) readTimer(addr uint16) byte {
	switch addr {
	case 0xFF04:
		return b.div
	case 0xFF05:
		return b.tima
	case 0xFF06:
		return b.tma
	default: // 0xFF07
		return 0xF8 | (b.tac & 0x07)
	}
}

func (b *Bus) writeTimer(addr uint16, value byte) {
	switch addr {
	case 0xFF04:
		// Any write resets the divider; if that causes a falling edge on
		// the currently selected input, TIMA still increments.
		before := b.timerInput()
		b.divInternal = 0
		b.div = 0
		if before && !b.timerInput() {
			b.incrementTIMA()
		}
		b.logTimer("DIV write resets divider")
	case 0xFF05:
		// Writing TIMA during a pending post-overflow reload cancels it.
		b.tima = value
		b.timaReloadDelay = 0
		b.logTimer("TIMA write")
	case 0xFF06:
		b.tma = value
		b.logTimer("TMA write")
	default: // 0xFF07
		before := b.timerInput()
		b.tac = value & 0x07
		if before && !b.timerInput() {
			b.incrementTIMA()
		}
		b.logTimer("TAC write")
	}
}

func (b *Bus) logTimer(msg string) {
	if b.debugTimer {
		slog.Debug(msg, "tima", b.tima, "tma", b.tma, "tac", b.tac, "reload", b.timaReloadDelay)
	}
}

// tickTimer advances the 16-bit internal divider by one T-cycle, applies any
// pending post-overflow TIMA reload, and increments TIMA on a falling edge
// of the TAC-selected divider bit.
func (b *Bus) tickTimer() {
	before := b.timerInput()
	b.divInternal++
	b.div = byte(b.divInternal >> 8)
	after := b.timerInput()

	if b.timaReloadDelay > 0 {
		b.timaReloadDelay--
		if b.timaReloadDelay == 0 {
			b.tima = b.tma
			b.ifReg |= 1 << 2
		}
	}

	if before && !after {
		b.incrementTIMA()
	}
}

// incrementTIMA bumps TIMA, or on overflow sets it to 0 and schedules the
// 4-cycle delayed reload from TMA (during which a TIMA write cancels it).
func (b *Bus) incrementTIMA() {
	if b.timaReloadDelay > 0 {
		return
	}
	if b.tima == 0xFF {
		b.tima = 0x00
		b.timaReloadDelay = 4
		return
	}
	b.tima++
}
