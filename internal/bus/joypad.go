package bus

// Joypad button bitmasks for SetJoypadState; a set bit means "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// SetJoypadState sets which buttons are currently pressed, using the Joyp*
// bitmasks above, and raises the joypad interrupt on any newly-pressed
// button selected by the current JOYP group.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypad = mask
	b.updateJoypadIRQ()
}

func (b *Bus) readJoypad() byte {
	res := byte(0xC0 | (b.joypSelect & 0x30) | 0x0F)
	if b.joypSelect&0x10 == 0 { // P14 low selects D-Pad
		res &^= b.dpadBits()
	}
	if b.joypSelect&0x20 == 0 { // P15 low selects Buttons
		res &^= b.buttonBits()
	}
	return res
}

func (b *Bus) writeJoypad(value byte) {
	b.joypSelect = value & 0x30
	b.updateJoypadIRQ()
}

// dpadBits and buttonBits pack the four directional/action buttons into the
// active-low lower nibble JOYP reports for the currently selected group.
func (b *Bus) dpadBits() byte {
	var bits byte
	if b.joypad&JoypRight != 0 {
		bits |= 0x01
	}
	if b.joypad&JoypLeft != 0 {
		bits |= 0x02
	}
	if b.joypad&JoypUp != 0 {
		bits |= 0x04
	}
	if b.joypad&JoypDown != 0 {
		bits |= 0x08
	}
	return bits
}

func (b *Bus) buttonBits() byte {
	var bits byte
	if b.joypad&JoypA != 0 {
		bits |= 0x01
	}
	if b.joypad&JoypB != 0 {
		bits |= 0x02
	}
	if b.joypad&JoypSelectBtn != 0 {
		bits |= 0x04
	}
	if b.joypad&JoypStart != 0 {
		bits |= 0x08
	}
	return bits
}

// updateJoypadIRQ recomputes the active-low lower nibble and raises IF bit 4
// (joypad) on any 1->0 transition, i.e. a newly-pressed selected button.
func (b *Bus) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if b.joypSelect&0x10 == 0 {
		newLower &^= b.dpadBits()
	}
	if b.joypSelect&0x20 == 0 {
		newLower &^= b.buttonBits()
	}
	if falling := b.joypLower4 &^ newLower; falling != 0 {
		b.ifReg |= 1 << 4
	}
	b.joypLower4 = newLower
}
