package bus

import (
	"bytes"
	"encoding/gob"
)

// snapshot is the gob-encoded form of everything Bus owns directly; the PPU
// and cartridge encode their own state as nested blobs so each subsystem
// keeps authority over its own wire format.
type snapshot struct {
	WRAM      [0x2000]byte
	HRAM      [0x7F]byte
	IE, IF    byte
	JoypSel   byte
	Joypad    byte
	JoypL4    byte
	DIV       byte
	TIMA      byte
	TMA       byte
	TAC       byte
	TIMARelay int
	SB, SC    byte
	DivInt    uint16
	DMA       byte
	DMAActive bool
	DMASrc    uint16
	DMAIdx    int
	BootEn    bool
}

func (b *Bus) toSnapshot() snapshot {
	return snapshot{
		WRAM: b.wram, HRAM: b.hram,
		IE: b.ie, IF: b.ifReg,
		JoypSel: b.joypSelect, Joypad: b.joypad, JoypL4: b.joypLower4,
		DIV: b.div, TIMA: b.tima, TMA: b.tma, TAC: b.tac, TIMARelay: b.timaReloadDelay,
		SB: b.sb, SC: b.sc, DivInt: b.divInternal,
		DMA: b.dma, DMAActive: b.dmaActive, DMASrc: b.dmaSrc, DMAIdx: b.dmaIndex,
		BootEn: b.bootEnabled,
	}
}

func (b *Bus) applySnapshot(s snapshot) {
	b.wram = s.WRAM
	b.hram = s.HRAM
	b.ie, b.ifReg = s.IE, s.IF
	b.joypSelect, b.joypad, b.joypLower4 = s.JoypSel, s.Joypad, s.JoypL4
	b.div, b.tima, b.tma, b.tac, b.timaReloadDelay = s.DIV, s.TIMA, s.TMA, s.TAC, s.TIMARelay
	b.sb, b.sc, b.divInternal = s.SB, s.SC, s.DivInt
	b.dma, b.dmaActive, b.dmaSrc, b.dmaIndex = s.DMA, s.DMAActive, s.DMASrc, s.DMAIdx
	b.bootEnabled = s.BootEn
}

// SaveState encodes the bus, PPU, and cartridge as a sequence of gob values.
func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(b.toSnapshot())

	if b.ppu != nil {
		_ = enc.Encode(b.ppu.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}

	if saver, ok := b.cart.(interface{ SaveState() []byte }); ok {
		_ = enc.Encode(saver.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}
	return buf.Bytes()
}

// LoadState restores a blob produced by SaveState. Malformed input is
// ignored field-by-field rather than rejected wholesale, matching the
// encoder's best-effort style.
func (b *Bus) LoadState(data []byte) {
	dec := gob.NewDecoder(bytes.NewReader(data))

	var s snapshot
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.applySnapshot(s)

	var ppuState []byte
	if err := dec.Decode(&ppuState); err == nil && b.ppu != nil {
		b.ppu.LoadState(ppuState)
	}

	var cartState []byte
	if err := dec.Decode(&cartState); err == nil {
		if loader, ok := b.cart.(interface{ LoadState([]byte) }); ok {
			loader.LoadState(cartState)
		}
	}
}
