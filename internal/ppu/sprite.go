package ppu

import "sort"

// Sprite is a decoded OAM entry ready for compositing.
type Sprite struct {
	X, Y     byte
	Tile     byte
	Attr     byte
	OAMIndex int
}

// ComposeSpriteLine renders up to 160 sprite pixels for one scanline into a
// color-index row (0 = no sprite pixel here). Sprites are composited in
// hardware priority order: lower X wins; on an X tie, lower OAM index wins.
// A sprite pixel with attribute bit 7 set (BG-over-OBJ priority) is hidden
// wherever the background color index for that column is non-zero.
// cgbMode is accepted for interface parity with the original reference but
// is always false here — this core never enables GBC-mode priority rules.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, line byte, bgci [160]byte, cgbMode bool) [160]byte {
	var out [160]byte

	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X < ordered[j].X
		}
		return ordered[i].OAMIndex < ordered[j].OAMIndex
	})

	drawn := [160]bool{}
	for _, s := range ordered {
		row := int(line) - (int(s.Y) - 16)
		if row < 0 || row >= 8 {
			continue
		}
		flags := s.Attr
		if flags&0x40 != 0 { // Y flip
			row = 7 - row
		}

		base := uint16(0x8000) + uint16(s.Tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)

		behindBG := flags&0x80 != 0
		xFlip := flags&0x20 != 0

		for col := 0; col < 8; col++ {
			screenX := int(s.X) - 8 + col
			if screenX < 0 || screenX >= 160 || drawn[screenX] {
				continue
			}
			// Leftmost pixel (col=0) reads bit 7 unless X-flipped.
			b := byte(7 - col)
			if xFlip {
				b = byte(col)
			}
			ci := ((hi>>b)&1)<<1 | ((lo >> b) & 1)
			if ci == 0 {
				continue
			}
			if behindBG && bgci[screenX] != 0 {
				drawn[screenX] = true
				continue
			}
			out[screenX] = ci
			drawn[screenX] = true
		}
	}
	return out
}

// ComposeSpriteLineTall is the 8x16-mode variant: tile index bit 0 is
// ignored and the pair of tiles (tile&0xFE, tile|0x01) forms one 16px-tall
// sprite, Y-flip mirrors the whole 16 rows rather than each 8-row tile.
func ComposeSpriteLineTall(mem VRAMReader, sprites []Sprite, line byte, bgci [160]byte) [160]byte {
	var out [160]byte
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X < ordered[j].X
		}
		return ordered[i].OAMIndex < ordered[j].OAMIndex
	})

	drawn := [160]bool{}
	for _, s := range ordered {
		row := int(line) - (int(s.Y) - 16)
		if row < 0 || row >= 16 {
			continue
		}
		flags := s.Attr
		if flags&0x40 != 0 {
			row = 15 - row
		}
		tile := s.Tile &^ 0x01
		base := uint16(0x8000) + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		behindBG := flags&0x80 != 0
		xFlip := flags&0x20 != 0

		for col := 0; col < 8; col++ {
			screenX := int(s.X) - 8 + col
			if screenX < 0 || screenX >= 160 || drawn[screenX] {
				continue
			}
			var b byte
			if xFlip {
				b = byte(col)
			} else {
				b = byte(7 - col)
			}
			ci := ((hi>>b)&1)<<1 | ((lo >> b) & 1)
			if ci == 0 {
				continue
			}
			if behindBG && bgci[screenX] != 0 {
				drawn[screenX] = true
				continue
			}
			out[screenX] = ci
			drawn[screenX] = true
		}
	}
	return out
}
