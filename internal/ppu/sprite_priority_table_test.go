package ppu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestComposeSpriteLine_PriorityTable exercises the BG-priority bit and
// BG-opacity interaction across a table of combinations, since real ROMs
// rely on every one of these four cases to draw sprites behind transparent
// BG pixels while still hiding behind opaque ones.
func TestComposeSpriteLine_PriorityTable(t *testing.T) {
	mem := mockVRAM{}
	base := uint16(0x8000)
	mem[base+0] = 0x80 // leftmost pixel opaque (color index 1)
	mem[base+1] = 0x00

	cases := []struct {
		name       string
		bgPriority bool
		bgOpaque   bool
		wantPixel  bool
	}{
		{"above bg, bg transparent", false, false, true},
		{"above bg, bg opaque", false, true, true},
		{"behind bg, bg transparent", true, false, true},
		{"behind bg, bg opaque", true, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var attr byte
			if tc.bgPriority {
				attr |= 1 << 7
			}
			// OAM X=18, Y=21 puts the sprite's top-left pixel at (10, 5)
			sprites := []Sprite{{X: 18, Y: 21, Tile: 0, Attr: attr, OAMIndex: 0}}
			var bgci [160]byte
			if tc.bgOpaque {
				bgci[10] = 1
			}
			out := ComposeSpriteLine(mem, sprites, 5, bgci, false)
			if tc.wantPixel {
				require.NotZero(t, out[10], "expected sprite pixel visible")
			} else {
				require.Zero(t, out[10], "expected sprite pixel hidden behind opaque BG")
			}
		})
	}
}
