package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// LineReg is a snapshot of the registers that affect rendering, captured at
// the moment a scanline enters pixel-transfer. The scanline renderer reads
// from this snapshot rather than from live registers so that register
// writes mid-scanline behave the same whether rendering happens eagerly
// (as here) or is deferred to end-of-line.
type LineReg struct {
	LCDC, SCY, SCX, BGP, OBP0, OBP1, WY, WX byte
	WinLine                                 byte
	WindowVisible                           bool
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, scanline compositing, and
// basic timing. It exposes CPU-facing Read/Write for VRAM, OAM, and its IO
// registers.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	windowLineCounter int // -1 until the window has been drawn at least once this frame
	lineRegs          [144]LineReg

	framebuffer [144][160]byte // shade indices 0..3
	frameReady  bool

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req, windowLineCounter: -1} }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3 (return 0xFF)
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM)
			p.ly = 0
			p.dot = 0
			p.windowLineCounter = -1
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++
		// Mode scheduling
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		prevMode := p.stat & 0x03
		p.setMode(mode)
		if prevMode != 3 && mode == 3 {
			p.captureLineRegs()
		}
		if prevMode == 3 && mode == 0 {
			p.renderLine(int(p.ly))
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				// Enter VBlank
				p.frameReady = true
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
			} else if p.ly > 153 {
				p.ly = 0
				p.windowLineCounter = -1
			}
			p.updateLYC()
			// Set mode for new line start (dot=0)
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// captureLineRegs snapshots the registers that drive rendering for the
// current scanline and advances the window's internal line counter if the
// window is visible on this line.
func (p *PPU) captureLineRegs() {
	windowEnabled := p.lcdc&0x20 != 0
	visible := windowEnabled && p.ly >= p.wy && p.wx <= 166
	if visible {
		p.windowLineCounter++
	}
	winLine := p.windowLineCounter
	if winLine < 0 {
		winLine = 0
	}
	p.lineRegs[p.ly] = LineReg{
		LCDC: p.lcdc, SCY: p.scy, SCX: p.scx, BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx, WinLine: byte(winLine), WindowVisible: visible,
	}
}

// LineRegs returns the register snapshot captured for scanline y.
func (p *PPU) LineRegs(y int) LineReg {
	if y < 0 || y >= 144 {
		return LineReg{}
	}
	return p.lineRegs[y]
}

// vramReader adapts the PPU's own VRAM array to the VRAMReader interface
// expected by the scanline fetcher, translating 0x8000-based addresses.
type vramReader struct{ p *PPU }

func (v vramReader) Read(addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return v.p.vram[addr-0x8000]
}

func applyPalette(ci, palette byte) byte {
	return (palette >> (ci * 2)) & 0x03
}

// renderLine composites background, window, and sprites for scanline y into
// the framebuffer, using the register snapshot taken at mode-3 entry.
func (p *PPU) renderLine(y int) {
	if y < 0 || y >= 144 {
		return
	}
	regs := p.lineRegs[y]
	mem := vramReader{p}

	var bgci [160]byte
	if regs.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if regs.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := regs.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(mem, mapBase, tileData8000, regs.SCX, regs.SCY, byte(y))
	}

	if regs.WindowVisible {
		winMapBase := uint16(0x9800)
		if regs.LCDC&0x40 != 0 {
			winMapBase = 0x9C00
		}
		tileData8000 := regs.LCDC&0x10 != 0
		wxStart := int(regs.WX) - 7
		winRow := RenderWindowScanlineUsingFetcher(mem, winMapBase, tileData8000, wxStart, regs.WinLine)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < 160; x++ {
			bgci[x] = winRow[x]
		}
	}

	var shaded [160]byte
	for x := 0; x < 160; x++ {
		shaded[x] = applyPalette(bgci[x], regs.BGP)
	}

	if regs.LCDC&0x02 != 0 {
		sprites := p.spritesOnLine(y, regs.LCDC&0x04 != 0)
		var spriteRow [160]byte
		if regs.LCDC&0x04 != 0 {
			spriteRow = ComposeSpriteLineTall(mem, sprites, byte(y), bgci)
		} else {
			spriteRow = ComposeSpriteLine(mem, sprites, byte(y), bgci, false)
		}
		for x := 0; x < 160; x++ {
			if spriteRow[x] == 0 {
				continue
			}
			palette := regs.OBP0
			for _, s := range sprites {
				sx := int(s.X) - 8
				if x >= sx && x < sx+8 {
					if s.Attr&0x10 != 0 {
						palette = regs.OBP1
					}
					break
				}
			}
			shaded[x] = applyPalette(spriteRow[x], palette)
		}
	}

	p.framebuffer[y] = shaded
}

// spritesOnLine selects up to the hardware limit of 10 OAM entries that
// intersect scanline y, in OAM order (lowest index first).
func (p *PPU) spritesOnLine(y int, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		sy := p.oam[base]
		sx := p.oam[base+1]
		tile := p.oam[base+2]
		attr := p.oam[base+3]
		row := y - (int(sy) - 16)
		if row < 0 || row >= height {
			continue
		}
		out = append(out, Sprite{X: sx, Y: sy, Tile: tile, Attr: attr, OAMIndex: i})
	}
	return out
}

// Framebuffer returns the 144 rows of 160 shade indices (0..3) last rendered.
func (p *PPU) Framebuffer() *[144][160]byte { return &p.framebuffer }

// FrameReady reports and clears the frame_ready flag.
func (p *PPU) FrameReady() bool {
	r := p.frameReady
	p.frameReady = false
	return r
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

type ppuState struct {
	VRAM [0x2000]byte
	OAM  [0xA0]byte

	LCDC, STAT, SCY, SCX, LY, LYC, BGP, OBP0, OBP1, WY, WX byte
	Dot               int
	WindowLineCounter int
	Framebuffer       [144][160]byte
}

// SaveState/LoadState serialize all PPU-owned memory and registers. The
// per-line register cache is not persisted: it is re-derived as soon as the
// next scanline enters pixel-transfer.
func (p *PPU) SaveState() []byte {
	st := ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
		Dot: p.dot, WindowLineCounter: p.windowLineCounter, Framebuffer: p.framebuffer,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	if len(data) == 0 {
		return
	}
	var st ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return
	}
	p.vram, p.oam = st.VRAM, st.OAM
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = st.LCDC, st.STAT, st.SCY, st.SCX, st.LY, st.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = st.BGP, st.OBP0, st.OBP1, st.WY, st.WX
	p.dot, p.windowLineCounter, p.framebuffer = st.Dot, st.WindowLineCounter, st.Framebuffer
}
