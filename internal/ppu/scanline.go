package ppu

// tileRow walks a sequence of 8-pixel tile fetches across a 32-tile-wide map
// row, writing color indices into out[fromX:toX) and refilling the fifo
// whenever it runs dry. BG and window scanlines are the same walk over
// different starting coordinates, so both render functions below share it.
func tileRow(mem VRAMReader, mapBase uint16, tileData8000 bool, mapY, startTileX uint16, fineY byte, fromX, toX int, out *[160]byte) {
	var q fifo
	f := newBGFetcher(mem, &q)
	tileX := startTileX

	refill := func() {
		tileIndexAddr := mapBase + mapY*32 + tileX
		f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
		f.Fetch()
	}
	refill()

	for x := fromX; x < toX; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			refill()
		}
		px, _ := q.Pop()
		out[x] = px
	}
}

// RenderBGScanlineUsingFetcher renders 160 BG color indices (0-3) for
// scanline ly, given the active tilemap base, addressing mode, and scroll
// registers. The leading scx&7 pixels of the first tile are discarded so the
// output is already scroll-aligned.
func RenderBGScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [160]byte {
	var out [160]byte

	bgY := uint16(ly) + uint16(scy)
	fineY := byte(bgY & 7)
	mapY := (bgY >> 3) & 31

	startX := uint16(scx)
	tileX := (startX >> 3) & 31
	fineX := int(startX & 7)

	// Fetch the partial leading tile separately so its discarded pixels
	// don't need a fromX offset inside tileRow's main walk.
	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(mapBase, tileData8000, mapBase+mapY*32+tileX, fineY)
	f.Fetch()
	for i := 0; i < fineX; i++ {
		_, _ = q.Pop()
	}
	x := 0
	for ; q.Len() > 0 && x < 160; x++ {
		px, _ := q.Pop()
		out[x] = px
	}

	tileRow(mem, mapBase, tileData8000, mapY, (tileX+1)&31, fineY, x, 160, &out)
	return out
}

// RenderWindowScanlineUsingFetcher renders the window layer for a scanline,
// filling out[wxStart:160) with color indices and leaving pixels before
// wxStart at 0 so the caller can blend window-over-BG starting at WX-7.
func RenderWindowScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, wxStart int, winLine byte) [160]byte {
	var out [160]byte
	if wxStart >= 160 {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}

	mapY := (uint16(winLine) >> 3) & 31
	fineY := winLine & 7

	tileRow(mem, mapBase, tileData8000, mapY, 0, fineY, wxStart, 160, &out)
	return out
}
