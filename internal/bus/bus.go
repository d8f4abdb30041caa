package bus

import (
	"os"

	"github.com/nullform/gbcore/internal/cart"
	"github.com/nullform/gbcore/internal/ppu"
)

// Bus maps the CPU's 64 KiB address space onto the cartridge, PPU, work and
// high RAM, and the IO register block. Reads and writes are routed through
// addressRegion so each region's concern (timer, joypad, serial, DMA,
// PPU registers) lives in its own file instead of one long conditional.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF; 0xE000-0xFDFF echoes 0xC000-0xDDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu *ppu.PPU

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, lower 5 bits

	joypSelect byte
	joypad     byte
	joypLower4 byte

	div             byte
	tima            byte
	tma             byte
	tac             byte
	timaReloadDelay int

	sb byte
	sc byte
	sw writer

	divInternal uint16

	dma       byte
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	bootROM     []byte
	bootEnabled bool

	debugTimer bool
}

// writer is the minimal io.Writer-shaped interface the serial port writes
// to; declared locally so serial.go doesn't need to import io just for this.
type writer interface {
	Write(p []byte) (int, error)
}

// region names one of the address-space segments Read/Write dispatch on.
type region int

const (
	regionCart region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnusable
	regionJoypad
	regionSerial
	regionTimer
	regionIF
	regionPPURegs
	regionDMA
	regionBootLock
	regionHRAM
	regionIE
	regionUnmapped
)

func addressRegion(addr uint16) region {
	switch {
	case addr < 0x8000:
		return regionCart
	case addr <= 0x9FFF:
		return regionVRAM
	case addr <= 0xBFFF:
		return regionExtRAM
	case addr <= 0xDFFF:
		return regionWRAM
	case addr <= 0xFDFF:
		return regionEcho
	case addr <= 0xFE9F:
		return regionOAM
	case addr <= 0xFEFF:
		return regionUnusable
	case addr == 0xFF00:
		return regionJoypad
	case addr == 0xFF01, addr == 0xFF02:
		return regionSerial
	case addr >= 0xFF04 && addr <= 0xFF07:
		return regionTimer
	case addr == 0xFF0F:
		return regionIF
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return regionPPURegs
	case addr == 0xFF46:
		return regionDMA
	case addr == 0xFF50:
		return regionBootLock
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return regionHRAM
	case addr == 0xFFFF:
		return regionIE
	default:
		return regionUnmapped
	}
}

// New constructs a Bus whose cartridge controller is chosen from the ROM
// header (see cart.NewCartridge).
func New(rom []byte) *Bus {
	return NewWithCartridge(cart.NewCartridge(rom))
}

// NewWithCartridge wires a caller-supplied cartridge implementation (any MBC).
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c}
	b.ppu = ppu.New(func(bit int) { b.ifReg |= 1 << bit })
	if os.Getenv("GB_DEBUG_TIMER") != "" {
		b.debugTimer = true
	}
	return b
}

// PPU exposes the PPU for rendering consumers without leaking bus internals.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Cart exposes the cartridge for battery/save-state consumers.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

func (b *Bus) Read(addr uint16) byte {
	switch addressRegion(addr) {
	case regionCart:
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case regionVRAM:
		return b.ppu.CPURead(addr)
	case regionExtRAM:
		return b.cart.Read(addr)
	case regionWRAM:
		return b.wram[addr-0xC000]
	case regionEcho:
		mirror := addr - 0x2000
		return b.wram[mirror-0xC000]
	case regionOAM:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case regionJoypad:
		return b.readJoypad()
	case regionSerial:
		return b.readSerial(addr)
	case regionTimer:
		return b.readTimer(addr)
	case regionIF:
		return 0xE0 | (b.ifReg & 0x1F)
	case regionPPURegs:
		return b.ppu.CPURead(addr)
	case regionDMA:
		return b.dma
	case regionBootLock:
		return 0xFF
	case regionHRAM:
		return b.hram[addr-0xFF80]
	case regionIE:
		return b.ie
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch addressRegion(addr) {
	case regionCart:
		b.cart.Write(addr, value)
	case regionVRAM:
		b.ppu.CPUWrite(addr, value)
	case regionExtRAM:
		b.cart.Write(addr, value)
	case regionWRAM:
		b.wram[addr-0xC000] = value
	case regionEcho:
		mirror := addr - 0x2000
		if mirror >= 0xC000 && mirror <= 0xDDFF {
			b.wram[mirror-0xC000] = value
		}
	case regionOAM:
		if !b.dmaActive {
			b.ppu.CPUWrite(addr, value)
		}
	case regionJoypad:
		b.writeJoypad(value)
	case regionSerial:
		b.writeSerial(addr, value)
	case regionTimer:
		b.writeTimer(addr, value)
	case regionIF:
		b.ifReg = value & 0x1F
	case regionPPURegs:
		b.ppu.CPUWrite(addr, value)
	case regionDMA:
		b.startDMA(value)
	case regionBootLock:
		if value != 0x00 {
			b.bootEnabled = false
		}
	case regionHRAM:
		b.hram[addr-0xFF80] = value
	case regionIE:
		b.ie = value
	}
}

// SetBootROM loads a DMG boot ROM overlaying 0x0000-0x00FF until a non-zero
// write to 0xFF50 disables it.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// Tick advances every bus-owned subsystem (timer, PPU, OAM DMA) by cycles
// T-cycles, one at a time so the timer's falling-edge detection and the
// DMA's one-byte-per-cycle pacing stay exact.
func (b *Bus) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		b.tickTimer()
		if b.ppu != nil {
			b.ppu.Tick(1)
		}
		b.tickDMA()
	}
}
