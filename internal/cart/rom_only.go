package cart

// romLimit is the end of the fixed 32 KiB ROM window every cartridge maps
// at 0x0000-0x7FFF regardless of controller; ROM-only carts have nothing
// banked in behind it.
const romLimit = 0x8000

// ROMOnly serves a single fixed ROM image with no bank switching and no
// external RAM — cartridge type 0x00, and the fallback for any header this
// module can't otherwise parse or recognize.
type ROMOnly struct {
	rom []byte
}

func NewROMOnly(rom []byte) *ROMOnly { return &ROMOnly{rom: rom} }

func (c *ROMOnly) Read(addr uint16) byte {
	if addr >= romLimit {
		return 0xFF // 0xA000-0xBFFF external RAM window: unpopulated
	}
	if int(addr) >= len(c.rom) {
		return 0xFF // ROM image shorter than the declared header size
	}
	return c.rom[addr]
}

// Write is a no-op: there's no MBC register to latch and no RAM to store to.
func (c *ROMOnly) Write(addr uint16, value byte) {}

func (c *ROMOnly) SaveState() []byte     { return nil }
func (c *ROMOnly) LoadState(data []byte) {}
