package cart

import "log/slog"

// Cartridge defines the minimal interface the Bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
	// SaveState/LoadState serialize internal banking registers and external RAM for save states.
	SaveState() []byte
	LoadState(data []byte)
}

// BatteryBacked is an optional interface for cartridges with external RAM to be persisted.
// Implementations should return a copy of RAM bytes (may be empty if no RAM), and accept data to load.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// cartFactory builds a Cartridge from the ROM image and the RAM size the
// header declared; ROM-only and MBC2 ignore the latter (MBC2's RAM is a
// fixed 512x4-bit array, ROM-only has none).
type cartFactory func(rom []byte, ramSize int) Cartridge

// mbcFamilies maps every cartridge-type byte the header can carry to the
// controller family that implements it. Listing each byte explicitly (rather
// than range-testing 0x01<=t<=0x03 etc.) keeps the unassigned bytes between
// families — 0x04, 0x07-0x0E, 0x14-0x18, 0x1F-0xFC — falling through to the
// "unknown" warning instead of silently matching a neighboring family.
var mbcFamilies = map[byte]cartFactory{
	0x00: func(rom []byte, _ int) Cartridge { return NewROMOnly(rom) },

	0x01: func(rom []byte, ram int) Cartridge { return NewMBC1(rom, ram) },
	0x02: func(rom []byte, ram int) Cartridge { return NewMBC1(rom, ram) },
	0x03: func(rom []byte, ram int) Cartridge { return NewMBC1(rom, ram) },

	0x05: func(rom []byte, _ int) Cartridge { return NewMBC2(rom) },
	0x06: func(rom []byte, _ int) Cartridge { return NewMBC2(rom) },

	0x0F: func(rom []byte, ram int) Cartridge { return NewMBC3(rom, ram) },
	0x10: func(rom []byte, ram int) Cartridge { return NewMBC3(rom, ram) },
	0x11: func(rom []byte, ram int) Cartridge { return NewMBC3(rom, ram) },
	0x12: func(rom []byte, ram int) Cartridge { return NewMBC3(rom, ram) },
	0x13: func(rom []byte, ram int) Cartridge { return NewMBC3(rom, ram) },

	0x19: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
	0x1A: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
	0x1B: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
	0x1C: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
	0x1D: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
	0x1E: func(rom []byte, ram int) Cartridge { return NewMBC5(rom, ram) },
}

// NewCartridge picks an implementation based on the ROM header, falling back
// to ROM-only (and logging why) when the header can't be parsed or names a
// cartridge type this module doesn't implement.
func NewCartridge(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		slog.Warn("cartridge header parse failed, falling back to ROM-only", "error", err)
		return NewROMOnly(rom)
	}
	if build, ok := mbcFamilies[h.CartType]; ok {
		return build(rom, h.RAMSizeBytes)
	}
	slog.Warn("unknown cartridge type, falling back to ROM-only", "cart_type", h.CartType)
	return NewROMOnly(rom)
}
