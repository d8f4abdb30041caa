package cart

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F
	logoOffset  = 0x0104
	logoLen     = 48
)

// nintendoLogo is the fixed 48-byte bitmap every licensed ROM carries at
// 0x0104-0x0133; the boot ROM refuses to run a cart whose copy doesn't match.
var nintendoLogo = [logoLen]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the decoded form of the 0x0100-0x014F cartridge header.
type Header struct {
	Title          string // trimmed ASCII, 0x0134-0x0143
	CGBFlag        byte   // 0x0143
	NewLicensee    string // 0x0144-0x0145, meaningful only when OldLicensee==0x33
	SGBFlag        byte   // 0x0146
	CartType       byte   // 0x0147
	ROMSizeCode    byte   // 0x0148
	RAMSizeCode    byte   // 0x0149
	Destination    byte   // 0x014A
	OldLicensee    byte   // 0x014B
	ROMVersion     byte   // 0x014C
	HeaderChecksum byte   // 0x014D
	GlobalChecksum uint16 // 0x014E-0x014F
	LogoValid      bool   // whether 0x0104-0x0133 matches nintendoLogo

	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
}

// ParseHeader decodes the header fields out of rom without validating the
// header checksum (see HeaderChecksumOK for that); an invalid Nintendo logo
// is recorded in LogoValid rather than treated as a parse failure, since
// homebrew and test ROMs routinely omit it.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, errors.New("ROM too small to contain header")
	}

	logoValid := true
	for i, want := range nintendoLogo {
		if rom[logoOffset+i] != want {
			logoValid = false
			break
		}
	}

	title := strings.TrimRight(string(rom[0x0134:0x0144]), "\x00")

	h := &Header{
		Title:          title,
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
		LogoValid:      logoValid,
	}

	h.ROMSizeBytes, h.ROMBanks = decodeROMSize(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.RAMSizeCode)
	h.CartTypeStr = cartTypeString(h.CartType)

	return h, nil
}

// HeaderChecksumOK recomputes the 0x014D header checksum (sum of
// 0x0134-0x014C, each byte subtracted and decremented) and compares it
// against the stored value.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum == rom[0x014D]
}

type romSizeEntry struct {
	bytes int
	banks int
}

// romSizeTable maps the 0x0148 size code to total ROM bytes and 16 KiB bank
// count; 0x52-0x54 are the three non-power-of-two codes some older titles use.
var romSizeTable = map[byte]romSizeEntry{
	0x00: {32 * 1024, 2},
	0x01: {64 * 1024, 4},
	0x02: {128 * 1024, 8},
	0x03: {256 * 1024, 16},
	0x04: {512 * 1024, 32},
	0x05: {1 * 1024 * 1024, 64},
	0x06: {2 * 1024 * 1024, 128},
	0x07: {4 * 1024 * 1024, 256},
	0x08: {8 * 1024 * 1024, 512},
	0x52: {1152 * 1024, 72},
	0x53: {1280 * 1024, 80},
	0x54: {1536 * 1024, 96},
}

func decodeROMSize(code byte) (size, banks int) {
	if e, ok := romSizeTable[code]; ok {
		return e.bytes, e.banks
	}
	return 0, 0
}

// ramSizeTable maps the 0x0149 size code to external RAM bytes.
var ramSizeTable = map[byte]int{
	0x00: 0,
	0x01: 2 * 1024,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// decodeRAMSize maps a header RAM-size code to bytes, warning and defaulting
// to 32 KiB for any code this module doesn't recognize.
func decodeRAMSize(code byte) int {
	if size, ok := ramSizeTable[code]; ok {
		return size
	}
	slog.Warn("unsupported RAM size code, defaulting to 32 KiB", "ram_size_code", code)
	return 32 * 1024
}

// cartTypeNames gives a human-readable family label for logging; it mirrors
// the dispatch table in cart.go but isn't used to drive construction, so a
// gap here only affects log output, never behavior.
var cartTypeNames = map[byte]string{
	0x00: "ROM ONLY",
	0x01: "MBC1 (variants)", 0x02: "MBC1 (variants)", 0x03: "MBC1 (variants)",
	0x05: "MBC2 (variants)", 0x06: "MBC2 (variants)",
	0x0F: "MBC3 (variants)", 0x10: "MBC3 (variants)", 0x11: "MBC3 (variants)",
	0x12: "MBC3 (variants)", 0x13: "MBC3 (variants)",
	0x19: "MBC5 (variants)", 0x1A: "MBC5 (variants)", 0x1B: "MBC5 (variants)",
	0x1C: "MBC5 (variants)", 0x1D: "MBC5 (variants)", 0x1E: "MBC5 (variants)",
}

func cartTypeString(code byte) string {
	if name, ok := cartTypeNames[code]; ok {
		return name
	}
	return "Other/unknown"
}
