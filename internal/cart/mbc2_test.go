package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("bank0 read got %02X want 00", got)
	}
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default switchable bank got %02X want 01", got)
	}

	// bank select is the low nibble written to 0x0000-0x3FFF with address bit8 set
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	// writing bank 0 remaps to 1
	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_BuiltinRAM_NibbleMasking(t *testing.T) {
	rom := make([]byte, 32*1024)
	m := NewMBC2(rom)

	// RAM disabled by default
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}

	// enable: low nibble 0x0A written with address bit8 clear
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0xF7)
	if got := m.Read(0xA000); got != 0x07 {
		t.Fatalf("RAM nibble masking failed: got %02X want 07", got)
	}

	// the 512 byte window mirrors across the whole A000-BFFF region
	m.Write(0xA200, 0x09)
	if got := m.Read(0xA000); got != 0x09 {
		t.Fatalf("mirrored write not visible at base offset: got %02X want 09", got)
	}
}

func TestMBC2_SaveLoadRAMRoundTrip(t *testing.T) {
	rom := make([]byte, 32*1024)
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A)
	m.Write(0xA010, 0x0C)

	saved := m.SaveRAM()
	if len(saved) != 512 {
		t.Fatalf("SaveRAM length = %d want 512", len(saved))
	}

	m2 := NewMBC2(rom)
	m2.Write(0x0000, 0x0A)
	m2.LoadRAM(saved)
	if got := m2.Read(0xA010); got != 0x0C {
		t.Fatalf("restored RAM got %02X want 0C", got)
	}
}

func TestMBC2_SaveLoadStateRoundTrip(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC2(rom)
	m.Write(0x2100, 0x07)
	m.Write(0x0000, 0x0A)
	m.Write(0xA005, 0x03)

	data := m.SaveState()

	m2 := NewMBC2(rom)
	m2.LoadState(data)
	if got := m2.Read(0x4000); got != rom[7*0x4000] {
		t.Fatalf("bank not restored: got %02X want %02X", got, rom[7*0x4000])
	}
	if got := m2.Read(0xA005); got != 0x03 {
		t.Fatalf("RAM not restored: got %02X want 03", got)
	}
}
