package emu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSaveStateEnvelope_RoundTripAcrossCartridgeTypes exercises the GBSTATE
// envelope against every MBC family the core supports, since each backs a
// structurally different SaveState blob (RTC fields for MBC3, wide bank
// registers for MBC5, fixed nibble RAM for MBC2).
func TestSaveStateEnvelope_RoundTripAcrossCartridgeTypes(t *testing.T) {
	cases := []struct {
		name                        string
		cartType, romSize, ramSize byte
		romBytes                   int
	}{
		{"rom-only", 0x00, 0x00, 0x00, 32 * 1024},
		{"mbc1+ram+battery", 0x03, 0x02, 0x02, 128 * 1024},
		{"mbc2+battery", 0x06, 0x01, 0x00, 64 * 1024},
		{"mbc3+rtc+ram+battery", 0x10, 0x01, 0x02, 64 * 1024},
		{"mbc5+ram+battery", 0x1B, 0x02, 0x03, 128 * 1024},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rom := buildROM(tc.cartType, tc.romSize, tc.ramSize, tc.romBytes)

			m := New(Config{})
			require.NoError(t, m.LoadCartridge(rom, nil))
			m.StepFrame()

			data, err := m.SaveState()
			require.NoError(t, err)
			require.Greater(t, len(data), len(saveStateMagic))

			m2 := New(Config{})
			require.NoError(t, m2.LoadCartridge(rom, nil))
			require.NoError(t, m2.LoadState(data))
			require.Len(t, m2.Framebuffer(), screenW*screenH*4)
		})
	}
}
