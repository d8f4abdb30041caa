package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMBC3_RTC_RolloverTable exercises second/minute/hour/day rollover and
// the 511-day carry flag across a table of wall-clock deltas.
func TestMBC3_RTC_RolloverTable(t *testing.T) {
	cases := []struct {
		name                    string
		startSec, startMin      int
		startHour, startDay     int
		deltaSeconds            int64
		wantSec, wantMin        int
		wantHour, wantDay       int
		wantCarry               bool
	}{
		{"no rollover", 10, 0, 0, 0, 5, 15, 0, 0, 0, false},
		{"minute rollover", 58, 0, 0, 0, 5, 3, 1, 0, 0, false},
		{"hour rollover", 58, 59, 0, 0, 5, 3, 0, 1, 0, false},
		{"day rollover", 58, 59, 23, 0, 5, 3, 0, 0, 1, false},
		{"511 day carry", 58, 59, 23, 0x1FF, 5, 3, 0, 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prevNow := nowUnix
			defer func() { nowUnix = prevNow }()

			nowVal := int64(1000)
			nowUnix = func() int64 { return nowVal }

			rom := make([]byte, 0x8000)
			m := NewMBC3(rom, 0x2000)
			m.rtcSec, m.rtcMin, m.rtcHour, m.rtcDay = tc.startSec, tc.startMin, tc.startHour, tc.startDay
			m.rtcHalt, m.rtcCarry = false, false
			m.lastRTCWallSec = nowVal

			nowVal += tc.deltaSeconds
			_ = m.Read(0x0000) // any RTC-path read ticks the wall-clock update

			require.Equal(t, tc.wantSec, m.rtcSec, "seconds")
			require.Equal(t, tc.wantMin, m.rtcMin, "minutes")
			require.Equal(t, tc.wantHour, m.rtcHour, "hours")
			require.Equal(t, tc.wantDay, m.rtcDay, "days")
			require.Equal(t, tc.wantCarry, m.rtcCarry, "carry")
		})
	}
}
