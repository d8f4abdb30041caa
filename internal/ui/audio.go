package ui

import (
	"encoding/binary"
	"time"

	"github.com/nullform/gbcore/internal/emu"
)

// applyPlayerBufferSize sets the audio player's internal buffer; a smaller
// buffer trades underrun risk for lower input-to-sound latency.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := 40
	if a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

// apuStream implements io.Reader by pulling PCM frames from the emulator's
// APU and converting them to 16-bit little-endian stereo samples for ebiten's
// audio player.
type apuStream struct {
	m          *emu.Machine
	mono       bool
	muted      *bool
	sampleRate int

	underruns  int
	lastWant   int
	lastPulled int
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) == 0 || s == nil || s.m == nil {
		return 0, nil
	}
	if len(p) < 4 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	if s.muted != nil && *s.muted {
		for i := range p {
			p[i] = 0
		}
		time.Sleep(5 * time.Millisecond)
		return len(p), nil
	}

	maxReq := len(p) / 4
	capFrames := 2048 // ~46ms at 44.1kHz
	if maxReq > capFrames {
		maxReq = capFrames
	}

	deadline := time.Now().Add(15 * time.Millisecond)
	want := maxReq
	if buf := s.m.APUBufferedStereo(); buf > 0 {
		if buf < want {
			want = buf
		}
	} else {
		for time.Now().Before(deadline) {
			if b := s.m.APUBufferedStereo(); b > 0 {
				want = b
				if want > maxReq {
					want = maxReq
				}
				break
			}
			time.Sleep(1 * time.Millisecond)
		}
	}
	if want <= 0 {
		silenceFrames := 256
		if silenceFrames > maxReq {
			silenceFrames = maxReq
		}
		for i := 0; i < silenceFrames*4 && i+3 < len(p); i += 4 {
			binary.LittleEndian.PutUint16(p[i:], 0)
			binary.LittleEndian.PutUint16(p[i+2:], 0)
		}
		s.underruns++
		s.lastWant, s.lastPulled = silenceFrames, silenceFrames
		return silenceFrames * 4, nil
	}

	pulled, i := 0, 0
	for pulled < want {
		frames := s.m.APUPullStereo(want - pulled)
		if len(frames) == 0 {
			break
		}
		for j := 0; j+1 < len(frames) && i+3 < len(p); j += 2 {
			l, r := frames[j], frames[j+1]
			if s.mono {
				avg := uint16((int32(l) + int32(r)) / 2)
				binary.LittleEndian.PutUint16(p[i:], avg)
				binary.LittleEndian.PutUint16(p[i+2:], avg)
			} else {
				binary.LittleEndian.PutUint16(p[i:], uint16(l))
				binary.LittleEndian.PutUint16(p[i+2:], uint16(r))
			}
			i += 4
			pulled++
		}
	}
	if pulled == 0 {
		silenceFrames := 128
		if silenceFrames > maxReq {
			silenceFrames = maxReq
		}
		for k := 0; k < silenceFrames*4 && k+3 < len(p); k += 4 {
			binary.LittleEndian.PutUint16(p[k:], 0)
			binary.LittleEndian.PutUint16(p[k+2:], 0)
		}
		s.underruns++
		s.lastWant, s.lastPulled = silenceFrames, silenceFrames
		return silenceFrames * 4, nil
	}
	s.lastWant, s.lastPulled = want, pulled
	return pulled * 4, nil
}
