package ui

// Config contains window/input/audio settings for the ebiten host. This
// package only presents frames, plays audio, and forwards keyboard input —
// it never inspects save-state or cartridge internals itself.
type Config struct {
	Title       string // window title
	Scale       int    // integer upscaling factor
	AudioStereo bool   // true: stereo output; false: fold to mono
	SampleRate  int    // host audio sample rate in Hz
	UseFetcherBG bool  // render BG via the scanline fetcher path
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
}
