package convert

import (
	"math"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/media"
)

// maxPaletteSize is the GIF format's palette ceiling and the size used for
// the first transcode attempt.
const maxPaletteSize = 256

// Targets holds the normalized encode parameters for one job.
type Targets struct {
	// Duration is the clip length in seconds, always the prefix [0, Duration).
	Duration float64
	// Width and Height are the output dimensions.
	Width  int
	Height int
	// FPS is the output frame rate.
	FPS int
}

// NormalizeTargets computes encode parameters from probed metadata and the
// policy limits. It is a pure function: no I/O, never fails, and the same
// inputs always yield the same targets.
//
// Duration is min(source, MaxClipSeconds), trimming from time 0; an unknown
// (zero) source duration falls back to the cap. Width is bounded by
// MaxOutputWidth with height scaled to preserve the exact aspect ratio, both
// rounded to the nearest even integer since most encoders reject odd
// dimensions. Sources already within the width bound pass through unchanged.
func NormalizeTargets(meta media.Metadata, limits Limits) Targets {
	t := Targets{
		Duration: meta.Duration,
		Width:    meta.Width,
		Height:   meta.Height,
		FPS:      limits.DefaultFPS,
	}

	if t.Duration <= 0 || t.Duration > limits.MaxClipSeconds {
		t.Duration = limits.MaxClipSeconds
	}

	if meta.Width > limits.MaxOutputWidth {
		t.Width = limits.MaxOutputWidth - limits.MaxOutputWidth%2
		scale := float64(t.Width) / float64(meta.Width)
		t.Height = roundEven(float64(meta.Height) * scale)
	}

	return t
}

// roundEven rounds to the nearest even integer, never below 2.
func roundEven(v float64) int {
	n := int(math.Round(v/2)) * 2
	if n < 2 {
		n = 2
	}
	return n
}
