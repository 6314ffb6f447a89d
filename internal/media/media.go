// Package media wraps the ffmpeg and ffprobe command line tools for the
// conversion pipeline: container sniffing, stream metadata extraction and
// GIF encoding with palette generation.
package media

import "context"

// Metadata describes the video content of a probed container.
type Metadata struct {
	// Duration is the source duration in seconds. Zero means the container
	// did not report one and the caller should fall back to its own cap.
	Duration float64
	// Width and Height are display dimensions: rotation side data of an
	// odd quarter turn is already applied, matching what ffmpeg's
	// autorotation produces on decode.
	Width  int
	Height int
	// Codec is the codec name of the selected video stream.
	Codec string
	// Container is the demuxer format name reported by ffprobe.
	Container string
	// HasAudio reports whether the container carries at least one audio
	// stream. The pipeline ignores audio but logs its presence.
	HasAudio bool
}

// Prober extracts container and stream metadata without decoding frames.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// EncodeSpec describes one source-to-GIF encode attempt.
type EncodeSpec struct {
	// Input is the source video path.
	Input string
	// Palette is a scratch path for the generated palette image.
	Palette string
	// Output is the GIF destination, overwritten if present.
	Output string
	// Duration bounds the encoded clip to [0, Duration) seconds.
	Duration float64
	// Width and Height are the output frame dimensions.
	Width  int
	Height int
	// FPS is the output frame rate.
	FPS int
	// MaxColors is the palette size, at most 256.
	MaxColors int
}

// RemapSpec describes a GIF-to-GIF palette reduction. The input GIF is
// re-quantized against a smaller palette without touching the original
// source video.
type RemapSpec struct {
	// Input is an existing GIF.
	Input string
	// Palette is a scratch path for the reduced palette image.
	Palette string
	// Output is the re-encoded GIF destination, distinct from Input.
	Output string
	// MaxColors is the reduced palette size.
	MaxColors int
}

// Encoder produces animated GIF artifacts.
type Encoder interface {
	// EncodeGIF decodes the source clip and encodes it as a GIF using a
	// two-pass palette workflow.
	EncodeGIF(ctx context.Context, spec EncodeSpec) error
	// RemapPalette re-encodes an existing GIF against a smaller palette.
	RemapPalette(ctx context.Context, spec RemapSpec) error
}
