// Package convert implements the video-to-GIF conversion pipeline: input
// validation, metadata probing, target normalization, transcoding, output
// size optimization and temp artifact cleanup, executed strictly in that
// order for each job.
package convert

import "time"

// Limits is the read-only policy for one conversion. It is injected into the
// pipeline at construction so tests and the transport layer can override it;
// jobs never mutate it.
type Limits struct {
	// MaxInputBytes is the largest accepted source file.
	MaxInputBytes int64
	// MaxClipSeconds caps the output duration. Sources longer than this are
	// trimmed to the prefix [0, MaxClipSeconds).
	MaxClipSeconds float64
	// MaxOutputWidth caps the output width in pixels; height scales
	// proportionally.
	MaxOutputWidth int
	// MaxOutputBytes is the hard ceiling on the produced GIF. The pipeline
	// fails rather than deliver a larger artifact.
	MaxOutputBytes int64
	// DefaultFPS is the frame rate of the first transcode attempt.
	DefaultFPS int
	// TranscodeTimeout is the wall-clock budget for each transcode or
	// re-encode invocation.
	TranscodeTimeout time.Duration
}

// DefaultLimits returns the stock policy: 50MB in, 10MB out, 10 second clips
// at 480px wide and 15 fps, two minutes per transcode.
func DefaultLimits() Limits {
	return Limits{
		MaxInputBytes:    50 << 20,
		MaxClipSeconds:   10,
		MaxOutputWidth:   480,
		MaxOutputBytes:   10 << 20,
		DefaultFPS:       15,
		TranscodeTimeout: 2 * time.Minute,
	}
}
