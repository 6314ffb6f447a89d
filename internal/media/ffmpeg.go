package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Static errors for encoder input validation.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrInvalidFPS is returned when the frame rate is not positive.
	ErrInvalidFPS = errors.New("invalid fps: must be positive")
	// ErrInvalidPalette is returned when the palette size is out of range.
	ErrInvalidPalette = errors.New("invalid palette size: must be between 2 and 256")
)

// Phase identifies which half of a two-pass encode failed.
type Phase string

const (
	// PhaseAnalyze is the palette generation pass, which decodes the input.
	PhaseAnalyze Phase = "analyze"
	// PhaseEncode is the palette mapping pass, which writes the GIF.
	PhaseEncode Phase = "encode"
)

// EncodeError reports a failed encode attempt together with the pass that
// produced it, so callers can distinguish decode failures from encode failures.
type EncodeError struct {
	Phase Phase
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("gif %s pass: %v", e.Phase, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Compile-time check that FFmpegEncoder implements Encoder.
var _ Encoder = (*FFmpegEncoder)(nil)

// FFmpegEncoder implements Encoder using the ffmpeg CLI.
type FFmpegEncoder struct {
	// binary is the path to the ffmpeg binary. Defaults to "ffmpeg".
	binary string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// If binary is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEncoder(binary string) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{binary: binary}
}

// EncodeGIF converts the leading spec.Duration seconds of the source into a
// GIF at the requested dimensions and frame rate. GIF quality depends heavily
// on the palette, so encoding is done in two passes: palettegen analyzes the
// decoded frames, paletteuse maps them onto the generated palette.
func (e *FFmpegEncoder) EncodeGIF(ctx context.Context, spec EncodeSpec) error {
	if err := validateEncodeSpec(spec); err != nil {
		return err
	}

	filters := fmt.Sprintf("fps=%d,scale=%d:%d:flags=lanczos", spec.FPS, spec.Width, spec.Height)

	analyzeArgs := []string{
		"-y",
		"-t", fmt.Sprintf("%.3f", spec.Duration),
		"-i", spec.Input,
		"-vf", fmt.Sprintf("%s,palettegen=max_colors=%d:stats_mode=diff", filters, spec.MaxColors),
		"-frames:v", "1",
		spec.Palette,
	}
	if err := e.runFFmpeg(ctx, analyzeArgs); err != nil {
		return &EncodeError{Phase: PhaseAnalyze, Err: err}
	}

	encodeArgs := []string{
		"-y",
		"-t", fmt.Sprintf("%.3f", spec.Duration),
		"-i", spec.Input,
		"-i", spec.Palette,
		"-lavfi", fmt.Sprintf("%s [x]; [x][1:v] paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle", filters),
		"-loop", "0",
		spec.Output,
	}
	if err := e.runFFmpeg(ctx, encodeArgs); err != nil {
		return &EncodeError{Phase: PhaseEncode, Err: err}
	}

	return nil
}

// RemapPalette re-quantizes an existing GIF against a palette of
// spec.MaxColors colors. Only the GIF itself is read; the original source
// video is not decoded again.
func (e *FFmpegEncoder) RemapPalette(ctx context.Context, spec RemapSpec) error {
	if spec.MaxColors < 2 || spec.MaxColors > 256 {
		return fmt.Errorf("%w: got %d", ErrInvalidPalette, spec.MaxColors)
	}

	analyzeArgs := []string{
		"-y",
		"-i", spec.Input,
		"-vf", fmt.Sprintf("palettegen=max_colors=%d:stats_mode=diff", spec.MaxColors),
		"-frames:v", "1",
		spec.Palette,
	}
	if err := e.runFFmpeg(ctx, analyzeArgs); err != nil {
		return &EncodeError{Phase: PhaseAnalyze, Err: err}
	}

	encodeArgs := []string{
		"-y",
		"-i", spec.Input,
		"-i", spec.Palette,
		"-lavfi", "[0:v][1:v] paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle",
		"-loop", "0",
		spec.Output,
	}
	if err := e.runFFmpeg(ctx, encodeArgs); err != nil {
		return &EncodeError{Phase: PhaseEncode, Err: err}
	}

	return nil
}

func validateEncodeSpec(spec EncodeSpec) error {
	if spec.Duration <= 0 {
		return fmt.Errorf("%w: got %.3f", ErrInvalidDuration, spec.Duration)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, spec.Width, spec.Height)
	}
	if spec.FPS <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFPS, spec.FPS)
	}
	if spec.MaxColors < 2 || spec.MaxColors > 256 {
		return fmt.Errorf("%w: got %d", ErrInvalidPalette, spec.MaxColors)
	}
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (e *FFmpegEncoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - binary is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled or timed out
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}
