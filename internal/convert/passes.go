package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/media"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/storage"
)

const (
	// minPassFPS is the frame-rate floor for the fps reduction pass.
	minPassFPS = 2
	// minPassWidth is the width floor for the downscale pass.
	minPassWidth = 120
	// downscaleFactor shrinks dimensions in the resize pass.
	downscaleFactor = 0.75
)

// pass is one lossy reduction attempt. The escalation order is an explicit
// list rather than nested control flow: each pass runs at most once, in
// order, and the loop in optimize is bounded by the list length.
type pass struct {
	name  string
	apply func(ctx context.Context, job *Job, ws *storage.Workspace) error
}

// reductionPasses returns the ordered escalation sequence: drop the frame
// rate first (cheapest quality loss), then shrink dimensions, then step the
// palette down. The palette passes re-encode the existing GIF without
// decoding the source again.
func (p *Pipeline) reductionPasses() []pass {
	return []pass{
		{
			name: "halve_fps",
			apply: func(ctx context.Context, job *Job, ws *storage.Workspace) error {
				fps := job.TargetFPS / 2
				if fps < minPassFPS {
					fps = minPassFPS
				}
				job.TargetFPS = fps
				return p.transcode(ctx, job, ws)
			},
		},
		{
			name: "downscale",
			apply: func(ctx context.Context, job *Job, ws *storage.Workspace) error {
				width := roundEven(float64(job.TargetWidth) * downscaleFactor)
				if width < minPassWidth {
					width = minPassWidth
				}
				if width >= job.TargetWidth {
					// Already at the width floor: re-encoding at identical
					// dimensions cannot shrink the artifact.
					return nil
				}
				// Rescale height from the same factor actually applied
				// to width, keeping the aspect ratio exact.
				scale := float64(width) / float64(job.TargetWidth)
				job.TargetHeight = roundEven(float64(job.TargetHeight) * scale)
				job.TargetWidth = width
				return p.transcode(ctx, job, ws)
			},
		},
		{
			name: "palette_128",
			apply: func(ctx context.Context, job *Job, ws *storage.Workspace) error {
				return p.remapPalette(ctx, job, ws, 128)
			},
		},
		{
			name: "palette_64",
			apply: func(ctx context.Context, job *Job, ws *storage.Workspace) error {
				return p.remapPalette(ctx, job, ws, 64)
			},
		},
	}
}

// optimize shrinks the artifact below MaxOutputBytes by applying the
// reduction passes in order until one fits or the sequence is exhausted.
// Exhaustion discards the artifact and fails the job: the contract is
// deliver within the bound or not at all.
func (p *Pipeline) optimize(ctx context.Context, job *Job, ws *storage.Workspace, log *slog.Logger) error {
	size, err := fileSize(job.OutputPath)
	if err != nil {
		return &TranscodeError{Kind: TranscodeEncodeFailure, Err: err}
	}
	if size <= p.limits.MaxOutputBytes {
		return nil
	}

	for _, pass := range p.reductionPasses() {
		log.Info("optimization pass",
			slog.String("pass", pass.name),
			slog.Int64("current_bytes", size),
			slog.Int64("limit_bytes", p.limits.MaxOutputBytes),
		)

		if err := pass.apply(ctx, job, ws); err != nil {
			return err
		}

		size, err = fileSize(job.OutputPath)
		if err != nil {
			return &TranscodeError{Kind: TranscodeEncodeFailure, Err: err}
		}
		if size <= p.limits.MaxOutputBytes {
			return nil
		}
	}

	// Still oversized: never deliver it.
	_ = os.Remove(job.OutputPath)
	job.OutputPath = ""
	return &OptimizeError{Size: size, Limit: p.limits.MaxOutputBytes}
}

// remapPalette re-encodes the current artifact against a reduced palette and
// replaces it in place.
func (p *Pipeline) remapPalette(ctx context.Context, job *Job, ws *storage.Workspace, colors int) error {
	job.PaletteSize = colors
	reduced := ws.Path(fmt.Sprintf("reduced-%d.gif", colors))
	palette := ws.Path("palette.png")

	tctx, cancel := context.WithTimeout(ctx, p.limits.TranscodeTimeout)
	defer cancel()

	err := p.encoder.RemapPalette(tctx, media.RemapSpec{
		Input:     job.OutputPath,
		Palette:   palette,
		Output:    reduced,
		MaxColors: colors,
	})
	_ = os.Remove(palette)
	if err != nil {
		_ = os.Remove(reduced)
		return classifyEncodeError(err)
	}

	// Replace, never accumulate.
	if err := os.Rename(reduced, job.OutputPath); err != nil {
		_ = os.Remove(reduced)
		return &TranscodeError{Kind: TranscodeEncodeFailure, Err: err}
	}
	return nil
}
