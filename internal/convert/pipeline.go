package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/media"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/storage"
)

// Source is a locally materialized input video handed to the pipeline by the
// transport layer.
type Source struct {
	// Path is the readable video file on local storage.
	Path string
	// SizeBytes is the declared size of the file.
	SizeBytes int64
}

// Result is a successful conversion outcome. The output artifact lives in the
// job workspace handed to Convert; it is the caller's responsibility to
// consume it before releasing the workspace.
type Result struct {
	// JobID identifies the conversion.
	JobID string
	// OutputPath is the produced GIF.
	OutputPath string
	// OutputSizeBytes is its size, guaranteed ≤ Limits.MaxOutputBytes.
	OutputSizeBytes int64
	// Duration, Width, Height and FPS are the structural parameters of the
	// artifact as encoded.
	Duration float64
	Width    int
	Height   int
	FPS      int
}

// Pipeline converts videos to size-bounded GIFs. It is safe for concurrent
// use: all per-job state lives in the Job, and Limits are read-only.
type Pipeline struct {
	prober  media.Prober
	encoder media.Encoder
	limits  Limits
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline with the given stage dependencies and policy.
func NewPipeline(prober media.Prober, encoder media.Encoder, limits Limits, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		prober:  prober,
		encoder: encoder,
		limits:  limits,
		logger:  logger,
	}
}

// Limits returns the policy the pipeline was constructed with.
func (p *Pipeline) Limits() Limits {
	return p.limits
}

// Convert runs the full pipeline for one source file:
// validate → probe → normalize → transcode → optimize.
//
// All artifacts the pipeline itself produces are written into ws; Convert
// removes its intermediates as it goes, and the caller's ws.Release (which
// must be deferred around the whole job, source download included) guarantees
// nothing survives the job regardless of outcome. On failure the returned
// error is exactly one of ValidationError, ProbeError, TranscodeError or
// OptimizeError.
func (p *Pipeline) Convert(ctx context.Context, ws *storage.Workspace, src Source) (*Result, error) {
	job := NewJob(src.Path, src.SizeBytes)
	log := p.logger.With(slog.String("job_id", job.ID))

	log.Info("conversion started",
		slog.String("source", src.Path),
		slog.Int64("source_bytes", src.SizeBytes),
	)

	if err := p.validate(job); err != nil {
		return nil, p.fail(job, log, err)
	}
	p.advance(job, log, StatusValidated)

	if err := p.probe(ctx, job, log); err != nil {
		return nil, p.fail(job, log, err)
	}
	p.advance(job, log, StatusProbed)

	p.normalize(job, log)
	p.advance(job, log, StatusNormalized)

	if err := p.transcode(ctx, job, ws); err != nil {
		return nil, p.fail(job, log, err)
	}
	p.advance(job, log, StatusTranscoded)

	if err := p.optimize(ctx, job, ws, log); err != nil {
		return nil, p.fail(job, log, err)
	}
	p.advance(job, log, StatusOptimized)

	size, err := fileSize(job.OutputPath)
	if err != nil {
		return nil, p.fail(job, log, &TranscodeError{Kind: TranscodeEncodeFailure, Err: err})
	}
	p.advance(job, log, StatusCompleted)

	log.Info("conversion completed",
		slog.Int64("output_bytes", size),
		slog.Float64("duration_s", job.TargetDuration),
		slog.Int("width", job.TargetWidth),
		slog.Int("height", job.TargetHeight),
		slog.Int("fps", job.TargetFPS),
	)

	return &Result{
		JobID:           job.ID,
		OutputPath:      job.OutputPath,
		OutputSizeBytes: size,
		Duration:        job.TargetDuration,
		Width:           job.TargetWidth,
		Height:          job.TargetHeight,
		FPS:             job.TargetFPS,
	}, nil
}

// validate checks the declared size and sniffs the container header. The
// source file is never modified.
func (p *Pipeline) validate(job *Job) error {
	if job.SourceSizeBytes > p.limits.MaxInputBytes {
		return &ValidationError{
			Kind: ValidationTooLarge,
			Err:  fmt.Errorf("%d bytes exceeds limit of %d", job.SourceSizeBytes, p.limits.MaxInputBytes),
		}
	}

	if _, err := os.Stat(job.SourcePath); err != nil {
		return &ValidationError{Kind: ValidationUnreadable, Err: err}
	}

	if _, err := media.DetectVideo(job.SourcePath); err != nil {
		if errors.Is(err, media.ErrUnknownFormat) {
			return &ValidationError{Kind: ValidationUnsupportedFormat, Err: err}
		}
		return &ValidationError{Kind: ValidationUnreadable, Err: err}
	}

	return nil
}

// probe extracts duration and display dimensions from container metadata.
func (p *Pipeline) probe(ctx context.Context, job *Job, log *slog.Logger) error {
	meta, err := p.prober.Probe(ctx, job.SourcePath)
	if err != nil {
		if errors.Is(err, media.ErrNoVideoStream) {
			return &ProbeError{Kind: ProbeNoVideoStream, Err: err}
		}
		return &ProbeError{Kind: ProbeCorruptContainer, Err: err}
	}

	job.SourceDuration = meta.Duration
	job.SourceWidth = meta.Width
	job.SourceHeight = meta.Height

	log.Info("source probed",
		slog.Float64("duration_s", meta.Duration),
		slog.Int("width", meta.Width),
		slog.Int("height", meta.Height),
		slog.String("codec", meta.Codec),
		slog.String("container", meta.Container),
		slog.Bool("has_audio", meta.HasAudio),
	)

	return nil
}

// normalize computes the target parameters. Pure; never fails.
func (p *Pipeline) normalize(job *Job, log *slog.Logger) {
	meta := media.Metadata{
		Duration: job.SourceDuration,
		Width:    job.SourceWidth,
		Height:   job.SourceHeight,
	}
	targets := NormalizeTargets(meta, p.limits)

	job.TargetDuration = targets.Duration
	job.TargetWidth = targets.Width
	job.TargetHeight = targets.Height
	job.TargetFPS = targets.FPS
	job.PaletteSize = maxPaletteSize

	log.Info("targets normalized",
		slog.Float64("duration_s", targets.Duration),
		slog.Int("width", targets.Width),
		slog.Int("height", targets.Height),
		slog.Int("fps", targets.FPS),
	)
}

// transcode produces the GIF artifact from the source at the job's current
// target parameters, discarding any artifact from a prior attempt first.
// Each invocation runs under its own wall-clock budget.
func (p *Pipeline) transcode(ctx context.Context, job *Job, ws *storage.Workspace) error {
	output := ws.Path("output.gif")
	palette := ws.Path("palette.png")
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return &TranscodeError{Kind: TranscodeEncodeFailure, Err: err}
	}

	tctx, cancel := context.WithTimeout(ctx, p.limits.TranscodeTimeout)
	defer cancel()

	err := p.encoder.EncodeGIF(tctx, media.EncodeSpec{
		Input:     job.SourcePath,
		Palette:   palette,
		Output:    output,
		Duration:  job.TargetDuration,
		Width:     job.TargetWidth,
		Height:    job.TargetHeight,
		FPS:       job.TargetFPS,
		MaxColors: job.PaletteSize,
	})
	_ = os.Remove(palette)
	if err != nil {
		return classifyEncodeError(err)
	}

	job.OutputPath = output
	return nil
}

// classifyEncodeError maps encoder failures onto the transcode taxonomy.
func classifyEncodeError(err error) *TranscodeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TranscodeError{Kind: TranscodeTimeout, Err: err}
	}
	var encErr *media.EncodeError
	if errors.As(err, &encErr) && encErr.Phase == media.PhaseAnalyze {
		return &TranscodeError{Kind: TranscodeDecodeFailure, Err: err}
	}
	return &TranscodeError{Kind: TranscodeEncodeFailure, Err: err}
}

// advance moves the job forward and logs the transition. Transitions are
// driven only by Convert in pipeline order, so a refusal is a programming
// error worth surfacing loudly in logs.
func (p *Pipeline) advance(job *Job, log *slog.Logger, status Status) {
	if err := job.TransitionTo(status); err != nil {
		log.Error("stage transition refused",
			slog.String("from", string(job.Status)),
			slog.String("to", string(status)),
		)
		return
	}
	log.Debug("stage transition", slog.String("status", string(status)))
}

// fail marks the job failed and returns the causing error unchanged.
func (p *Pipeline) fail(job *Job, log *slog.Logger, err error) error {
	_ = job.Fail(err.Error())
	log.Warn("conversion failed",
		slog.String("status", string(job.Status)),
		slog.String("error", err.Error()),
	)
	return err
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	return info.Size(), nil
}
