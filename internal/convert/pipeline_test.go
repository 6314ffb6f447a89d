package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/media"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/storage"
)

// writeFakeMP4 writes a file whose header sniffs as an MP4 container.
func writeFakeMP4(t *testing.T, path string, size int64) {
	t.Helper()
	data := make([]byte, size)
	copy(data, []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'})
	require.NoError(t, os.WriteFile(path, data, 0600))
}

type fakeProber struct {
	meta  media.Metadata
	err   error
	calls int
}

func (f *fakeProber) Probe(_ context.Context, _ string) (media.Metadata, error) {
	f.calls++
	if f.err != nil {
		return media.Metadata{}, f.err
	}
	return f.meta, nil
}

// fakeEncoder writes artifacts of scripted sizes instead of invoking ffmpeg,
// recording every call so tests can assert on the escalation sequence.
type fakeEncoder struct {
	encodeSizes []int64
	remapSizes  []int64
	encodeErr   error
	remapErr    error
	encodeCalls []media.EncodeSpec
	remapCalls  []media.RemapSpec
}

func (f *fakeEncoder) EncodeGIF(_ context.Context, spec media.EncodeSpec) error {
	f.encodeCalls = append(f.encodeCalls, spec)
	if f.encodeErr != nil {
		return f.encodeErr
	}
	size := f.encodeSizes[len(f.encodeCalls)-1]
	return os.WriteFile(spec.Output, make([]byte, size), 0600)
}

func (f *fakeEncoder) RemapPalette(_ context.Context, spec media.RemapSpec) error {
	f.remapCalls = append(f.remapCalls, spec)
	if f.remapErr != nil {
		return f.remapErr
	}
	size := f.remapSizes[len(f.remapCalls)-1]
	return os.WriteFile(spec.Output, make([]byte, size), 0600)
}

func testWorkspace(t *testing.T) *storage.Workspace {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ws, err := store.NewWorkspace("test")
	require.NoError(t, err)
	return ws
}

func testLimits() Limits {
	l := DefaultLimits()
	l.MaxOutputBytes = 5000
	return l
}

func TestPipeline_Convert_HappyPath(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 2048)

	prober := &fakeProber{meta: media.Metadata{Duration: 5, Width: 320, Height: 240}}
	encoder := &fakeEncoder{encodeSizes: []int64{1000}}
	p := NewPipeline(prober, encoder, testLimits(), nil)

	result, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 2048})
	require.NoError(t, err)

	assert.NotEmpty(t, result.JobID)
	assert.Equal(t, int64(1000), result.OutputSizeBytes)
	assert.Equal(t, 5.0, result.Duration)
	assert.Equal(t, 320, result.Width)
	assert.Equal(t, 240, result.Height)
	assert.Equal(t, 15, result.FPS)
	assert.FileExists(t, result.OutputPath)

	// Within the size bound: no optimization passes run.
	require.Len(t, encoder.encodeCalls, 1)
	assert.Empty(t, encoder.remapCalls)
	spec := encoder.encodeCalls[0]
	assert.Equal(t, 5.0, spec.Duration)
	assert.Equal(t, 15, spec.FPS)
	assert.Equal(t, 256, spec.MaxColors)
}

func TestPipeline_Convert_RejectsOversizeBeforeProbe(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{meta: media.Metadata{Duration: 5, Width: 320, Height: 240}}
	encoder := &fakeEncoder{}
	limits := testLimits()
	limits.MaxInputBytes = 20 << 20
	p := NewPipeline(prober, encoder, limits, nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 25 << 20})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, ValidationTooLarge, validationErr.Kind)
	assert.Zero(t, prober.calls, "probe must not run after validation failure")
	assert.Empty(t, encoder.encodeCalls)
}

func TestPipeline_Convert_UnsupportedFormat(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	require.NoError(t, os.WriteFile(src, []byte("this is not a video at all"), 0600))

	p := NewPipeline(&fakeProber{}, &fakeEncoder{}, testLimits(), nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 26})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, ValidationUnsupportedFormat, validationErr.Kind)
}

func TestPipeline_Convert_UnreadableSource(t *testing.T) {
	ws := testWorkspace(t)

	p := NewPipeline(&fakeProber{}, &fakeEncoder{}, testLimits(), nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: ws.Path("missing.bin"), SizeBytes: 10})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, ValidationUnreadable, validationErr.Kind)
}

func TestPipeline_Convert_NoVideoStream(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{err: fmt.Errorf("%w: container has audio only", media.ErrNoVideoStream)}
	encoder := &fakeEncoder{}
	p := NewPipeline(prober, encoder, testLimits(), nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, ProbeNoVideoStream, probeErr.Kind)
	assert.Empty(t, encoder.encodeCalls, "transcode must not run after probe failure")
}

func TestPipeline_Convert_CorruptContainer(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{err: errors.New("ffprobe: moov atom not found")}
	p := NewPipeline(prober, &fakeEncoder{}, testLimits(), nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, ProbeCorruptContainer, probeErr.Kind)
}

func TestPipeline_Convert_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind TranscodeKind
	}{
		{
			name:     "deadline maps to timeout",
			err:      &media.EncodeError{Phase: media.PhaseEncode, Err: fmt.Errorf("ffmpeg cancelled: %w", context.DeadlineExceeded)},
			wantKind: TranscodeTimeout,
		},
		{
			name:     "analyze phase maps to decode failure",
			err:      &media.EncodeError{Phase: media.PhaseAnalyze, Err: errors.New("invalid data found")},
			wantKind: TranscodeDecodeFailure,
		},
		{
			name:     "encode phase maps to encode failure",
			err:      &media.EncodeError{Phase: media.PhaseEncode, Err: errors.New("muxer error")},
			wantKind: TranscodeEncodeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := testWorkspace(t)
			src := ws.Path("source.bin")
			writeFakeMP4(t, src, 1024)

			prober := &fakeProber{meta: media.Metadata{Duration: 5, Width: 320, Height: 240}}
			encoder := &fakeEncoder{encodeErr: tt.err}
			p := NewPipeline(prober, encoder, testLimits(), nil)

			_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})

			var transcodeErr *TranscodeError
			require.ErrorAs(t, err, &transcodeErr)
			assert.Equal(t, tt.wantKind, transcodeErr.Kind)
			// A hard transcode failure is never retried.
			assert.Len(t, encoder.encodeCalls, 1)
		})
	}
}

func TestPipeline_Convert_OptimizationEscalation(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{meta: media.Metadata{Duration: 8, Width: 1920, Height: 1080}}
	// 8000 at fps 15, 6000 after the fps drop, 4000 after the downscale.
	encoder := &fakeEncoder{encodeSizes: []int64{8000, 6000, 4000}}
	p := NewPipeline(prober, encoder, testLimits(), nil)

	result, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
	require.NoError(t, err)

	require.Len(t, encoder.encodeCalls, 3)
	assert.Equal(t, 15, encoder.encodeCalls[0].FPS)
	assert.Equal(t, 480, encoder.encodeCalls[0].Width)
	// Frame rate drops first...
	assert.Equal(t, 7, encoder.encodeCalls[1].FPS)
	assert.Equal(t, 480, encoder.encodeCalls[1].Width)
	// ...then dimensions, at the already-reduced frame rate.
	assert.Equal(t, 7, encoder.encodeCalls[2].FPS)
	assert.Equal(t, 360, encoder.encodeCalls[2].Width)
	assert.Equal(t, 202, encoder.encodeCalls[2].Height) // 270 * 0.75

	// The palette passes were never needed.
	assert.Empty(t, encoder.remapCalls)

	assert.Equal(t, int64(4000), result.OutputSizeBytes)
	assert.Equal(t, 7, result.FPS)
	assert.Equal(t, 360, result.Width)
}

func TestPipeline_Convert_PaletteReduction(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{meta: media.Metadata{Duration: 8, Width: 640, Height: 480}}
	// Re-transcodes stay oversized; the second palette step fits.
	encoder := &fakeEncoder{
		encodeSizes: []int64{8000, 7000, 6000},
		remapSizes:  []int64{5500, 4000},
	}
	p := NewPipeline(prober, encoder, testLimits(), nil)

	result, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
	require.NoError(t, err)

	require.Len(t, encoder.remapCalls, 2)
	assert.Equal(t, 128, encoder.remapCalls[0].MaxColors)
	assert.Equal(t, 64, encoder.remapCalls[1].MaxColors)

	// Each palette pass replaced the artifact in place.
	assert.Equal(t, int64(4000), result.OutputSizeBytes)
	info, err := os.Stat(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), info.Size())
}

func TestPipeline_Convert_OptimizationExhausted(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	prober := &fakeProber{meta: media.Metadata{Duration: 8, Width: 640, Height: 480}}
	encoder := &fakeEncoder{
		encodeSizes: []int64{9000, 8000, 7500},
		remapSizes:  []int64{7000, 6500},
	}
	p := NewPipeline(prober, encoder, testLimits(), nil)

	_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})

	var optimizeErr *OptimizeError
	require.ErrorAs(t, err, &optimizeErr)
	assert.Equal(t, int64(6500), optimizeErr.Size)
	assert.Equal(t, int64(5000), optimizeErr.Limit)

	// The pass sequence is bounded: one attempt per pass type.
	assert.Len(t, encoder.encodeCalls, 3)
	assert.Len(t, encoder.remapCalls, 2)

	// An oversized artifact is never left behind as a deliverable.
	assert.NoFileExists(t, ws.Path("output.gif"))
}

func TestPipeline_Convert_TrimScenario(t *testing.T) {
	ws := testWorkspace(t)
	src := ws.Path("source.bin")
	writeFakeMP4(t, src, 1024)

	limits := DefaultLimits()
	limits.MaxClipSeconds = 30
	limits.MaxOutputWidth = 480

	prober := &fakeProber{meta: media.Metadata{Duration: 45, Width: 640, Height: 478}}
	encoder := &fakeEncoder{encodeSizes: []int64{1000}}
	p := NewPipeline(prober, encoder, limits, nil)

	result, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
	require.NoError(t, err)

	assert.Equal(t, 30.0, result.Duration)
	assert.Equal(t, 480, result.Width)
	assert.Equal(t, 358, result.Height) // 478 * 480/640 = 358.5, nearest even
}

func TestPipeline_Convert_WorkspaceCleanup(t *testing.T) {
	t.Run("after success", func(t *testing.T) {
		ws := testWorkspace(t)
		src := ws.Path("source.bin")
		writeFakeMP4(t, src, 1024)

		prober := &fakeProber{meta: media.Metadata{Duration: 5, Width: 320, Height: 240}}
		p := NewPipeline(prober, &fakeEncoder{encodeSizes: []int64{1000}}, testLimits(), nil)

		_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
		require.NoError(t, err)

		require.NoError(t, ws.Release())
		assert.NoDirExists(t, ws.Dir())
	})

	t.Run("after optimization exhaustion", func(t *testing.T) {
		ws := testWorkspace(t)
		src := ws.Path("source.bin")
		writeFakeMP4(t, src, 1024)

		prober := &fakeProber{meta: media.Metadata{Duration: 5, Width: 320, Height: 240}}
		encoder := &fakeEncoder{
			encodeSizes: []int64{9000, 8000, 7000},
			remapSizes:  []int64{6500, 6000},
		}
		p := NewPipeline(prober, encoder, testLimits(), nil)

		_, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
		require.Error(t, err)

		require.NoError(t, ws.Release())
		assert.NoDirExists(t, ws.Dir())
	})
}

func TestPipeline_Convert_Determinism(t *testing.T) {
	limits := testLimits()
	run := func() *Result {
		ws := testWorkspace(t)
		src := ws.Path("source.bin")
		writeFakeMP4(t, src, 1024)

		prober := &fakeProber{meta: media.Metadata{Duration: 45, Width: 1920, Height: 1080}}
		encoder := &fakeEncoder{encodeSizes: []int64{8000, 6000, 4000}}
		p := NewPipeline(prober, encoder, limits, nil)

		result, err := p.Convert(context.Background(), ws, Source{Path: src, SizeBytes: 1024})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	// Structural parameters must match run to run for identical inputs.
	assert.Equal(t, first.Duration, second.Duration)
	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
	assert.Equal(t, first.FPS, second.FPS)
}
