package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when the container holds no decodable video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// FFprobe implements Prober using the ffprobe CLI.
type FFprobe struct {
	// binary is the path to the ffprobe binary. Defaults to "ffprobe".
	binary string
}

// NewFFprobe creates a new FFprobe.
// If binary is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(binary string) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary}
}

// probeResult mirrors the JSON document emitted by
// "ffprobe -show_format -show_streams -of json".
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index        int               `json:"index"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Duration     string            `json:"duration"`
	SideDataList []probeSideData   `json:"side_data_list"`
	Tags         map[string]string `json:"tags"`
}

type probeSideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Probe runs ffprobe against path and extracts duration, display dimensions
// and codec information for the first video stream. It reads container
// metadata only; no frames are decoded.
func (p *FFprobe) Probe(ctx context.Context, path string) (Metadata, error) {
	// #nosec G204 - binary is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Metadata{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Metadata{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.Bytes())
}

// parseProbeOutput decodes the ffprobe JSON document into Metadata.
// Split out from Probe so parsing is testable without the binary.
func parseProbeOutput(data []byte) (Metadata, error) {
	var result probeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var video *probeStream
	hasAudio := false
	for i := range result.Streams {
		s := &result.Streams[i]
		switch strings.ToLower(s.CodecType) {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return Metadata{}, ErrNoVideoStream
	}
	if video.Width <= 0 || video.Height <= 0 {
		return Metadata{}, fmt.Errorf("%w: stream %d reports %dx%d", ErrNoVideoStream, video.Index, video.Width, video.Height)
	}

	meta := Metadata{
		Width:     video.Width,
		Height:    video.Height,
		Codec:     video.CodecName,
		Container: result.Format.FormatName,
		HasAudio:  hasAudio,
	}

	// Stream duration is more reliable than container duration for files
	// with metadata-only streams; fall back to the container value.
	meta.Duration = parseSeconds(video.Duration)
	if meta.Duration <= 0 {
		meta.Duration = parseSeconds(result.Format.Duration)
	}
	if meta.Duration < 0 {
		meta.Duration = 0
	}

	// An odd quarter-turn rotation swaps the displayed dimensions. ffmpeg
	// applies the rotation automatically on decode, so the reported
	// dimensions must match what the encoder will actually see.
	if quarterTurns(video)%2 != 0 {
		meta.Width, meta.Height = meta.Height, meta.Width
	}

	return meta, nil
}

// quarterTurns returns the stream rotation in units of 90 degrees.
func quarterTurns(s *probeStream) int {
	rotation := 0.0
	found := false
	for _, sd := range s.SideDataList {
		if strings.EqualFold(sd.SideDataType, "Display Matrix") {
			rotation = sd.Rotation
			found = true
			break
		}
	}
	if !found {
		// Older muxers record rotation as a stream tag instead.
		if v, ok := s.Tags["rotate"]; ok {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				rotation = parsed
			}
		}
	}
	turns := int(rotation/90) % 4
	if turns < 0 {
		turns += 4
	}
	return turns
}

func parseSeconds(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
