package convert

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("underlying cause")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation error carries its kind",
			err:  &ValidationError{Kind: ValidationTooLarge, Err: cause},
			want: "validation failed (too_large): underlying cause",
		},
		{
			name: "validation error without cause",
			err:  &ValidationError{Kind: ValidationUnreadable},
			want: "validation failed (unreadable)",
		},
		{
			name: "probe error carries its kind",
			err:  &ProbeError{Kind: ProbeNoVideoStream, Err: cause},
			want: "probe failed (no_video_stream): underlying cause",
		},
		{
			name: "transcode error carries its kind",
			err:  &TranscodeError{Kind: TranscodeTimeout, Err: cause},
			want: "transcode failed (timeout): underlying cause",
		},
		{
			name: "optimize error reports both sizes",
			err:  &OptimizeError{Size: 6000, Limit: 5000},
			want: "optimization exhausted: smallest artifact 6000 bytes exceeds limit 5000 bytes",
		},
		{
			name: "cleanup error names the directory",
			err:  &CleanupError{Dir: "/tmp/gifbot/job-x", Err: cause},
			want: "cleanup of /tmp/gifbot/job-x failed: underlying cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("root cause")

	wrapped := fmt.Errorf("stage: %w", &TranscodeError{Kind: TranscodeDecodeFailure, Err: cause})

	var transcodeErr *TranscodeError
	require.ErrorAs(t, wrapped, &transcodeErr)
	assert.Equal(t, TranscodeDecodeFailure, transcodeErr.Kind)
	assert.ErrorIs(t, wrapped, cause)
}
