package convert

import "fmt"

// ValidationKind classifies input validation failures.
type ValidationKind string

const (
	// ValidationTooLarge means the source exceeds MaxInputBytes.
	ValidationTooLarge ValidationKind = "too_large"
	// ValidationUnsupportedFormat means the file header does not match a
	// known video container.
	ValidationUnsupportedFormat ValidationKind = "unsupported_format"
	// ValidationUnreadable means the source file could not be read.
	ValidationUnreadable ValidationKind = "unreadable"
)

// ValidationError rejects a source before any expensive work begins.
type ValidationError struct {
	Kind ValidationKind
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("validation failed (%s)", e.Kind)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProbeKind classifies metadata extraction failures.
type ProbeKind string

const (
	// ProbeCorruptContainer means ffprobe could not parse the container.
	ProbeCorruptContainer ProbeKind = "corrupt_container"
	// ProbeNoVideoStream means the container holds no decodable video stream.
	ProbeNoVideoStream ProbeKind = "no_video_stream"
)

// ProbeError reports a source that passed validation but yields no usable
// video metadata. Terminal; never retried.
type ProbeError struct {
	Kind ProbeKind
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("probe failed (%s)", e.Kind)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TranscodeKind classifies decode/encode failures.
type TranscodeKind string

const (
	// TranscodeDecodeFailure means the source could not be decoded.
	TranscodeDecodeFailure TranscodeKind = "decode_failure"
	// TranscodeEncodeFailure means the GIF could not be written.
	TranscodeEncodeFailure TranscodeKind = "encode_failure"
	// TranscodeTimeout means the wall-clock budget was exceeded. Never
	// retried with the same parameters.
	TranscodeTimeout TranscodeKind = "timeout"
)

// TranscodeError reports a failed transcode attempt.
type TranscodeError struct {
	Kind TranscodeKind
	Err  error
}

func (e *TranscodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcode failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transcode failed (%s)", e.Kind)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// OptimizeError reports that every reduction pass ran and the artifact still
// exceeds the output size bound. The oversized artifact is discarded, never
// delivered.
type OptimizeError struct {
	// Size is the smallest artifact size achieved, in bytes.
	Size int64
	// Limit is the configured output ceiling, in bytes.
	Limit int64
}

func (e *OptimizeError) Error() string {
	return fmt.Sprintf("optimization exhausted: smallest artifact %d bytes exceeds limit %d bytes", e.Size, e.Limit)
}

// CleanupError reports a failure to remove job temp artifacts. It never
// changes the job outcome; callers log it because it signals potential
// temp-storage leakage.
type CleanupError struct {
	Dir string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup of %s failed: %v", e.Dir, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
