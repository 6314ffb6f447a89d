package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// ErrUnknownFormat is returned when the file header does not match any known
// video container.
var ErrUnknownFormat = errors.New("not a recognized video container")

// sniffLen is the number of leading bytes needed by filetype matchers.
const sniffLen = 261

// DetectVideo sniffs the file header at path and returns the matched
// container extension (for example "mp4" or "webm"). It never decodes the
// file. A read failure is returned as-is; a readable file that is not a
// video container yields ErrUnknownFormat.
func DetectVideo(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffLen)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read source header: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("match source header: %w", err)
	}
	if kind == filetype.Unknown || kind.MIME.Type != "video" {
		return "", fmt.Errorf("%w: detected %q", ErrUnknownFormat, kind.MIME.Value)
	}

	return kind.Extension, nil
}
