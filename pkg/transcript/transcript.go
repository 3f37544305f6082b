// Package transcript validates uploaded meeting transcripts.
package transcript

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrUnsupportedType = errors.New("transcript: only .txt and .md files are supported")
	ErrEmpty           = errors.New("transcript: file is empty")
	ErrTooLarge        = errors.New("transcript: file exceeds size limit")
	ErrNotUTF8         = errors.New("transcript: file is not valid UTF-8 text")
)

var allowedExt = map[string]bool{".txt": true, ".md": true}

// Validate checks an uploaded file and returns its normalized text.
func Validate(filename string, data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(data), maxBytes)
	}
	if !utf8.Valid(data) {
		return "", ErrNotUTF8
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
