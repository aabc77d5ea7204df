// Package ingest validates uploaded documents and extracts their text.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMaxBytes is the largest accepted upload.
const DefaultMaxBytes = 16 << 20

// DefaultExtensions lists the accepted file types, without dots.
var DefaultExtensions = []string{"txt", "pdf", "doc", "docx"}

var (
	ErrEmptyFilename   = errors.New("no file selected")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	// ErrNotText is wrapped by ExtractionError when a text upload is not
	// valid UTF-8.
	ErrNotText         = errors.New("content is not valid UTF-8 text")
)

// ExtractionError reports that a document's text could not be read.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Policy bounds what an upload may be.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// DefaultPolicy accepts txt, pdf, doc and docx up to 16 MiB.
func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes, AllowedExtensions: DefaultExtensions}
}

// Validate checks filename and size against the policy.
func (p Policy) Validate(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return ErrEmptyFilename
	}
	if !p.Allowed(filename) {
		return fmt.Errorf("%w: allowed file types are %s", ErrUnsupportedType, strings.Join(p.AllowedExtensions, ", "))
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, size, p.MaxBytes)
	}
	return nil
}

// Allowed reports whether filename carries an accepted extension.
func (p Policy) Allowed(filename string) bool {
	ext := extension(filename)
	if ext == "" {
		return false
	}
	for _, a := range p.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename reduces name to a safe base name: path components are
// dropped, whitespace becomes underscores and any other character outside
// [A-Za-z0-9_.-] is removed. Leading dots and underscores are trimmed.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" || name == "." {
		return ""
	}
	return name
}
