package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Common sentinel errors
var (
	ErrMissingArtifact = errors.New("missing artifact")
	ErrMalformedInput  = errors.New("malformed input")
)

// MissingError reports a required input file that does not exist.
type MissingError struct {
	Kind string // e.g. "execution log", "side index"
	Path string
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

// Unwrap returns ErrMissingArtifact for errors.Is support.
func (e *MissingError) Unwrap() error {
	return ErrMissingArtifact
}

// ParseError reports an input that could not be read at all. Individual
// malformed lines are skipped with a diagnostic instead.
type ParseError struct {
	Kind  string
	Path  string
	Line  int
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s %s:%d: %v", e.Kind, e.Path, e.Line, e.Cause)
	}
	return fmt.Sprintf("parse %s %s: %v", e.Kind, e.Path, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrMalformedInput or matches the cause.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedInput || errors.Is(e.Cause, target)
}

// IsMissing returns true if err is a missing-artifact error.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingArtifact)
}

// open opens path, turning a not-exist failure into a MissingError.
func open(kind, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingError{Kind: kind, Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	return f, nil
}
