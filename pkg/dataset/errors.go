package dataset

import (
	"errors"
	"fmt"
)

// ErrTransformMismatch is returned when a Transform changes the number of boxes,
// which would break the correspondence between boxes and class labels.
var ErrTransformMismatch = errors.New("Transform changed the number of boxes")

// DecodeError is returned when an image file cannot be read or decoded
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Failed to decode image %v: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseError is returned for a malformed line in an annotation file
type ParseError struct {
	Path string // Annotation file
	Line int    // 1-based line number
	Text string // The offending line
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v:%v: invalid annotation '%v': %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
