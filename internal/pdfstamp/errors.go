package pdfstamp

import (
	"fmt"

	"github.com/dmitrijs2005/docusigner/internal/common"
)

// RenderError reports a structural stamping failure. It matches
// common.ErrRenderFailure under errors.Is. Field is the index of the
// offending placement, or -1 when the failure is not tied to one.
type RenderError struct {
	Field int
	Err   error
}

func (e *RenderError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("render failure: %v", e.Err)
	}
	return fmt.Sprintf("render failure: field %d: %v", e.Field, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{common.ErrRenderFailure, e.Err}
}

func renderErr(field int, format string, args ...any) error {
	return &RenderError{Field: field, Err: fmt.Errorf(format, args...)}
}
