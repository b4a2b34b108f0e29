package subtitles

import (
	"fmt"

	"textifier/internal/services"
)

// ErrUnsupportedFormat reports a subtitle extension or format name no codec handles.
var ErrUnsupportedFormat = fmt.Errorf("unsupported subtitle format: %w", services.ErrValidation)

// ParseError reports malformed subtitle input. Decoders stop at the first
// problem instead of skipping cues.
type ParseError struct {
	Path   string
	Format Format
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	where := string(e.Format)
	if e.Path != "" {
		where = e.Path
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %s", where, e.Line, e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Msg)
}

// ErrorKind classifies parse failures as format errors.
func (e *ParseError) ErrorKind() string { return string(services.CategoryFormat) }

func (e *ParseError) Unwrap() error { return services.ErrValidation }
