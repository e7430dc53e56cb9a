package internal

import "errors"

var (
	ErrNothingToStitch   = errors.New("no tables found to stitch")
	ErrNoTables          = errors.New("no tables found in extraction result")
	ErrStageMissing      = errors.New("stage not available")
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds upload limit")
)

// MissingFieldError reports an extraction payload without a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "extraction result missing field: " + e.Field
}
