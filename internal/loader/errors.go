package loader

import "errors"

var (
	ErrFileTooLarge  = errors.New("file exceeds the upload size limit")
	ErrEncoding      = errors.New("file encoding could not be read")
	ErrEmptyFile     = errors.New("file is empty")
	ErrMissingHeader = errors.New("file has no header row")
	ErrNoRows        = errors.New("file has a header but no data rows")
)

// Reason returns a short metric label for a load failure
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrEmptyFile):
		return "empty_file"
	case errors.Is(err, ErrMissingHeader):
		return "missing_header"
	case errors.Is(err, ErrNoRows):
		return "no_rows"
	default:
		return "malformed"
	}
}
