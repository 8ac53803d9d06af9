package services

import (
	"errors"

	"netdash/internal/dataset"
)

// Dashboard service errors
var (
	ErrDatasetNotLoaded  = errors.New("dataset not loaded")
	ErrUnknownKind       = dataset.ErrUnknownKind
	ErrKindNotDetected   = errors.New("dataset kind could not be detected from the file name")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidRange      = errors.New("invalid time range")
)
