package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a file (or a whole batch) failed
type ErrorKind string

const (
	ErrorKindTranscode      ErrorKind = "transcode"
	ErrorKindPeakExtraction ErrorKind = "peak_extraction"
	ErrorKindUpload         ErrorKind = "upload"
	ErrorKindCatalogWrite   ErrorKind = "catalog_write"
	ErrorKindConfig         ErrorKind = "config"
	ErrorKindCancelled      ErrorKind = "cancelled"
)

// IngestError is a classified pipeline error. Stage is where it happened.
type IngestError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

// NewIngestError classifies err. A nil err yields a generic message for the kind.
func NewIngestError(kind ErrorKind, stage Stage, err error) *IngestError {
	if err == nil {
		err = fmt.Errorf("%s failed", kind)
	}
	return &IngestError{Kind: kind, Stage: stage, Err: err}
}

// ConfigError reports configuration that prevents the pipeline from running at all.
func ConfigError(format string, args ...any) *IngestError {
	return &IngestError{Kind: ErrorKindConfig, Stage: StageQueued, Err: fmt.Errorf(format, args...)}
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Is matches another *IngestError of the same kind
func (e *IngestError) Is(target error) bool {
	t, ok := target.(*IngestError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// MarshalText renders the error as its message for JSON summaries
func (e *IngestError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}

// KindOf returns the ErrorKind of err, or "" when err is not classified.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsConfigError reports whether err is a configuration failure.
func IsConfigError(err error) bool {
	return KindOf(err) == ErrorKindConfig
}
