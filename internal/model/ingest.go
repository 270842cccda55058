package model

import "time"

// IngestionResult is the final outcome of one file. Built once, never mutated.
type IngestionResult struct {
	Index           int           `json:"index"`
	Filename        string        `json:"filename"`
	Success         bool          `json:"success"`
	CatalogRecordID string        `json:"catalogRecordId,omitempty"`
	Stage           Stage         `json:"stage"`
	Error           *IngestError  `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Kind returns the error kind of a failed result, or "" on success.
func (r IngestionResult) Kind() ErrorKind {
	if r.Error == nil {
		return ""
	}
	return r.Error.Kind
}

// FailureEntry is one line of the JSON failure log
type FailureEntry struct {
	Filename string    `json:"filename"`
	Kind     ErrorKind `json:"kind"`
	Stage    Stage     `json:"stage"`
	Error    string    `json:"error"`
}

// BatchSummary is reported once a batch completes
type BatchSummary struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	ByKind     map[string]int `json:"byKind,omitempty"`
	Failures   []FailureEntry `json:"failures,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
}

// StartIngestRequest is the body of POST /api/ingest/start
type StartIngestRequest struct {
	Directory string `json:"directory" validate:"required"`
	Genre     string `json:"genre,omitempty" validate:"omitempty,max=50"`
	Artist    string `json:"artist,omitempty" validate:"omitempty,max=200"`
	Recursive bool   `json:"recursive"`
}

// IngestJobResponse is returned when a job is accepted
type IngestJobResponse struct {
	JobID string `json:"jobId"`
}

// JobStatusResponse is returned by the status endpoint
type JobStatusResponse struct {
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"currentStep,omitempty"`
	Error       *string   `json:"error,omitempty"`
}
