package model

// Stage of a single file inside the ingestion pipeline
type Stage string

const (
	StageQueued          Stage = "queued"
	StageParsing         Stage = "parsing"
	StageTranscoding     Stage = "transcoding"
	StageExtractingPeaks Stage = "extracting_peaks"
	StageUploading       Stage = "uploading"
	StageWritingCatalog  Stage = "writing_catalog"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// PipelineStages lists the working stages in the order a file walks through them
var PipelineStages = []Stage{
	StageParsing, StageTranscoding, StageExtractingPeaks, StageUploading, StageWritingCatalog,
}

// Terminal reports whether no further transition is possible
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Audio extensions accepted when enumerating a directory
var DefaultSourceExtensions = []string{".mp3", ".wav", ".m4a", ".flac"}
