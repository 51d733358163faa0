package dto

// IngestPathRequest ingests a file that already exists on the server.
type IngestPathRequest struct {
	Path     string `json:"path" validate:"required"`
	SourceId string `json:"source_id,omitempty"`
	Replace  bool   `json:"replace,omitempty"`
}

type IngestResponse struct {
	Summary    string `json:"summary"`
	SourceId   string `json:"source_id"`
	Passages   int    `json:"passages"`
	IndexTotal int    `json:"index_total"`
}

type IngestJobResponse struct {
	JobId    string `json:"job_id"`
	SourceId string `json:"source_id"`
}

// IngestJobMessage is the payload of an async ingestion job.
type IngestJobMessage struct {
	JobId    string `json:"job_id"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type,omitempty"`
	SourceId string `json:"source_id"`
	Replace  bool   `json:"replace"`
	Staged   bool   `json:"staged"`
}
