package jobs

import "time"

// Job statuses
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Message is the payload sent from API -> SQS -> worker for one job.
type Message struct {
	ArtifactKey     string `json:"artifact_key"`
	CaseID          string `json:"case_id"`
	TemplateType    string `json:"template_type"`
	TemplateVersion string `json:"template_version"`
	DataHash        string `json:"data_hash,omitempty"`
	UserID          string `json:"user_id"`
	CorrelationID   string `json:"correlation_id,omitempty"`
}

// Notification is the completion event published by the worker. Delivery is
// not guaranteed; consumers must keep polling the job store as a fallback
// and treat whichever signal lands first as the real one.
type Notification struct {
	ArtifactKey  string `json:"artifact_key"`
	Status       string `json:"status"` // COMPLETED | FAILED
	ArtifactURL  string `json:"artifact_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Job is the generation-job row, keyed by artifact key. At most one job ever
// exists per unique (case, template, version, data) combination.
type Job struct {
	ArtifactKey     string    `dynamodbav:"artifact_key"` // PK
	CaseID          string    `dynamodbav:"case_id"`
	TemplateType    string    `dynamodbav:"template_type"`
	TemplateVersion string    `dynamodbav:"template_version"`
	DataHash        string    `dynamodbav:"data_hash,omitempty"`
	UserID          string    `dynamodbav:"user_id"`
	Status          string    `dynamodbav:"status"` // QUEUED | RUNNING | COMPLETED | FAILED
	Note            string    `dynamodbav:"note,omitempty"`
	Attempts        int       `dynamodbav:"attempts,omitempty"`
	CreatedAt       time.Time `dynamodbav:"created_at"`
	UpdatedAt       time.Time `dynamodbav:"updated_at"`
}
