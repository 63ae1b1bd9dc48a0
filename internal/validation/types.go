package validation

// SubmitRequest is the payload for POST /pdf/submit. The caseId pattern is a
// hard boundary check: the id becomes a storage path segment downstream.
type SubmitRequest struct {
	CaseID       string `json:"caseId" validate:"required,case_id"`
	TemplateType string `json:"templateType" validate:"required,template_type"`
	DataHash     string `json:"dataHash,omitempty" validate:"omitempty,max=128"`
}

// LockRequest is the payload for the lock acquire/release RPCs.
type LockRequest struct {
	DocumentID     string `json:"documentId" validate:"required,max=128"`
	WorkerID       string `json:"workerId" validate:"required,max=128"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" validate:"omitempty,min=1,max=3600"`
}

// CleanupRequest is the payload for the admin expired-lock sweep.
type CleanupRequest struct {
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" validate:"omitempty,min=1,max=3600"`
}
