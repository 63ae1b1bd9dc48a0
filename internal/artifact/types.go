package artifact

import "time"

// Template types known to the pipeline. Submissions naming anything else are
// rejected before any storage path is built.
const (
	TemplatePOAAdult    = "poa-adult"
	TemplatePOAMinor    = "poa-minor"
	TemplateCitizenship = "citizenship-application"
	TemplateFamilyTree  = "family-tree"
)

var knownTemplates = map[string]struct{}{
	TemplatePOAAdult:    {},
	TemplatePOAMinor:    {},
	TemplateCitizenship: {},
	TemplateFamilyTree:  {},
}

// KnownTemplateType reports whether t is a member of the template enum.
func KnownTemplateType(t string) bool {
	_, ok := knownTemplates[t]
	return ok
}

// Artifact is the write-once row recording a generated PDF. Once a key has an
// artifact it is only ever read, never mutated.
type Artifact struct {
	ArtifactKey string    `dynamodbav:"artifact_key"` // PK
	CaseID      string    `dynamodbav:"case_id"`
	StoragePath string    `dynamodbav:"storage_path"`
	SizeBytes   int64     `dynamodbav:"size_bytes"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

// AccessRecord is one append-only audit row per successful retrieval,
// written on cache hits and on fresh generations alike.
type AccessRecord struct {
	AuditID      string    `dynamodbav:"audit_id"` // PK, uuid
	CaseID       string    `dynamodbav:"case_id"`
	TemplateType string    `dynamodbav:"template_type"`
	Path         string    `dynamodbav:"path"`
	UserID       string    `dynamodbav:"user_id"`
	ArtifactKey  string    `dynamodbav:"artifact_key"`
	AccessedAt   time.Time `dynamodbav:"accessed_at"`
}
