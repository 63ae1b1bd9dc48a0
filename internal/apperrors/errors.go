// Package apperrors maps internal error codes to the small fixed vocabulary
// of messages users may see. Raw errors and internal identifiers never cross
// the API boundary.
package apperrors

// Error codes used across handlers.
const (
	CodeInvalidCaseID       = "invalid_case_id"
	CodeInvalidTemplateType = "invalid_template_type"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeStorageUnavailable  = "storage_unavailable"
	CodeEnqueueFailed       = "enqueue_failed"
	CodeLockUnavailable     = "lock_unavailable"
	CodeGenerationTimeout   = "generation_timeout"
	CodeGenerationFailed    = "generation_failed"
)

var messages = map[string]string{
	CodeInvalidCaseID:       "Invalid caseId",
	CodeInvalidTemplateType: "Invalid templateType",
	CodeUnauthorized:        "Unauthorized",
	CodeForbidden:           "Forbidden",
	CodeStorageUnavailable:  "Document storage is temporarily unavailable, please retry",
	CodeEnqueueFailed:       "Could not queue document generation, please retry",
	CodeLockUnavailable:     "Document is being processed by someone else",
	CodeGenerationTimeout:   "Document generation is taking longer than expected",
	CodeGenerationFailed:    "Document generation failed, please retry",
}

const fallback = "Something went wrong, please try again later"

// Message returns the user-facing message for code, or the fallback for
// unrecognized codes.
func Message(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return fallback
}
