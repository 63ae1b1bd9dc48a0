package validation

import (
	"regexp"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
)

// caseIDPattern guards every place a case id reaches a storage path or query.
var caseIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CaseIDValid reports whether id passes the allow-list pattern.
func CaseIDValid(id string) bool {
	return caseIDPattern.MatchString(id)
}

// New returns a configured validator with the pipeline's custom rules
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	_ = v.RegisterValidation("case_id", func(fl validatorv10.FieldLevel) bool {
		return CaseIDValid(fl.Field().String())
	})

	_ = v.RegisterValidation("template_type", func(fl validatorv10.FieldLevel) bool {
		return artifact.KnownTemplateType(fl.Field().String())
	})

	return v
}
