package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/apperrors"
)

// BindAndValidate binds the JSON body into `out` and runs validation.
// On failure it writes a 400 with a message from the fixed user-facing
// vocabulary and returns an error for the handler to short-circuit. Raw
// validator output and struct namespaces never reach the response body.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.Message("")})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.Message(validationCode(err))})
		return err
	}
	return nil
}

// validationCode maps the first failing field to its error code. Fields
// outside the submit contract fall through to the generic message.
func validationCode(err error) string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return ""
	}
	switch ve[0].StructField() {
	case "CaseID":
		return apperrors.CodeInvalidCaseID
	case "TemplateType":
		return apperrors.CodeInvalidTemplateType
	default:
		return ""
	}
}
