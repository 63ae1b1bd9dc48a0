package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/apperrors"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/submission"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/validation"
)

// Identity headers set by the upstream auth gateway. Authentication and
// case-level authorization happen there; these handlers only require that
// an identity was established.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "admin"
)

// PDFHandlerConfig groups dependencies for the submission routes.
type PDFHandlerConfig struct {
	Service *submission.Service
}

// RegisterPDFRoutes registers the document-generation submission API.
func RegisterPDFRoutes(r *gin.Engine, cfg PDFHandlerConfig) {
	v := validation.New()

	r.POST("/pdf/submit", func(c *gin.Context) {
		ctx := c.Request.Context()

		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperrors.Message(apperrors.CodeUnauthorized)})
			return
		}

		var req validation.SubmitRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		in := submission.Input{
			CaseID:       req.CaseID,
			TemplateType: req.TemplateType,
			DataHash:     req.DataHash,
			UserID:       userID,
		}

		// wait=true blocks on the polling fallback and answers with the
		// signed URL instead of a queued acknowledgement
		var res submission.Result
		var err error
		if c.Query("wait") == "true" {
			res, err = cfg.Service.SubmitAndWait(ctx, in, submission.DefaultWaitOptions())
		} else {
			res, err = cfg.Service.Submit(ctx, in)
		}
		if err != nil {
			switch {
			case errors.Is(err, submission.ErrInvalidCaseID):
				c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.Message(apperrors.CodeInvalidCaseID)})
			case errors.Is(err, submission.ErrInvalidTemplateType):
				c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.Message(apperrors.CodeInvalidTemplateType)})
			case errors.Is(err, submission.ErrEnqueueFailed):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": apperrors.Message(apperrors.CodeEnqueueFailed)})
			case errors.Is(err, submission.ErrWaitTimeout):
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": apperrors.Message(apperrors.CodeGenerationTimeout), "artifactKey": res.ArtifactKey})
			case errors.Is(err, submission.ErrGenerationFailed):
				c.JSON(http.StatusBadGateway, gin.H{"error": apperrors.Message(apperrors.CodeGenerationFailed)})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.Message(apperrors.CodeStorageUnavailable)})
			}
			return
		}

		c.JSON(http.StatusOK, res)
	})
}
