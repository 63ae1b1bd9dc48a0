package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/apperrors"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/locks"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/validation"
)

// LockHandlerConfig groups dependencies for the document-lock RPCs.
type LockHandlerConfig struct {
	Manager *locks.Manager
}

// RegisterLockRoutes registers the authenticated lock procedure calls.
// Contention is a routine negative result (success=false); only auth
// failures and storage errors are logged as abnormal.
func RegisterLockRoutes(r *gin.Engine, cfg LockHandlerConfig) {
	v := validation.New()

	r.POST("/locks/acquire", func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			log.Printf("[locks] unauthenticated acquire attempt from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperrors.Message(apperrors.CodeUnauthorized)})
			return
		}

		var req validation.LockRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		ok, err := cfg.Manager.Acquire(c.Request.Context(), req.DocumentID, req.WorkerID, time.Duration(req.TimeoutSeconds)*time.Second)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "reason": apperrors.Message(apperrors.CodeStorageUnavailable)})
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "reason": apperrors.Message(apperrors.CodeLockUnavailable)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	r.POST("/locks/release", func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			log.Printf("[locks] unauthenticated release attempt from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperrors.Message(apperrors.CodeUnauthorized)})
			return
		}

		var req validation.LockRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		if err := cfg.Manager.Release(c.Request.Context(), req.DocumentID, req.WorkerID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "reason": apperrors.Message(apperrors.CodeStorageUnavailable)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	r.POST("/locks/cleanup", func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperrors.Message(apperrors.CodeUnauthorized)})
			return
		}
		if c.GetHeader(HeaderUserRole) != RoleAdmin {
			log.Printf("[locks] non-admin cleanup attempt by user=%s from %s", userID, c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": apperrors.Message(apperrors.CodeForbidden)})
			return
		}

		var req validation.CleanupRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		released, err := cfg.Manager.CleanupExpired(c.Request.Context(), time.Duration(req.TimeoutSeconds)*time.Second)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.Message(apperrors.CodeStorageUnavailable)})
			return
		}
		if released == nil {
			released = []locks.LockRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"released": released})
	})
}
