// Package handlers is the REST surface the VALID single-page app calls.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
)

// respondError maps model errors to status codes. Anything unrecognized is
// a server fault.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var validationErrors validator.ValidationErrors
	var inputErr *utils.InputError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, utils.ErrorUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSessionStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProofRecordImmutable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validationErrors):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
	case errors.As(err, &inputErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": inputErr.Message})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// badRequest is for malformed bodies and query strings.
func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// serverError hides the cause from the caller; ErrorLogger records it.
func serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
