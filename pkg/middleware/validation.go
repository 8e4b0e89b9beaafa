package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/validation"
)

// ValidateAndBind binds the JSON body into req and validates it. On failure it
// writes the error response and returns false.
func ValidateAndBind(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		err = validation.ValidateStruct(req)
	}
	if err != nil {
		RespondWithValidationError(c, err)
		return false
	}
	return true
}

// RespondWithValidationError answers 400 with per-field messages when err
// carries them, and 413 when the body hit the size limit.
func RespondWithValidationError(c *gin.Context, err error) {
	var (
		valErr   *validation.ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    http.StatusBadRequest,
				"message": "validation failed",
				"fields":  valErr.Errors,
			},
		})
	case errors.As(err, &tooLarge):
		common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
}

// MaxBodySize caps the request body at maxBytes. Requests that declare a
// larger Content-Length are rejected before the handler runs.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
