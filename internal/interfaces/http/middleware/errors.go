// Package middleware holds the gin middleware of the retail API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key the request logger stores the request id under
const RequestIDKey = "request_id"

// abort stops the chain with an error envelope
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(dto.ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	}))
}

// abortWithError stops the chain with the status and body derived from err
func abortWithError(c *gin.Context, err error) {
	status, info := dto.FromError(err)
	info.RequestID = c.GetString(RequestIDKey)
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(info))
}
