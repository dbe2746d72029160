// Package handler holds the HTTP handlers of the retail API. Each handler depends
// on a narrow interface of the application service it serves.
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/interfaces/http/dto"
	"github.com/retail/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status and code
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(dto.ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(middleware.RequestIDKey),
	}))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.CodeBadRequest, message)
}

// HandleError maps err to its status and envelope. Server-side failures are logged
// with the original error, which never reaches the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status, info := dto.FromError(err)
	info.RequestID = c.GetString(middleware.RequestIDKey)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("request failed",
			zap.String("code", info.Code),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.JSON(status, dto.NewErrorResponse(info))
}

// BindJSON binds the request body into req, answering 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindingError(c, err)
		return false
	}
	return true
}

// BindQuery binds the query string into req, answering 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindingError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindingError(c *gin.Context, err error) {
	info := dto.ErrorInfo{
		Code:      shared.CodeValidation,
		Message:   "Request validation failed",
		RequestID: c.GetString(middleware.RequestIDKey),
	}
	if fields := middleware.FieldErrors(err); len(fields) > 0 {
		info.Details = map[string]any{"fields": fields}
	} else {
		info.Code = dto.CodeBadRequest
		info.Message = "Malformed request: " + err.Error()
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(info))
}

// ParamID parses the named path parameter as a uuid, answering 400 on failure
func (h *BaseHandler) ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// QueryID parses an optional uuid query parameter. An absent parameter yields nil.
func (h *BaseHandler) QueryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return nil, false
	}
	return &id, true
}

// Actor returns the authenticated caller, answering 401 when there is none
func (h *BaseHandler) Actor(c *gin.Context) (appshared.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Authentication required")
		return appshared.Actor{}, false
	}
	return actor, true
}
