package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appsettings "github.com/retail/backend/internal/application/settings"
	appshared "github.com/retail/backend/internal/application/shared"
)

// SettingsService reads and writes organization settings
type SettingsService interface {
	Get(ctx context.Context, actor appshared.Actor) (*appsettings.SettingsResponse, error)
	Update(ctx context.Context, actor appshared.Actor, req appsettings.UpdateSettingsRequest) (*appsettings.SettingsResponse, error)
}

// SettingsHandler handles the settings endpoints
type SettingsHandler struct {
	BaseHandler
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the caller's organization settings
func (h *SettingsHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update replaces the caller's organization settings
func (h *SettingsHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req appsettings.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
