/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package plugin_handlers

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
)

// InstallPlugin registers a plugin and forwards collaborator installs
// to the owning service.
func (h *Handler) InstallPlugin(c *gin.Context) { handle(c, h.installPlugin) }

func (h *Handler) installPlugin(c *gin.Context) (interface{}, error) {
	var data struct {
		Name         string `json:"plugin_name"`
		Source       string `json:"install_source"`
		PluginSource string `json:"plugin_source"`
		Module       string `json:"plugin_module"`
		Component    string `json:"component"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		return nil, errors.NewBadRequest("malformed plugin request: %v", err)
	}
	plugin := plugincatalog.Plugin{
		Name:         data.Name,
		Source:       data.Source,
		PluginSource: data.PluginSource,
		Module:       data.Module,
		Component:    plugincatalog.Component(data.Component),
	}
	if err := h.catalog.Install(plugin); err != nil {
		return nil, err
	}
	return gin.H{"message": "Plugin installed successfully"}, nil
}

// ListPlugins returns every registered plugin.
func (h *Handler) ListPlugins(c *gin.Context) { handle(c, h.listPlugins) }

func (h *Handler) listPlugins(c *gin.Context) (interface{}, error) {
	return h.catalog.List()
}

// GetKey returns the public SSH key of the broker host.
func (h *Handler) GetKey(c *gin.Context) { handle(c, h.getKey) }

func (h *Handler) getKey(c *gin.Context) (interface{}, error) {
	key, err := os.ReadFile(h.sshKeyPath)
	if err != nil {
		return nil, errors.NewNotFound("no public key at %s", h.sshKeyPath)
	}
	return gin.H{"key": strings.TrimSpace(string(key))}, nil
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.String(200, "OK")
}
