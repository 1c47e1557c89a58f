/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package plugin_handlers

import (
	"github.com/gin-gonic/gin"
)

const rootPath = "/v1"

// InitPluginRouters registers the plugin catalog and host routes.
func InitPluginRouters(e *gin.Engine, h *Handler) {
	group := e.Group(rootPath)
	{
		group.POST("plugins", h.InstallPlugin)
		group.GET("plugins", h.ListPlugins)
		group.GET("key", h.GetKey)
	}
	e.GET("/healthz", h.Healthz)
}
