/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package plugin_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apiutils "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/utils"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
)

type handleFunc func(*gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch responseType := response.(type) {
	case nil:
		c.Status(code)
	case []byte:
		c.Data(code, "application/json", responseType)
	case string:
		c.Data(code, "application/json", []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}

type Handler struct {
	catalog    *plugincatalog.Catalog
	sshKeyPath string
}

func NewHandler(catalog *plugincatalog.Catalog, sshKeyPath string) *Handler {
	return &Handler{catalog: catalog, sshKeyPath: sshKeyPath}
}
