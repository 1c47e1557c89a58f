/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package cluster_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ufcg-lsd/asperathos-manager/pkg/cluster"
	apiutils "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/utils"
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
	registry *cluster.Registry
}

func NewHandler(registry *cluster.Registry) *Handler {
	return &Handler{registry: registry}
}

func bindBody(c *gin.Context) map[string]interface{} {
	data := make(map[string]interface{})
	_ = c.ShouldBindJSON(&data)
	return data
}
