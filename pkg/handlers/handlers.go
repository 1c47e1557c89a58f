/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ufcg-lsd/asperathos-manager/pkg/broker"
	"github.com/ufcg-lsd/asperathos-manager/pkg/cluster"
	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	cluster_handlers "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/cluster-handlers"
	plugin_handlers "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/plugin-handlers"
	submission_handlers "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/submission-handlers"
	apiutils "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/utils"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
)

// Config bundles the collaborators every handler package needs.
type Config struct {
	Registry   *broker.Registry
	Clusters   *cluster.Registry
	Catalog    *plugincatalog.Catalog
	Authorizer submission_handlers.AuthorizerClient
	Deps       *broker.Deps
	LogsDir    string
	SSHKeyPath string
}

// InitHttpHandlers builds the gin engine and registers every route
// group on it.
func InitHttpHandlers(cfg *Config) *gin.Engine {
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, errors.NewNotFound("%s not found", c.Request.RequestURI))
	})

	submission_handlers.InitSubmissionRouters(engine,
		submission_handlers.NewHandler(cfg.Registry, cfg.Catalog, cfg.Authorizer, cfg.Deps, cfg.LogsDir))
	cluster_handlers.InitClusterRouters(engine,
		cluster_handlers.NewHandler(cfg.Clusters))
	plugin_handlers.InitPluginRouters(engine,
		plugin_handlers.NewHandler(cfg.Catalog, cfg.SSHKeyPath))
	return engine
}
