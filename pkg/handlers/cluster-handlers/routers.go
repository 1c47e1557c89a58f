/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package cluster_handlers

import (
	"github.com/gin-gonic/gin"
)

const rootPath = "/v1"

// InitClusterRouters registers the cluster-profile API routes. The
// static "cluster" segment takes priority over the submission id
// parameter registered on the same prefix.
func InitClusterRouters(e *gin.Engine, h *Handler) {
	group := e.Group(rootPath)
	{
		group.POST("submissions/cluster", h.AddCluster)
		group.GET("submissions/cluster", h.ListClusters)
		group.DELETE("submissions/cluster/:name", h.DeleteCluster)
		group.PUT("submissions/cluster/:name/activate", h.ActivateCluster)
		group.GET("submissions/cluster/activate", h.GetActiveCluster)
		group.POST("submissions/cluster/:name/certificate", h.AddCertificate)
		group.DELETE("submissions/cluster/:name/certificate/:cert", h.DeleteCertificate)
	}
}
