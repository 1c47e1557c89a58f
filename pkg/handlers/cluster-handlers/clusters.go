/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package cluster_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ufcg-lsd/asperathos-manager/pkg/cluster"
	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
)

// AddCluster registers a new cluster profile.
func (h *Handler) AddCluster(c *gin.Context) { handle(c, h.addCluster) }

func (h *Handler) addCluster(c *gin.Context) (interface{}, error) {
	data := bindBody(c)
	name, _ := data["cluster_name"].(string)
	config, _ := data["cluster_config"].(string)
	if name == "" || config == "" {
		return nil, errors.NewBadRequest("missing cluster fields in request")
	}
	if err := h.registry.Add(name, config); err != nil {
		return nil, err
	}
	c.Status(http.StatusAccepted)
	return gin.H{"cluster_name": name, "status": "success"}, nil
}

// AddCertificate stores a certificate under a cluster profile.
func (h *Handler) AddCertificate(c *gin.Context) { handle(c, h.addCertificate) }

func (h *Handler) addCertificate(c *gin.Context) (interface{}, error) {
	data := bindBody(c)
	name, _ := data["certificate_name"].(string)
	content, _ := data["certificate_content"].(string)
	if name == "" || content == "" {
		return nil, errors.NewBadRequest("missing certificate fields in request")
	}
	clusterName := c.Param("name")
	if err := h.registry.AddCertificate(clusterName, name, content); err != nil {
		return nil, err
	}
	c.Status(http.StatusAccepted)
	return gin.H{"cluster_name": clusterName, "certificate_name": name, "status": "success"}, nil
}

// DeleteCertificate removes a certificate from a cluster profile.
func (h *Handler) DeleteCertificate(c *gin.Context) { handle(c, h.deleteCertificate) }

func (h *Handler) deleteCertificate(c *gin.Context) (interface{}, error) {
	clusterName := c.Param("name")
	certName := c.Param("cert")
	if err := h.registry.DeleteCertificate(clusterName, certName); err != nil {
		return nil, err
	}
	c.Status(http.StatusAccepted)
	return gin.H{"cluster_name": clusterName, "certificate_name": certName, "status": "success"}, nil
}

// DeleteCluster removes a cluster profile.
func (h *Handler) DeleteCluster(c *gin.Context) { handle(c, h.deleteCluster) }

func (h *Handler) deleteCluster(c *gin.Context) (interface{}, error) {
	name := c.Param("name")
	if err := h.registry.Delete(name); err != nil {
		return nil, err
	}
	c.Status(http.StatusAccepted)
	return gin.H{"cluster_name": name, "status": "success"}, nil
}

// ActivateCluster points the orchestrator at the named profile.
func (h *Handler) ActivateCluster(c *gin.Context) { handle(c, h.activateCluster) }

func (h *Handler) activateCluster(c *gin.Context) (interface{}, error) {
	name := c.Param("name")
	if err := h.registry.Activate(name); err != nil {
		return nil, err
	}
	return gin.H{"cluster_name": name, "status": "success"}, nil
}

// ListClusters returns every registered profile keyed by name.
func (h *Handler) ListClusters(c *gin.Context) { handle(c, h.listClusters) }

func (h *Handler) listClusters(c *gin.Context) (interface{}, error) {
	result := make(map[string]cluster.Profile)
	for _, profile := range h.registry.List() {
		result[profile.Name] = profile
	}
	return result, nil
}

// GetActiveCluster returns the profile the orchestrator targets.
func (h *Handler) GetActiveCluster(c *gin.Context) { handle(c, h.getActiveCluster) }

func (h *Handler) getActiveCluster(c *gin.Context) (interface{}, error) {
	active := h.registry.Active()
	if active == nil {
		return gin.H{"message": "There is no active cluster"}, nil
	}
	return map[string]cluster.Profile{active.Name: *active}, nil
}
