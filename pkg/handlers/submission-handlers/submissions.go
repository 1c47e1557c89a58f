/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package submission_handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/broker"
	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/ids"
)

// CreateSubmission admits a new submission and starts its executor in
// the background.
func (h *Handler) CreateSubmission(c *gin.Context) { handle(c, h.createSubmission) }

func (h *Handler) createSubmission(c *gin.Context) (interface{}, error) {
	data := bindBody(c)
	if err := h.checkAuthorization(data); err != nil {
		return nil, err
	}
	pluginName, _ := data["plugin"].(string)
	payload, ok := data["plugin_info"].(map[string]interface{})
	if pluginName == "" || !ok {
		return nil, errors.NewBadRequest("missing plugin fields in request")
	}
	plugin, err := h.catalog.Resolve(pluginName, plugincatalog.ComponentManager)
	if err != nil {
		return nil, err
	}
	payload["plugin"] = plugin.Module
	payload["enable_auth"] = data["enable_auth"]

	appId := ids.NewSubmissionId()
	executor := broker.NewExecutor(broker.NewSubmission(appId, payload), h.deps)
	h.registry.Put(executor)
	go func() {
		if err := executor.Run(context.Background()); err != nil {
			klog.ErrorS(err, "submission failed", "app_id", appId)
		}
	}()

	c.Status(http.StatusAccepted)
	return gin.H{"job_id": appId}, nil
}

// StopSubmission drains the work queue so running replicas wind down.
func (h *Handler) StopSubmission(c *gin.Context) { handle(c, h.stopSubmission) }

func (h *Handler) stopSubmission(c *gin.Context) (interface{}, error) {
	if err := h.checkAuthorization(bindBody(c)); err != nil {
		return nil, err
	}
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err = executor.Stop(c.Request.Context()); err != nil {
		return nil, err
	}
	c.Status(http.StatusNoContent)
	return nil, nil
}

// TerminateSubmission tears the batch job down immediately.
func (h *Handler) TerminateSubmission(c *gin.Context) { handle(c, h.terminateSubmission) }

func (h *Handler) terminateSubmission(c *gin.Context) (interface{}, error) {
	if err := h.checkAuthorization(bindBody(c)); err != nil {
		return nil, err
	}
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err = executor.Terminate(c.Request.Context()); err != nil {
		return nil, err
	}
	c.Status(http.StatusNoContent)
	return nil, nil
}

// ListSubmissions returns every tracked submission keyed by id, after
// reconciling each against the cluster.
func (h *Handler) ListSubmissions(c *gin.Context) { handle(c, h.listSubmissions) }

func (h *Handler) listSubmissions(c *gin.Context) (interface{}, error) {
	result := make(map[string]map[string]interface{})
	for _, executor := range h.registry.Executors() {
		executor.Synchronize(c.Request.Context())
		sub := executor.Submission()
		result[sub.AppId] = sub.StatusView()
	}
	return result, nil
}

// GetSubmission returns the status record of one submission.
func (h *Handler) GetSubmission(c *gin.Context) { handle(c, h.getSubmission) }

func (h *Handler) getSubmission(c *gin.Context) (interface{}, error) {
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	sub := executor.Submission()
	return sub.StatusView(), nil
}

// GetSubmissionReport returns the per-item detailed report.
func (h *Handler) GetSubmissionReport(c *gin.Context) { handle(c, h.getSubmissionReport) }

func (h *Handler) getSubmissionReport(c *gin.Context) (interface{}, error) {
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return executor.DetailedReport(c.Request.Context()), nil
}

// GetSubmissionErrors returns the failed work-queue items.
func (h *Handler) GetSubmissionErrors(c *gin.Context) { handle(c, h.getSubmissionErrors) }

func (h *Handler) getSubmissionErrors(c *gin.Context) (interface{}, error) {
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return executor.Errors(c.Request.Context()), nil
}

// GetSubmissionLog returns the execution, stderr and stdout logs
// collected for a submission.
func (h *Handler) GetSubmissionLog(c *gin.Context) { handle(c, h.getSubmissionLog) }

func (h *Handler) getSubmissionLog(c *gin.Context) (interface{}, error) {
	appId := c.Param("id")
	if _, err := h.registry.Get(appId); err != nil {
		return nil, err
	}
	logs := gin.H{}
	for _, name := range []string{"execution", "stderr", "stdout"} {
		logs[name] = readLogLines(filepath.Join(h.logsDir, appId, name))
	}
	return logs, nil
}

func readLogLines(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return []string{}
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return []string{}
	}
	return lines
}

// GetSubmissionVisualizer returns the dashboard URL of a submission.
func (h *Handler) GetSubmissionVisualizer(c *gin.Context) { handle(c, h.getSubmissionVisualizer) }

func (h *Handler) getSubmissionVisualizer(c *gin.Context) (interface{}, error) {
	executor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return gin.H{"visualizer_url": executor.Submission().VisualizerURL}, nil
}

// DeleteSubmission removes a finished submission record.
func (h *Handler) DeleteSubmission(c *gin.Context) { handle(c, h.deleteSubmission) }

func (h *Handler) deleteSubmission(c *gin.Context) (interface{}, error) {
	if err := h.checkAuthorization(bindBody(c)); err != nil {
		return nil, err
	}
	appId := c.Param("id")
	if err := h.registry.Delete(appId); err != nil {
		return nil, err
	}
	return gin.H{"job_id": appId}, nil
}

// DeleteSubmissions removes every deletable submission record.
func (h *Handler) DeleteSubmissions(c *gin.Context) { handle(c, h.deleteSubmissions) }

func (h *Handler) deleteSubmissions(c *gin.Context) (interface{}, error) {
	if err := h.checkAuthorization(bindBody(c)); err != nil {
		return nil, err
	}
	h.registry.DeleteAll()
	return h.listSubmissions(c)
}
