/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package submission_handlers

import (
	"github.com/gin-gonic/gin"
)

const rootPath = "/v1"

// InitSubmissionRouters registers the submission API routes.
func InitSubmissionRouters(e *gin.Engine, h *Handler) {
	group := e.Group(rootPath)
	{
		group.POST("submissions", h.CreateSubmission)
		group.GET("submissions", h.ListSubmissions)
		group.DELETE("submissions", h.DeleteSubmissions)
		group.GET("submissions/:id", h.GetSubmission)
		group.DELETE("submissions/:id", h.DeleteSubmission)
		group.PUT("submissions/:id/stop", h.StopSubmission)
		group.PUT("submissions/:id/terminate", h.TerminateSubmission)
		group.GET("submissions/:id/report", h.GetSubmissionReport)
		group.GET("submissions/:id/errors", h.GetSubmissionErrors)
		group.GET("submissions/:id/log", h.GetSubmissionLog)
		group.GET("submissions/:id/visualizer", h.GetSubmissionVisualizer)
	}
}
