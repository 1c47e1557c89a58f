/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// Logger returns the request-logging middleware. Every request is
// logged once with its status and latency; handler errors collected on
// the context are logged alongside.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			klog.Errorf("%s %s %d %v %s", c.Request.Method, c.Request.URL.Path,
				status, latency, c.Errors.String())
			return
		}
		klog.Infof("%s %s %d %v", c.Request.Method, c.Request.URL.Path,
			status, latency)
	}
}
