/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package sidecar holds the HTTP clients for the collaborator services
// fanned out per submission: monitor, controller, visualizer and the
// authorizer consulted at admission.
package sidecar

import (
	"fmt"
	"net/http"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

// Monitor drives the monitoring collaborator.
type Monitor struct {
	base string
	http httpclient.Interface
}

func NewMonitor(base string, client httpclient.Interface) *Monitor {
	return &Monitor{base: base, http: client}
}

// Start begins metric collection for the submission.
func (m *Monitor) Start(appId, plugin string, pluginInfo map[string]interface{}, collectPeriod int) error {
	body := map[string]interface{}{
		"plugin":         plugin,
		"plugin_info":    pluginInfo,
		"collect_period": collectPeriod,
	}
	result, err := m.http.Post(fmt.Sprintf("%s/monitoring/%s", m.base, appId), body)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("monitor refused to start for %s: %s", appId, result)
	}
	return nil
}

// Stop ends metric collection. Stopping a submission the monitor no
// longer tracks is not an error.
func (m *Monitor) Stop(appId string) error {
	result, err := m.http.Put(fmt.Sprintf("%s/monitoring/%s/stop", m.base, appId), nil)
	if err != nil {
		return err
	}
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return errors.NewInternalError("monitor refused to stop for %s: %s", appId, result)
	}
	return nil
}

// Report fetches the submission's report. The raw status code is
// returned alongside the body: the driver retries until the monitor
// answers 200 (report ready) or 400 (monitoring gone).
func (m *Monitor) Report(appId string) (int, []byte, error) {
	result, err := m.http.Get(fmt.Sprintf("%s/monitoring/%s/report", m.base, appId))
	if err != nil {
		return 0, nil, err
	}
	return result.StatusCode, result.Body, nil
}

// DetailedReport fetches the per-item detailed report.
func (m *Monitor) DetailedReport(appId string) ([]byte, error) {
	result, err := m.http.Get(fmt.Sprintf("%s/monitoring/%s/report/detailed", m.base, appId))
	if err != nil {
		return nil, err
	}
	if !result.IsSuccess() {
		return nil, errors.NewNotFound("no detailed report for %s", appId)
	}
	return result.Body, nil
}

// InstallPlugin forwards a plugin install request to the monitor.
func (m *Monitor) InstallPlugin(source, plugin string) error {
	body := map[string]string{
		"install_source": source,
		"plugin_source":  plugin,
	}
	result, err := m.http.Post(fmt.Sprintf("%s/plugins", m.base), body)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("monitor refused plugin install: %s", result)
	}
	return nil
}
