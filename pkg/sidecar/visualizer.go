/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package sidecar

import (
	"fmt"
	"net/http"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

// Visualizer drives the dashboard collaborator.
type Visualizer struct {
	base string
	http httpclient.Interface
}

func NewVisualizer(base string, client httpclient.Interface) *Visualizer {
	return &Visualizer{base: base, http: client}
}

// Start creates the submission's dashboard from the visualizer info
// assembled by the executor.
func (v *Visualizer) Start(appId string, info map[string]interface{}) error {
	result, err := v.http.Post(fmt.Sprintf("%s/visualizing/%s", v.base, appId), info)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("visualizer refused to start for %s: %s", appId, result)
	}
	return nil
}

// Stop tears down the dashboard. Only the plugin identity fields travel
// in the stop body.
func (v *Visualizer) Stop(appId string, info map[string]interface{}) error {
	body := map[string]interface{}{
		"plugin":            info["plugin"],
		"visualizer_plugin": info["visualizer_plugin"],
		"datasource_type":   info["datasource_type"],
	}
	result, err := v.http.Put(fmt.Sprintf("%s/visualizing/%s/stop", v.base, appId), body)
	if err != nil {
		return err
	}
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return errors.NewInternalError("visualizer refused to stop for %s: %s", appId, result)
	}
	return nil
}

// URL returns the dashboard address the visualizer generated for the
// submission.
func (v *Visualizer) URL(appId string) (string, error) {
	result, err := v.http.Get(fmt.Sprintf("%s/visualizing/%s", v.base, appId))
	if err != nil {
		return "", err
	}
	if !result.IsSuccess() {
		return "", errors.NewNotFound("no dashboard for %s", appId)
	}
	var reply struct {
		URL string `json:"url"`
	}
	if err = result.Into(&reply); err != nil {
		return "", err
	}
	return reply.URL, nil
}

// InstallPlugin forwards a plugin install request to the visualizer.
func (v *Visualizer) InstallPlugin(source, plugin string) error {
	body := map[string]string{
		"install_source": source,
		"plugin_source":  plugin,
	}
	result, err := v.http.Post(fmt.Sprintf("%s/plugins", v.base), body)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("visualizer refused plugin install: %s", result)
	}
	return nil
}
