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

// Controller drives the scaling collaborator.
type Controller struct {
	base string
	http httpclient.Interface
}

func NewController(base string, client httpclient.Interface) *Controller {
	return &Controller{base: base, http: client}
}

// Start hands the submission payload to the controller so it can scale
// the job's parallelism against the configured strategy.
func (c *Controller) Start(appId string, payload map[string]interface{}) error {
	result, err := c.http.Post(fmt.Sprintf("%s/scaling/%s", c.base, appId), payload)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("controller refused to start for %s: %s", appId, result)
	}
	return nil
}

// Stop ends scaling for the submission. An unknown submission is not an
// error.
func (c *Controller) Stop(appId string) error {
	result, err := c.http.Put(fmt.Sprintf("%s/scaling/%s/stop", c.base, appId), nil)
	if err != nil {
		return err
	}
	if !result.IsSuccess() && result.StatusCode != http.StatusNotFound {
		return errors.NewInternalError("controller refused to stop for %s: %s", appId, result)
	}
	return nil
}

// InstallPlugin forwards a plugin install request to the controller.
func (c *Controller) InstallPlugin(source, plugin string) error {
	body := map[string]string{
		"install_source": source,
		"plugin_source":  plugin,
	}
	result, err := c.http.Post(fmt.Sprintf("%s/plugins", c.base), body)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return errors.NewInternalError("controller refused plugin install: %s", result)
	}
	return nil
}
