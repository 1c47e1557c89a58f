/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package plugincatalog tracks which execution plugins are installed,
// per component. Admission resolves (plugin name, manager) here before
// starting an executor; installs targeting a collaborator component are
// forwarded to that service.
package plugincatalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence"
)

// Component names the services a plugin can extend.
type Component string

const (
	ComponentManager    Component = "manager"
	ComponentController Component = "controller"
	ComponentMonitor    Component = "monitor"
	ComponentVisualizer Component = "visualizer"
)

// KeyPrefix namespaces plugin records in the persistence store.
const KeyPrefix = "plugin-"

// Plugin is one installed plugin for one component.
type Plugin struct {
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	PluginSource string    `json:"plugin_source"`
	Module       string    `json:"module"`
	Component    Component `json:"component"`
}

// Installer forwards a plugin install to a collaborator service.
type Installer interface {
	InstallPlugin(source, plugin string) error
}

// basicPlugins is the seed set: the kubejobs execution plugin across
// manager, controller and monitor, and the grafana visualizer.
var basicPlugins = []Plugin{
	{Name: "kubejobs", Component: ComponentManager, Module: "kubejobs"},
	{Name: "kubejobs", Component: ComponentController, Module: "kubejobs"},
	{Name: "kubejobs", Component: ComponentMonitor, Module: "kubejobs"},
	{Name: "k8s-grafana", Component: ComponentVisualizer, Module: "k8s-grafana"},
}

// Catalog is the plugin registry.
type Catalog struct {
	mu         sync.RWMutex
	store      persistence.Store
	installers map[Component]Installer
}

// NewCatalog builds a catalog over the store. installers maps each
// collaborator component to its install forwarder; the manager
// component never forwards.
func NewCatalog(store persistence.Store, installers map[Component]Installer) *Catalog {
	return &Catalog{store: store, installers: installers}
}

func key(name string, component Component) string {
	return fmt.Sprintf("%s%s-%s", KeyPrefix, name, component)
}

// Seed makes sure the basic plugins are registered. Records already in
// the store are left untouched.
func (c *Catalog) Seed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, plugin := range basicPlugins {
		blob, err := c.store.Get(key(plugin.Name, plugin.Component))
		if err != nil {
			return err
		}
		if blob != nil {
			continue
		}
		if err = c.put(plugin); err != nil {
			return err
		}
		klog.Infof("seeded plugin %s for component %s", plugin.Name, plugin.Component)
	}
	return nil
}

func (c *Catalog) put(plugin Plugin) error {
	blob, err := json.Marshal(plugin)
	if err != nil {
		return err
	}
	return c.store.Put(key(plugin.Name, plugin.Component), blob)
}

// Install registers a plugin and, for collaborator components, forwards
// the install to the owning service.
func (c *Catalog) Install(plugin Plugin) error {
	if plugin.Name == "" || plugin.Component == "" {
		return errors.NewBadRequest("plugin name and component are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.put(plugin); err != nil {
		return err
	}
	if installer, ok := c.installers[plugin.Component]; ok {
		if err := installer.InstallPlugin(plugin.Source, plugin.PluginSource); err != nil {
			return err
		}
	}
	klog.Infof("installed plugin %s for component %s", plugin.Name, plugin.Component)
	return nil
}

// Resolve returns the plugin registered under (name, component).
func (c *Catalog) Resolve(name string, component Component) (*Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blob, err := c.store.Get(key(name, component))
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, errors.NewBadRequest("unknown plugin %s for component %s", name, component)
	}
	var plugin Plugin
	if err = json.Unmarshal(blob, &plugin); err != nil {
		return nil, err
	}
	return &plugin, nil
}

// List returns every registered plugin.
func (c *Catalog) List() ([]Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records, err := c.store.GetAll(KeyPrefix)
	if err != nil {
		return nil, err
	}
	result := make([]Plugin, 0, len(records))
	for _, blob := range records {
		var plugin Plugin
		if err = json.Unmarshal(blob, &plugin); err != nil {
			return nil, err
		}
		result = append(result, plugin)
	}
	return result, nil
}
