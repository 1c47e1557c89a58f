/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package cluster manages the named cluster profiles a submission can
// target. Profiles live on disk under {root}/{name}: the kubeconfig
// blob in {root}/{name}/{name} and certificates as sibling files.
// Activating a profile copies its blob over the kubeconfig path the
// orchestrator loads.
package cluster

import (
	"os"
	"path/filepath"
	"sync"

	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
)

// Profile is one registered cluster.
type Profile struct {
	Name         string            `json:"cluster_name"`
	Config       string            `json:"conf_content"`
	Certificates map[string]string `json:"certificates,omitempty"`
	Active       bool              `json:"active"`
}

// Registry keeps the profile set consistent between memory and disk. At
// most one profile is active at a time.
type Registry struct {
	mu             sync.Mutex
	root           string
	kubeConfigPath string
	profiles       map[string]*Profile
	active         string
}

// NewRegistry opens the registry rooted at root, reloading any profiles
// a previous run left on disk. The active bit does not survive a
// restart; the kubeconfig file itself does.
func NewRegistry(root, kubeConfigPath string) (*Registry, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	r := &Registry{
		root:           root,
		kubeConfigPath: kubeConfigPath,
		profiles:       make(map[string]*Profile),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		config, err := os.ReadFile(r.configPath(name))
		if err != nil {
			klog.ErrorS(err, "skipping cluster profile without config blob", "name", name)
			continue
		}
		profile := &Profile{
			Name:         name,
			Config:       string(config),
			Certificates: make(map[string]string),
		}
		files, err := os.ReadDir(filepath.Join(r.root, name))
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.Name() == name || file.IsDir() {
				continue
			}
			content, err := os.ReadFile(filepath.Join(r.root, name, file.Name()))
			if err != nil {
				return err
			}
			profile.Certificates[file.Name()] = string(content)
		}
		r.profiles[name] = profile
	}
	if len(r.profiles) > 0 {
		klog.Infof("reloaded %d cluster profiles from %s", len(r.profiles), r.root)
	}
	return nil
}

func (r *Registry) configPath(name string) string {
	return filepath.Join(r.root, name, name)
}

// Add registers a new profile. Adding an existing name is a conflict.
func (r *Registry) Add(name, config string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; ok {
		return errors.NewConflict("cluster %s already exists", name)
	}
	if err := os.MkdirAll(filepath.Join(r.root, name), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(r.configPath(name), []byte(config), 0600); err != nil {
		return err
	}
	r.profiles[name] = &Profile{
		Name:         name,
		Config:       config,
		Certificates: make(map[string]string),
	}
	klog.Infof("added cluster profile %s", name)
	return nil
}

// AddCertificate stores a named certificate under an existing profile.
func (r *Registry) AddCertificate(cluster, name, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[cluster]
	if !ok {
		return errors.NewNotFound("cluster %s does not exist", cluster)
	}
	if _, ok = profile.Certificates[name]; ok {
		return errors.NewConflict("certificate %s already exists for cluster %s", name, cluster)
	}
	if err := os.WriteFile(filepath.Join(r.root, cluster, name), []byte(content), 0600); err != nil {
		return err
	}
	profile.Certificates[name] = content
	return nil
}

// DeleteCertificate removes a named certificate from a profile.
func (r *Registry) DeleteCertificate(cluster, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[cluster]
	if !ok {
		return errors.NewNotFound("cluster %s does not exist", cluster)
	}
	if _, ok = profile.Certificates[name]; !ok {
		return errors.NewNotFound("certificate %s does not exist for cluster %s", name, cluster)
	}
	if err := os.Remove(filepath.Join(r.root, cluster, name)); err != nil {
		return err
	}
	delete(profile.Certificates, name)
	return nil
}

// Delete removes a profile. Deleting the active profile truncates the
// kubeconfig file so the orchestrator cannot keep targeting a cluster
// that no longer has a profile.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; !ok {
		return errors.NewNotFound("cluster %s does not exist", name)
	}
	if r.active == name {
		if err := os.WriteFile(r.kubeConfigPath, nil, 0600); err != nil {
			return err
		}
		r.active = ""
	}
	if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
		return err
	}
	delete(r.profiles, name)
	klog.Infof("deleted cluster profile %s", name)
	return nil
}

// Activate makes the named profile the one the orchestrator targets.
// Re-activating the active profile rewrites the kubeconfig and is not
// an error.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[name]
	if !ok {
		return errors.NewNotFound("cluster %s does not exist", name)
	}
	if err := os.MkdirAll(filepath.Dir(r.kubeConfigPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(r.kubeConfigPath, []byte(profile.Config), 0600); err != nil {
		return err
	}
	if r.active != "" && r.active != name {
		r.profiles[r.active].Active = false
	}
	profile.Active = true
	r.active = name
	klog.Infof("activated cluster profile %s", name)
	return nil
}

// List returns a snapshot of every profile.
func (r *Registry) List() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		result = append(result, *profile)
	}
	return result
}

// Active returns the active profile, or nil when none is active.
func (r *Registry) Active() *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == "" {
		return nil
	}
	snapshot := *r.profiles[r.active]
	return &snapshot
}
