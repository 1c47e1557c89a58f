/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	kubeConfig := filepath.Join(dir, "kubeconfig")
	r, err := NewRegistry(filepath.Join(dir, "clusters"), kubeConfig)
	require.NoError(t, err)
	return r, kubeConfig
}

func TestAddWritesProfileDir(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Add("prod", "apiVersion: v1\nkind: Config\n"))

	blob, err := os.ReadFile(filepath.Join(r.root, "prod", "prod"))
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1\nkind: Config\n", string(blob))

	err = r.Add("prod", "other")
	assert.True(t, apierrors.IsConflict(err))
}

func TestActivateCopiesConfigAndFlipsBits(t *testing.T) {
	r, kubeConfig := newTestRegistry(t)
	require.NoError(t, r.Add("prod", "prod-config"))
	require.NoError(t, r.Add("staging", "staging-config"))

	require.NoError(t, r.Activate("prod"))
	blob, err := os.ReadFile(kubeConfig)
	require.NoError(t, err)
	assert.Equal(t, "prod-config", string(blob))
	assert.Equal(t, "prod", r.Active().Name)

	// activating another profile deactivates the first
	require.NoError(t, r.Activate("staging"))
	blob, err = os.ReadFile(kubeConfig)
	require.NoError(t, err)
	assert.Equal(t, "staging-config", string(blob))

	var activeCount int
	for _, profile := range r.List() {
		if profile.Active {
			activeCount++
			assert.Equal(t, "staging", profile.Name)
		}
	}
	assert.Equal(t, 1, activeCount)

	assert.True(t, apierrors.IsNotFound(r.Activate("missing")))
}

func TestDeleteActiveTruncatesKubeConfig(t *testing.T) {
	r, kubeConfig := newTestRegistry(t)
	require.NoError(t, r.Add("prod", "prod-config"))
	require.NoError(t, r.Activate("prod"))

	require.NoError(t, r.Delete("prod"))
	blob, err := os.ReadFile(kubeConfig)
	require.NoError(t, err)
	assert.Empty(t, blob)
	assert.Nil(t, r.Active())
	assert.True(t, apierrors.IsNotFound(r.Delete("prod")))
}

func TestCertificates(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Add("prod", "prod-config"))

	require.NoError(t, r.AddCertificate("prod", "ca.crt", "cert-bytes"))
	blob, err := os.ReadFile(filepath.Join(r.root, "prod", "ca.crt"))
	require.NoError(t, err)
	assert.Equal(t, "cert-bytes", string(blob))

	assert.True(t, apierrors.IsConflict(r.AddCertificate("prod", "ca.crt", "x")))
	assert.True(t, apierrors.IsNotFound(r.AddCertificate("missing", "ca.crt", "x")))

	require.NoError(t, r.DeleteCertificate("prod", "ca.crt"))
	_, err = os.Stat(filepath.Join(r.root, "prod", "ca.crt"))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, apierrors.IsNotFound(r.DeleteCertificate("prod", "ca.crt")))
}

func TestReloadFromDisk(t *testing.T) {
	r, kubeConfig := newTestRegistry(t)
	require.NoError(t, r.Add("prod", "prod-config"))
	require.NoError(t, r.AddCertificate("prod", "ca.crt", "cert-bytes"))

	reloaded, err := NewRegistry(r.root, kubeConfig)
	require.NoError(t, err)
	profiles := reloaded.List()
	require.Len(t, profiles, 1)
	assert.Equal(t, "prod", profiles[0].Name)
	assert.Equal(t, "prod-config", profiles[0].Config)
	assert.Equal(t, "cert-bytes", profiles[0].Certificates["ca.crt"])
}
