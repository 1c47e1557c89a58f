/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `[general]
host = 127.0.0.1
port = 1501
plugins = kubejobs, k8s-grafana
cleaner_interval = 2

[services]
monitor_url = http://monitor:6001
controller_url = http://controller:6002
visualizer_url = http://visualizer:6003
authorization_url = http://authorizer:6004

[persistence]
driver = etcd
etcd_endpoints = etcd-0:2379,etcd-1:2379

[kubejobs]
k8s_conf_path = /tmp/kubeconfig
queue_ip = 10.0.0.7
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.cfg")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, "127.0.0.1", GetServerHost())
	assert.Equal(t, 1501, GetServerPort())
	assert.Equal(t, []string{"kubejobs", "k8s-grafana"}, GetEnabledPlugins())
	assert.Equal(t, 2*time.Second, GetCleanerInterval())
	assert.Equal(t, "http://monitor:6001", GetMonitorURL())
	assert.Equal(t, "http://controller:6002", GetControllerURL())
	assert.Equal(t, "http://visualizer:6003", GetVisualizerURL())
	assert.Equal(t, "http://authorizer:6004", GetAuthorizationURL())
	assert.Equal(t, DriverEtcd, GetPersistenceDriver())
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, GetEtcdEndpoints())
	assert.Equal(t, "/tmp/kubeconfig", GetKubeConfigPath())
	assert.Equal(t, "10.0.0.7", GetQueueIP())
	assert.Equal(t, "default", GetNamespace())
}

func TestDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.cfg")
	require.NoError(t, os.WriteFile(path, []byte("[general]\n"), 0644))
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, 1500, GetServerPort())
	assert.Equal(t, DriverSqlite, GetPersistenceDriver())
	assert.Equal(t, time.Second, GetCleanerInterval())
	assert.Empty(t, GetQueueIP())
}
