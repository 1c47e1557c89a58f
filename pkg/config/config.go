/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key, value string) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the broker.cfg INI file.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("ini")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getStrings(key string) []string {
	val := viper.GetString(key)
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

// GetServerHost returns the bind address of the REST server.
func GetServerHost() string {
	return getString(serverHost, "0.0.0.0")
}

// GetServerPort returns the REST server port.
func GetServerPort() int {
	return getInt(serverPort, 1500)
}

// GetEnabledPlugins returns the plugin names enabled in the config file.
func GetEnabledPlugins() []string {
	return getStrings(enabledPlugins)
}

// GetCleanerInterval returns the tick period of the cleanup scheduler.
func GetCleanerInterval() time.Duration {
	return time.Duration(getInt(cleanerInterval, 1)) * time.Second
}

// GetSSHKeyPath returns the path of the public key served on /key.
func GetSSHKeyPath() string {
	return getString(sshKeyPath, "/root/.ssh/id_rsa.pub")
}

// GetAppLogsDir returns the directory holding per-submission log files.
func GetAppLogsDir() string {
	return getString(appLogsDir, "logs/apps")
}

// GetMonitorURL returns the base URL of the monitor collaborator.
func GetMonitorURL() string {
	return getString(monitorURL, "")
}

// GetControllerURL returns the base URL of the controller collaborator.
func GetControllerURL() string {
	return getString(controllerURL, "")
}

// GetVisualizerURL returns the base URL of the visualizer collaborator.
func GetVisualizerURL() string {
	return getString(visualizerURL, "")
}

// GetAuthorizationURL returns the base URL of the authorizer service.
func GetAuthorizationURL() string {
	return getString(authorizationURL, "")
}

// GetPersistenceDriver returns which store backs the registries,
// DriverSqlite or DriverEtcd.
func GetPersistenceDriver() string {
	return getString(persistenceDriver, DriverSqlite)
}

// GetEtcdEndpoints returns the etcd cluster endpoints.
func GetEtcdEndpoints() []string {
	return getStrings(etcdEndpoints)
}

// GetSqlitePath returns the path of the embedded database file.
func GetSqlitePath() string {
	return getString(sqlitePath, "/var/lib/broker/broker.db")
}

// GetKubeConfigPath returns the kubeconfig the orchestrator adapter
// loads. Cluster-profile activation rewrites this file.
func GetKubeConfigPath() string {
	return getString(k8sConfPath, "/root/.kube/config")
}

// GetClusterRoot returns the directory that stores cluster profiles.
func GetClusterRoot() string {
	return getString(clusterRoot, "/var/lib/broker/clusters")
}

// GetQueueIP returns the advertised node address for work-queue
// connections. Empty means discover a node address from the cluster.
func GetQueueIP() string {
	return getString(queueIP, "")
}

// GetNamespace returns the namespace all per-submission resources are
// created in.
func GetNamespace() string {
	return getString(queueNamespace, "default")
}
