/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// general
	generalPrefix   = "general."
	serverHost      = generalPrefix + "host"
	serverPort      = generalPrefix + "port"
	enabledPlugins  = generalPrefix + "plugins"
	cleanerInterval = generalPrefix + "cleaner_interval"
	sshKeyPath      = generalPrefix + "ssh_key_path"
	appLogsDir      = generalPrefix + "app_logs_dir"

	// services
	servicesPrefix   = "services."
	monitorURL       = servicesPrefix + "monitor_url"
	controllerURL    = servicesPrefix + "controller_url"
	visualizerURL    = servicesPrefix + "visualizer_url"
	authorizationURL = servicesPrefix + "authorization_url"

	// persistence
	persistencePrefix = "persistence."
	persistenceDriver = persistencePrefix + "driver"
	etcdEndpoints     = persistencePrefix + "etcd_endpoints"
	sqlitePath        = persistencePrefix + "sqlite_path"

	// kubejobs
	kubejobsPrefix = "kubejobs."
	k8sConfPath    = kubejobsPrefix + "k8s_conf_path"
	clusterRoot    = kubejobsPrefix + "cluster_root"
	queueIP        = kubejobsPrefix + "queue_ip"
	queueNamespace = kubejobsPrefix + "namespace"
)

const (
	// DriverSqlite selects the embedded relational store.
	DriverSqlite = "sqlite"
	// DriverEtcd selects the distributed KV store.
	DriverEtcd = "etcd"
)
