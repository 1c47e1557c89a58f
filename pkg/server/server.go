/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/broker"
	"github.com/ufcg-lsd/asperathos-manager/pkg/cluster"
	"github.com/ufcg-lsd/asperathos-manager/pkg/config"
	"github.com/ufcg-lsd/asperathos-manager/pkg/handlers"
	"github.com/ufcg-lsd/asperathos-manager/pkg/options"
	"github.com/ufcg-lsd/asperathos-manager/pkg/orchestrator"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence/etcd"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence/sqlite"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
	"github.com/ufcg-lsd/asperathos-manager/pkg/sidecar"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
	brokerklog "github.com/ufcg-lsd/asperathos-manager/pkg/utils/klog"
	"github.com/ufcg-lsd/asperathos-manager/pkg/workqueue"
)

const (
	// jobCheckInterval paces the per-submission wait loop.
	jobCheckInterval = 5 * time.Second
	// reportRetryWindow bounds the final report fetch after a job ends.
	reportRetryWindow = 10 * time.Minute
)

type Server struct {
	opts       *options.Options
	httpServer *http.Server

	store    persistence.Store
	registry *broker.Registry

	ctx      context.Context
	cancel   context.CancelFunc
	isInited bool
}

// NewServer creates and returns a new Server instance.
func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &Server{ctx: ctx, cancel: cancel, opts: &options.Options{}}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init parses flags, initializes logging, loads the configuration and
// assembles the broker components.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = brokerklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if err = s.initComponents(); err != nil {
		klog.ErrorS(err, "failed to init broker components")
		return err
	}
	s.isInited = true
	return nil
}

func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = config.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) initComponents() error {
	store, err := newStore()
	if err != nil {
		return err
	}
	s.store = store

	clusters, err := cluster.NewRegistry(config.GetClusterRoot(), config.GetKubeConfigPath())
	if err != nil {
		return err
	}

	httpClient := httpclient.NewClient()
	monitor := sidecar.NewMonitor(config.GetMonitorURL(), httpClient)
	controller := sidecar.NewController(config.GetControllerURL(), httpClient)
	visualizer := sidecar.NewVisualizer(config.GetVisualizerURL(), httpClient)
	authorizer := sidecar.NewAuthorizer(config.GetAuthorizationURL(), httpClient)

	catalog := plugincatalog.NewCatalog(store, map[plugincatalog.Component]plugincatalog.Installer{
		plugincatalog.ComponentController: controller,
		plugincatalog.ComponentMonitor:    monitor,
		plugincatalog.ComponentVisualizer: visualizer,
	})
	if err = catalog.Seed(); err != nil {
		return err
	}

	// the orchestrator re-reads the kubeconfig per call, so cluster
	// activation through the registry takes effect immediately
	orch := orchestrator.New(config.GetKubeConfigPath(), config.GetNamespace(), config.GetQueueIP())

	// the cleaner resolves executors through the registry at fire time
	cleaner := broker.NewCleaner(config.GetCleanerInterval(), func(appId string) {
		executor, err := s.registry.Get(appId)
		if err != nil {
			klog.ErrorS(err, "no executor for expired resources", "app", appId)
			return
		}
		executor.DeleteJobResources(context.Background())
	})

	deps := &broker.Deps{
		Store:             store,
		Orchestrator:      orch,
		Monitor:           monitor,
		Controller:        controller,
		Visualizer:        visualizer,
		Clusters:          clusters,
		HTTP:              httpClient,
		Cleaner:           cleaner,
		NewQueue:          func(addr string) broker.WorkQueue { return workqueue.New(addr) },
		CheckInterval:     jobCheckInterval,
		ReportRetryWindow: reportRetryWindow,
	}
	s.registry = broker.NewRegistry(deps)
	if err = s.registry.Rehydrate(s.ctx); err != nil {
		return err
	}

	engine := handlers.InitHttpHandlers(&handlers.Config{
		Registry:   s.registry,
		Clusters:   clusters,
		Catalog:    catalog,
		Authorizer: authorizer,
		Deps:       deps,
		LogsDir:    config.GetAppLogsDir(),
		SSHKeyPath: config.GetSSHKeyPath(),
	})
	addr := fmt.Sprintf("%s:%d", config.GetServerHost(), config.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: engine}
	return nil
}

func newStore() (persistence.Store, error) {
	switch driver := config.GetPersistenceDriver(); driver {
	case config.DriverSqlite:
		if err := os.MkdirAll(filepath.Dir(config.GetSqlitePath()), 0755); err != nil {
			return nil, err
		}
		return sqlite.NewStore(config.GetSqlitePath())
	case config.DriverEtcd:
		return etcd.NewStore(config.GetEtcdEndpoints())
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", driver)
	}
}

// Start runs the HTTP server until the process receives a stop signal.
func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the broker server first")
		return
	}
	klog.Infof("starting broker server")
	go func() {
		klog.Infof("http-server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

// Stop gracefully shuts the HTTP server down and closes the store.
func (s *Server) Stop() {
	defer s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	klog.Info("shutting down http server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		klog.ErrorS(err, "failed to shutdown http server")
	}
	if err := s.store.Close(); err != nil {
		klog.ErrorS(err, "failed to close the store")
	}
	klog.Info("broker server is stopped")
	klog.Flush()
}
