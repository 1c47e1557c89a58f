/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package submission_handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/ufcg-lsd/asperathos-manager/pkg/broker"
	"github.com/ufcg-lsd/asperathos-manager/pkg/orchestrator"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence/sqlite"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

type fakeOrchestrator struct {
	mu   sync.Mutex
	jobs map[string]orchestrator.JobState
}

func (f *fakeOrchestrator) setJobState(appId string, state orchestrator.JobState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[appId] = state
}

func (f *fakeOrchestrator) ProvisionWorkQueue(ctx context.Context, appId string) (string, int32, error) {
	return "10.0.0.7", 31000, nil
}

func (f *fakeOrchestrator) CreateMetricsDB(ctx context.Context, appId string) (int32, error) {
	return 32000, nil
}

func (f *fakeOrchestrator) CreateJob(ctx context.Context, spec *orchestrator.JobSpec) error {
	f.setJobState(spec.AppId, orchestrator.JobState{Active: true})
	return nil
}

func (f *fakeOrchestrator) GetJobState(ctx context.Context, appId string) (orchestrator.JobState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.jobs[appId]
	if !ok {
		return orchestrator.JobState{}, apierrors.NewNotFound(
			schema.GroupResource{Group: "batch", Resource: "jobs"}, appId)
	}
	return state, nil
}

func (f *fakeOrchestrator) TerminateJob(ctx context.Context, appId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, appId)
	return nil
}

func (f *fakeOrchestrator) DeleteQueueResources(ctx context.Context, appId string) {}

func (f *fakeOrchestrator) DeleteMetricsResources(ctx context.Context, appId string) {}

type fakeMonitor struct{}

func (f *fakeMonitor) Start(appId, plugin string, info map[string]interface{}, period int) error {
	return nil
}
func (f *fakeMonitor) Stop(appId string) error { return nil }
func (f *fakeMonitor) Report(appId string) (int, []byte, error) {
	return 200, []byte(`{"progress":"100%"}`), nil
}
func (f *fakeMonitor) DetailedReport(appId string) ([]byte, error) {
	return []byte(`{"item1":"2.1s"}`), nil
}

type fakeController struct{}

func (f *fakeController) Start(appId string, payload map[string]interface{}) error { return nil }

func (f *fakeController) Stop(appId string) error { return nil }

type fakeVisualizer struct{}

func (f *fakeVisualizer) Start(appId string, info map[string]interface{}) error { return nil }

func (f *fakeVisualizer) Stop(appId string, info map[string]interface{}) error { return nil }

func (f *fakeVisualizer) URL(appId string) (string, error) { return "http://grafana/d/abc", nil }

type fakeQueue struct{}

func (f *fakeQueue) Ping(ctx context.Context) error { return nil }

func (f *fakeQueue) Fill(ctx context.Context, items []string) error { return nil }

func (f *fakeQueue) Stop(ctx context.Context) error { return nil }

func (f *fakeQueue) Errors(ctx context.Context) []string { return nil }

func (f *fakeQueue) Close() error { return nil }

type fakeActivator struct{}

func (f *fakeActivator) Activate(name string) error { return nil }

type fakeHTTP struct{}

func (f *fakeHTTP) Get(url string, headers ...string) (*httpclient.Result, error) {
	return &httpclient.Result{StatusCode: 200, Body: []byte("item1\nitem2\n")}, nil
}

func (f *fakeHTTP) Post(url string, body interface{}, headers ...string) (*httpclient.Result, error) {
	return &httpclient.Result{StatusCode: 200}, nil
}

func (f *fakeHTTP) Put(url string, body interface{}, headers ...string) (*httpclient.Result, error) {
	return &httpclient.Result{StatusCode: 200}, nil
}

func (f *fakeHTTP) Delete(url string, headers ...string) (*httpclient.Result, error) {
	return &httpclient.Result{StatusCode: 200}, nil
}

func (f *fakeHTTP) Do(req *http.Request) (*httpclient.Result, error) {
	return &httpclient.Result{StatusCode: 200}, nil
}

type fakeAuthorizer struct {
	allow bool
	err   error
}

func (f *fakeAuthorizer) Authorize(username, password string) (bool, error) {
	return f.allow, f.err
}

func newDeps(t *testing.T, orch *fakeOrchestrator) *broker.Deps {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "broker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &broker.Deps{
		Store:             store,
		Orchestrator:      orch,
		Monitor:           &fakeMonitor{},
		Controller:        &fakeController{},
		Visualizer:        &fakeVisualizer{},
		Clusters:          &fakeActivator{},
		HTTP:              &fakeHTTP{},
		Cleaner:           broker.NewCleaner(time.Millisecond, func(string) {}),
		NewQueue:          func(addr string) broker.WorkQueue { return &fakeQueue{} },
		CheckInterval:     time.Millisecond,
		ReportRetryWindow: 50 * time.Millisecond,
	}
}

func seededCatalog(t *testing.T, deps *broker.Deps) *plugincatalog.Catalog {
	t.Helper()
	catalog := plugincatalog.NewCatalog(deps.Store, nil)
	require.NoError(t, catalog.Seed())
	return catalog
}

func validPluginInfo() map[string]interface{} {
	return map[string]interface{}{
		"cmd":                []interface{}{"python", "run.py"},
		"control_parameters": map[string]interface{}{},
		"control_plugin":     "kubejobs",
		"env_vars":           map[string]interface{}{"APP": "demo"},
		"img":                "worker:latest",
		"init_size":          3,
		"monitor_info":       map[string]interface{}{"expected_time": 300},
		"monitor_plugin":     "kubejobs",
		"redis_workload":     "http://files/workload.txt",
		"enable_visualizer":  false,
	}
}
