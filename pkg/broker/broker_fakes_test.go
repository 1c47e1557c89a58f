/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

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

	"github.com/ufcg-lsd/asperathos-manager/pkg/orchestrator"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence/sqlite"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

type fakeOrchestrator struct {
	mu sync.Mutex

	jobs       map[string]orchestrator.JobState
	queues     map[string]bool
	metrics    map[string]bool
	provisions int

	provisionErr error
	createErr    error
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		jobs:    map[string]orchestrator.JobState{},
		queues:  map[string]bool{},
		metrics: map[string]bool{},
	}
}

func (f *fakeOrchestrator) setJobState(appId string, state orchestrator.JobState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[appId] = state
}

func (f *fakeOrchestrator) ProvisionWorkQueue(ctx context.Context, appId string) (string, int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisions++
	if f.provisionErr != nil {
		return "", 0, f.provisionErr
	}
	f.queues[appId] = true
	return "10.0.0.7", 31000, nil
}

func (f *fakeOrchestrator) CreateMetricsDB(ctx context.Context, appId string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[appId] = true
	return 32000, nil
}

func (f *fakeOrchestrator) CreateJob(ctx context.Context, spec *orchestrator.JobSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.jobs[spec.AppId] = orchestrator.JobState{Active: true}
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

func (f *fakeOrchestrator) DeleteQueueResources(ctx context.Context, appId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queues, appId)
}

func (f *fakeOrchestrator) DeleteMetricsResources(ctx context.Context, appId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metrics, appId)
}

type fakeMonitor struct {
	mu          sync.Mutex
	started     []string
	stopped     []string
	reportCode  int
	reportBody  []byte
	detailed    []byte
	detailedErr error
}

func (f *fakeMonitor) Start(appId, plugin string, info map[string]interface{}, period int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, appId)
	return nil
}

func (f *fakeMonitor) Stop(appId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, appId)
	return nil
}

func (f *fakeMonitor) Report(appId string) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reportCode, f.reportBody, nil
}

func (f *fakeMonitor) DetailedReport(appId string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailed, f.detailedErr
}

type fakeController struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (f *fakeController) Start(appId string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, appId)
	return nil
}

func (f *fakeController) Stop(appId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, appId)
	return nil
}

type fakeVisualizer struct {
	mu      sync.Mutex
	started []string
	stopped []string
	url     string
}

func (f *fakeVisualizer) Start(appId string, info map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, appId)
	return nil
}

func (f *fakeVisualizer) Stop(appId string, info map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, appId)
	return nil
}

func (f *fakeVisualizer) URL(appId string) (string, error) {
	return f.url, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	items   []string
	stopped bool
	errs    []string
}

func (f *fakeQueue) Ping(ctx context.Context) error { return nil }

func (f *fakeQueue) Fill(ctx context.Context, items []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeQueue) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.stopped = true
	return nil
}

func (f *fakeQueue) Errors(ctx context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.errs...)
}

func (f *fakeQueue) Close() error { return nil }

type fakeActivator struct {
	mu        sync.Mutex
	activated []string
}

func (f *fakeActivator) Activate(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, name)
	return nil
}

// fakeHTTP serves the workload file.
type fakeHTTP struct {
	body   string
	status int
}

func (f *fakeHTTP) Get(url string, headers ...string) (*httpclient.Result, error) {
	status := f.status
	if status == 0 {
		status = 200
	}
	return &httpclient.Result{StatusCode: status, Body: []byte(f.body)}, nil
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

type fixture struct {
	deps       *Deps
	orch       *fakeOrchestrator
	monitor    *fakeMonitor
	controller *fakeController
	visualizer *fakeVisualizer
	queue      *fakeQueue
	activator  *fakeActivator
	teardowns  *teardownRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "broker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		orch:       newFakeOrchestrator(),
		monitor:    &fakeMonitor{reportCode: 200, reportBody: []byte(`{"progress":"100%"}`)},
		controller: &fakeController{},
		visualizer: &fakeVisualizer{url: "http://grafana/d/abc"},
		queue:      &fakeQueue{},
		activator:  &fakeActivator{},
		teardowns:  &teardownRecorder{},
	}
	f.deps = &Deps{
		Store:             store,
		Orchestrator:      f.orch,
		Monitor:           f.monitor,
		Controller:        f.controller,
		Visualizer:        f.visualizer,
		Clusters:          f.activator,
		HTTP:              &fakeHTTP{body: "item1\nitem2\nitem3\n"},
		Cleaner:           NewCleaner(time.Millisecond, f.teardowns.record),
		NewQueue:          func(addr string) WorkQueue { return f.queue },
		CheckInterval:     time.Millisecond,
		ReportRetryWindow: 50 * time.Millisecond,
	}
	return f
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"cmd":                []interface{}{"python", "run.py"},
		"control_parameters": map[string]interface{}{},
		"control_plugin":     "kubejobs",
		"env_vars":           map[string]interface{}{"APP": "demo"},
		"img":                "worker:latest",
		"init_size":          float64(3),
		"monitor_info":       map[string]interface{}{"expected_time": float64(300)},
		"monitor_plugin":     "kubejobs",
		"redis_workload":     "http://files/workload.txt",
		"enable_visualizer":  false,
		"config_id":          "cfg-1",
	}
}
