/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/orchestrator"
	"github.com/ufcg-lsd/asperathos-manager/pkg/persistence"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

// ClusterOrchestrator is the slice of the Kubernetes adapter the
// executor drives.
type ClusterOrchestrator interface {
	ProvisionWorkQueue(ctx context.Context, appId string) (string, int32, error)
	CreateMetricsDB(ctx context.Context, appId string) (int32, error)
	CreateJob(ctx context.Context, spec *orchestrator.JobSpec) error
	GetJobState(ctx context.Context, appId string) (orchestrator.JobState, error)
	TerminateJob(ctx context.Context, appId string) error
	DeleteQueueResources(ctx context.Context, appId string)
	DeleteMetricsResources(ctx context.Context, appId string)
}

// MonitorClient mirrors the monitor sidecar surface.
type MonitorClient interface {
	Start(appId, plugin string, pluginInfo map[string]interface{}, collectPeriod int) error
	Stop(appId string) error
	Report(appId string) (int, []byte, error)
	DetailedReport(appId string) ([]byte, error)
}

// ControllerClient mirrors the controller sidecar surface.
type ControllerClient interface {
	Start(appId string, payload map[string]interface{}) error
	Stop(appId string) error
}

// VisualizerClient mirrors the visualizer sidecar surface.
type VisualizerClient interface {
	Start(appId string, info map[string]interface{}) error
	Stop(appId string, info map[string]interface{}) error
	URL(appId string) (string, error)
}

// WorkQueue mirrors the per-submission queue handle.
type WorkQueue interface {
	Ping(ctx context.Context) error
	Fill(ctx context.Context, items []string) error
	Stop(ctx context.Context) error
	Errors(ctx context.Context) []string
	Close() error
}

// ClusterActivator switches the target cluster before provisioning.
type ClusterActivator interface {
	Activate(name string) error
}

// Deps bundles the collaborators every executor shares.
type Deps struct {
	Store        persistence.Store
	Orchestrator ClusterOrchestrator
	Monitor      MonitorClient
	Controller   ControllerClient
	Visualizer   VisualizerClient
	Clusters     ClusterActivator
	HTTP         httpclient.Interface
	Cleaner      *Cleaner

	// NewQueue opens a handle on the work queue at addr (host:port).
	NewQueue func(addr string) WorkQueue

	// CheckInterval paces the wait loop; ReportRetryWindow bounds the
	// final report fetch.
	CheckInterval     time.Duration
	ReportRetryWindow time.Duration
}

// Executor drives one submission through its lifecycle. All state
// mutations go through the mutex and are persisted as one blob.
type Executor struct {
	mu   sync.Mutex
	sub  *Submission
	deps *Deps

	queue WorkQueue
}

// NewExecutor wraps a submission record. Rehydrated records reconnect
// their queue handle lazily from the persisted queue address.
func NewExecutor(sub *Submission, deps *Deps) *Executor {
	e := &Executor{sub: sub, deps: deps}
	if sub.QueueAddress != "" && sub.QueuePort != 0 {
		e.queue = deps.NewQueue(fmt.Sprintf("%s:%d", sub.QueueAddress, sub.QueuePort))
	}
	return e
}

// Submission returns a snapshot of the record.
func (e *Executor) Submission() Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.sub
}

// AppId returns the submission id.
func (e *Executor) AppId() string {
	return e.sub.AppId
}

// Status returns the current lifecycle state.
func (e *Executor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sub.Status
}

func (e *Executor) persistLocked() {
	blob, err := e.sub.Encode()
	if err != nil {
		klog.ErrorS(err, "failed to encode submission", "app", e.sub.AppId)
		return
	}
	if err = e.deps.Store.Put(e.sub.AppId, blob); err != nil {
		klog.ErrorS(err, "failed to persist submission", "app", e.sub.AppId)
	}
}

func (e *Executor) persist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistLocked()
}

func (e *Executor) setStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sub.Status = status
	e.persistLocked()
}

// Run executes the whole submission flow. Any failure parks the
// submission in the error state with its record persisted.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.run(ctx); err != nil {
		now := time.Now()
		e.mu.Lock()
		e.sub.Terminated = true
		e.sub.Status = StatusError
		if e.sub.FinishTime == nil {
			e.sub.FinishTime = &now
		}
		e.persistLocked()
		e.mu.Unlock()
		klog.ErrorS(err, "submission failed", "app", e.sub.AppId)
		return err
	}
	klog.Infof("submission %s finished with status %s", e.sub.AppId, e.Status())
	return nil
}

func (e *Executor) run(ctx context.Context) error {
	payload := e.sub.Payload
	appId := e.sub.AppId

	e.persist()
	if err := validatePayload(payload); err != nil {
		return err
	}
	e.mu.Lock()
	e.sub.EnableVisualizer, _ = payload["enable_visualizer"].(bool)
	if e.sub.EnableVisualizer {
		e.sub.EnableDetailedReport = true
	}
	if detailed, ok := payload["enable_detailed_report"].(bool); ok {
		e.sub.EnableDetailedReport = detailed
	}
	e.mu.Unlock()

	if name, ok := payload["cluster_name"].(string); ok && name != "" {
		if err := e.deps.Clusters.Activate(name); err != nil {
			return err
		}
	}

	injectEnvVars(payload, appId)

	address, port, err := e.deps.Orchestrator.ProvisionWorkQueue(ctx, appId)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.sub.QueueAddress = address
	e.sub.QueuePort = port
	e.queue = e.deps.NewQueue(fmt.Sprintf("%s:%d", address, port))
	e.mu.Unlock()

	databaseData, datasourceType, err := e.setupMetricsDB(ctx, payload, address)
	if err != nil {
		return err
	}

	if e.sub.EnableVisualizer {
		updateVisualizerInfo(payload, databaseData)
		if err = e.deps.Visualizer.Start(appId, asMap(payload["visualizer_info"])); err != nil {
			return err
		}
		url, err := e.deps.Visualizer.URL(appId)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.sub.VisualizerURL = url
		e.mu.Unlock()
		klog.Infof("dashboard for %s created on %s", appId, url)
	}
	e.persist()

	items, err := e.fetchWorkload(payload)
	if err != nil {
		return err
	}
	if err = e.queue.Fill(ctx, items); err != nil {
		return err
	}

	if err = e.triggerJob(ctx, payload); err != nil {
		return err
	}

	updateMonitorInfo(payload, e.sub, databaseData, datasourceType, len(items))
	plugin, _ := payload["monitor_plugin"].(string)
	if err = e.deps.Monitor.Start(appId, plugin, asMap(payload["monitor_info"]), 1); err != nil {
		return err
	}
	if err = e.deps.Controller.Start(appId, payload); err != nil {
		return err
	}

	e.WaitJobFinish(ctx)
	return nil
}

func (e *Executor) setupMetricsDB(ctx context.Context, payload map[string]interface{}, address string) (map[string]interface{}, string, error) {
	if !e.sub.EnableDetailedReport {
		return map[string]interface{}{}, "", nil
	}
	info := asMap(payload["visualizer_info"])
	datasourceType, _ := info["datasource_type"].(string)
	if datasourceType != "influxdb" {
		return map[string]interface{}{}, datasourceType, nil
	}
	klog.Infof("creating metrics persistence for %s", e.sub.AppId)
	port, err := e.deps.Orchestrator.CreateMetricsDB(ctx, e.sub.AppId)
	if err != nil {
		return nil, "", err
	}
	return map[string]interface{}{
		"port": port,
		"name": "asperathos",
		"url":  address,
	}, datasourceType, nil
}

func (e *Executor) fetchWorkload(payload map[string]interface{}) ([]string, error) {
	url, _ := payload["redis_workload"].(string)
	result, err := e.deps.HTTP.Get(url)
	if err != nil {
		return nil, err
	}
	if !result.IsSuccess() {
		return nil, errors.NewBadRequest("workload fetch from %s failed: %s", url, result)
	}
	lines := strings.Split(string(result.Body), "\n")
	// the workload file ends with a newline; drop the empty tail
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func (e *Executor) triggerJob(ctx context.Context, payload map[string]interface{}) error {
	spec := &orchestrator.JobSpec{
		AppId:       e.sub.AppId,
		Command:     asStrings(payload["cmd"]),
		Image:       payload["img"].(string),
		Parallelism: int32(asInt(payload["init_size"])),
		Env:         asStringMap(payload["env_vars"]),
	}
	if control := asMap(payload["k8s_resources_control"]); len(control) > 0 {
		spec.Limits = asStringMap(control["limits"])
		spec.Requests = asStringMap(control["requests"])
	}
	if err := e.deps.Orchestrator.CreateJob(ctx, spec); err != nil {
		return err
	}
	now := time.Now()
	e.mu.Lock()
	e.sub.StartingTime = &now
	e.sub.Status = StatusOngoing
	e.persistLocked()
	e.mu.Unlock()
	return nil
}

// WaitJobFinish blocks until the job completes or is terminated, then
// caches the final report, stamps the finish time and hands the
// resources over to the cleanup scheduler.
func (e *Executor) WaitJobFinish(ctx context.Context) {
	for {
		e.mu.Lock()
		done := e.sub.JobCompleted || e.sub.Terminated
		e.mu.Unlock()
		if done {
			break
		}
		e.Synchronize(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.deps.CheckInterval):
		}
	}

	e.mu.Lock()
	if e.sub.ExecutionTime == executionUnfinished && e.sub.StartingTime != nil {
		e.sub.ExecutionTime = elapsedSince(*e.sub.StartingTime)
	}
	e.mu.Unlock()
	klog.Infof("job %s finished with status %s", e.sub.AppId, e.Status())

	e.fetchFinalReport(ctx)

	now := time.Now()
	e.mu.Lock()
	// Stop and Terminate stamp the finish time themselves; keep theirs
	if e.sub.FinishTime == nil {
		e.sub.FinishTime = &now
	}
	e.sub.JobResourcesLifetime = lifetimeFromPayload(e.sub.Payload)
	e.sub.DeleteAuthorized = true
	lifetime := e.sub.JobResourcesLifetime
	e.persistLocked()
	e.mu.Unlock()

	e.deps.Cleaner.Insert(e.sub.AppId, lifetime)
}

// fetchFinalReport polls the monitor until it answers 200 (report
// ready) or 400 (monitoring gone), bounded by the retry window.
func (e *Executor) fetchFinalReport(ctx context.Context) {
	deadline := time.Now().Add(e.deps.ReportRetryWindow)
	for time.Now().Before(deadline) {
		code, body, err := e.deps.Monitor.Report(e.sub.AppId)
		if err == nil && code == 200 {
			e.mu.Lock()
			e.sub.Report = decodeReport(body)
			e.persistLocked()
			e.mu.Unlock()
			return
		}
		if err == nil && code == 400 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
	e.mu.Lock()
	e.sub.Report = map[string]interface{}{
		"message": "Monitoring does not exists yet or has been deleted!",
	}
	e.persistLocked()
	e.mu.Unlock()
}

// Synchronize reconciles the record with the Job's standing in the
// cluster. A missing Job parks a non-terminal submission in not_found.
func (e *Executor) Synchronize(ctx context.Context) {
	state, err := e.deps.Orchestrator.GetJobState(ctx, e.sub.AppId)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.sub.Terminated = true
		if !TerminalStates[e.sub.Status] {
			e.sub.Status = StatusNotFound
		}
		e.persistLocked()
		return
	}
	switch {
	case state.Active:
		if e.sub.Status != StatusOngoing {
			e.sub.Status = StatusOngoing
			e.persistLocked()
		}
	case state.Complete:
		if e.sub.Status != StatusStopped {
			e.sub.JobCompleted = true
			e.sub.Status = StatusCompleted
		} else {
			e.sub.Terminated = true
		}
		e.persistLocked()
	default:
		e.sub.Terminated = true
		e.sub.Status = StatusFailed
		e.persistLocked()
	}
}

// Stop drains the work queue and posts the stop sentinel so replicas
// wind down gracefully; cluster resources stay up for inspection.
func (e *Executor) Stop(ctx context.Context) error {
	if e.queue == nil {
		return errors.NewBadRequest("submission %s has no work queue yet", e.sub.AppId)
	}
	if err := e.queue.Stop(ctx); err != nil {
		return err
	}
	now := time.Now()
	e.mu.Lock()
	e.sub.FinishTime = &now
	e.sub.DeleteAuthorized = true
	e.sub.Terminated = true
	e.sub.Status = StatusStopped
	e.persistLocked()
	e.mu.Unlock()
	return nil
}

// Terminate deletes the Job and its pods immediately.
func (e *Executor) Terminate(ctx context.Context) error {
	if err := e.deps.Orchestrator.TerminateJob(ctx, e.sub.AppId); err != nil {
		return err
	}
	now := time.Now()
	e.mu.Lock()
	e.sub.FinishTime = &now
	e.sub.DeleteAuthorized = true
	e.sub.Terminated = true
	e.sub.Status = StatusTerminated
	e.persistLocked()
	e.mu.Unlock()
	return nil
}

// Errors returns the items replicas reported as failed. A queue that
// is gone yields an empty list.
func (e *Executor) Errors(ctx context.Context) []string {
	if e.queue == nil {
		return []string{}
	}
	return e.queue.Errors(ctx)
}

// DeleteJobResources tears down everything the submission holds in the
// cluster: sidecar registrations, the Job, the work queue and the
// metrics database. Once the resources are gone, repeat calls no-op.
func (e *Executor) DeleteJobResources(ctx context.Context) {
	appId := e.sub.AppId

	e.mu.Lock()
	if !e.sub.DeleteAuthorized {
		e.mu.Unlock()
		klog.Infof("resources of %s already deleted", appId)
		return
	}
	enableVisualizer := e.sub.EnableVisualizer
	info := asMap(e.sub.Payload["visualizer_info"])
	status := e.sub.Status
	e.mu.Unlock()

	if enableVisualizer {
		if err := e.deps.Visualizer.Stop(appId, info); err != nil {
			klog.V(2).Infof("visualizer for %s already stopped: %v", appId, err)
		}
	}
	if err := e.deps.Monitor.Stop(appId); err != nil {
		klog.V(2).Infof("monitor for %s already stopped: %v", appId, err)
	}
	if err := e.deps.Controller.Stop(appId); err != nil {
		klog.V(2).Infof("controller for %s already stopped: %v", appId, err)
	}

	if status != StatusTerminated {
		if err := e.deps.Orchestrator.TerminateJob(ctx, appId); err != nil {
			klog.V(2).Infof("job %s already deleted: %v", appId, err)
		}
	}
	e.deps.Orchestrator.DeleteQueueResources(ctx, appId)
	e.deps.Orchestrator.DeleteMetricsResources(ctx, appId)

	e.mu.Lock()
	e.sub.VisualizerURL = visualizerURLDead
	e.sub.DeleteAuthorized = false
	e.persistLocked()
	e.mu.Unlock()
	klog.Infof("reclaimed resources of %s", appId)
}

// Report returns the cached final report, or fetches a snapshot from
// the monitor while the job still runs.
func (e *Executor) Report(ctx context.Context) map[string]interface{} {
	e.mu.Lock()
	cached := e.sub.Report
	e.mu.Unlock()
	if len(cached) > 0 {
		return cached
	}
	code, body, err := e.deps.Monitor.Report(e.sub.AppId)
	if err != nil || code != 200 {
		return map[string]interface{}{
			"message": "Monitoring does not exists yet or has been deleted!",
		}
	}
	return decodeReport(body)
}

// DetailedReport returns the per-item report when enabled for this
// submission.
func (e *Executor) DetailedReport(ctx context.Context) map[string]interface{} {
	e.mu.Lock()
	enabled := e.sub.EnableDetailedReport
	e.mu.Unlock()
	if !enabled {
		return map[string]interface{}{
			"message": "The detailed report is disabled to this job!",
		}
	}
	body, err := e.deps.Monitor.DetailedReport(e.sub.AppId)
	if err != nil {
		return map[string]interface{}{
			"message": "Monitoring does not exists yet or has been deleted!",
		}
	}
	return decodeReport(body)
}
