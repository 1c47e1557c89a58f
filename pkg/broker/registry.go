/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/ids"
)

// Registry maps submission ids to their executors and keeps the map
// consistent with the persistence store across restarts.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]*Executor
	deps      *Deps
}

func NewRegistry(deps *Deps) *Registry {
	return &Registry{
		executors: make(map[string]*Executor),
		deps:      deps,
	}
}

// Put registers an executor.
func (r *Registry) Put(e *Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.AppId()] = e
}

// Get returns the executor for appId.
func (r *Registry) Get(appId string) (*Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[appId]
	if !ok {
		return nil, errors.NewNotFound("submission %s does not exist", appId)
	}
	return e, nil
}

// List returns a snapshot of every tracked submission.
func (r *Registry) List() []Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Submission, 0, len(r.executors))
	for _, e := range r.executors {
		result = append(result, e.Submission())
	}
	return result
}

// Executors returns a snapshot of every tracked executor.
func (r *Registry) Executors() []*Executor {
	return r.snapshot()
}

// Delete removes a finished submission. Submissions still running or
// still holding cluster resources cannot be deleted.
func (r *Registry) Delete(appId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.executors[appId]
	if !ok {
		return errors.NewNotFound("submission %s does not exist", appId)
	}
	sub := e.Submission()
	if sub.Status == StatusOngoing {
		return errors.NewBadRequest("submission %s is still running", appId)
	}
	if sub.DeleteAuthorized {
		return errors.NewBadRequest("submission %s still holds cluster resources", appId)
	}
	if err := r.deps.Store.Delete(appId); err != nil {
		return err
	}
	delete(r.executors, appId)
	klog.Infof("deleted submission %s", appId)
	return nil
}

// DeleteAll removes every deletable submission, skipping the ones still
// running or holding resources.
func (r *Registry) DeleteAll() {
	for _, sub := range r.List() {
		if err := r.Delete(sub.AppId); err != nil {
			klog.V(2).Infof("keeping submission %s: %v", sub.AppId, err)
		}
	}
}

// Rehydrate rebuilds the registry from the store after a restart:
// reload every record, settle resource cleanup debts, re-enter the wait
// loop for unfinished submissions, then reconcile all of them against
// the cluster.
func (r *Registry) Rehydrate(ctx context.Context) error {
	records, err := r.deps.Store.GetAll(ids.SubmissionPrefix)
	if err != nil {
		return err
	}
	for key, blob := range records {
		sub, err := DecodeSubmission(blob)
		if err != nil {
			klog.ErrorS(err, "skipping unreadable submission record", "key", key)
			continue
		}
		r.Put(NewExecutor(sub, r.deps))
	}
	klog.Infof("restored %d submissions from the store", len(records))

	for _, e := range r.snapshot() {
		sub := e.Submission()
		if sub.FinishTime == nil || !sub.DeleteAuthorized {
			continue
		}
		elapsed := int(time.Since(*sub.FinishTime) / time.Second)
		if remaining := sub.JobResourcesLifetime - elapsed; remaining > 0 {
			r.deps.Cleaner.Insert(sub.AppId, remaining)
		} else {
			e.DeleteJobResources(ctx)
		}
	}

	for _, e := range r.snapshot() {
		sub := e.Submission()
		if !sub.JobCompleted && !sub.Terminated {
			go e.WaitJobFinish(ctx)
		}
	}

	for _, e := range r.snapshot() {
		e.Synchronize(ctx)
	}
	return nil
}

func (r *Registry) snapshot() []*Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Executor, 0, len(r.executors))
	for _, e := range r.executors {
		result = append(result, e)
	}
	return result
}
