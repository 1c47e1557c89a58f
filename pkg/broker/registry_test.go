/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/ids"
)

func TestRegistryPutGet(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.deps)

	_, err := r.Get("kj-missing")
	assert.True(t, apierrors.IsNotFound(err))

	e := NewExecutor(NewSubmission("kj-0000001", validPayload()), f.deps)
	r.Put(e)
	got, err := r.Get("kj-0000001")
	require.NoError(t, err)
	assert.Equal(t, "kj-0000001", got.AppId())
	assert.Len(t, r.List(), 1)
}

func TestRegistryDeleteRules(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.deps)

	assert.True(t, apierrors.IsNotFound(r.Delete("kj-missing")))

	running := NewExecutor(NewSubmission("kj-0000001", validPayload()), f.deps)
	running.sub.Status = StatusOngoing
	r.Put(running)
	assert.True(t, apierrors.IsBadRequest(r.Delete("kj-0000001")))

	holding := NewExecutor(NewSubmission("kj-0000002", validPayload()), f.deps)
	holding.sub.Status = StatusCompleted
	holding.sub.DeleteAuthorized = true
	r.Put(holding)
	assert.True(t, apierrors.IsBadRequest(r.Delete("kj-0000002")))

	done := NewExecutor(NewSubmission("kj-0000003", validPayload()), f.deps)
	done.sub.Status = StatusCompleted
	done.persist()
	r.Put(done)
	require.NoError(t, r.Delete("kj-0000003"))
	_, err := r.Get("kj-0000003")
	assert.True(t, apierrors.IsNotFound(err))

	blob, err := f.deps.Store.Get("kj-0000003")
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestRegistryDeleteAllSkipsRunning(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.deps)

	running := NewExecutor(NewSubmission("kj-0000001", validPayload()), f.deps)
	running.sub.Status = StatusOngoing
	r.Put(running)

	done := NewExecutor(NewSubmission("kj-0000002", validPayload()), f.deps)
	done.sub.Status = StatusStopped
	done.persist()
	r.Put(done)

	r.DeleteAll()
	assert.Len(t, r.List(), 1)
	_, err := r.Get("kj-0000001")
	assert.NoError(t, err)
}

func persistRecord(t *testing.T, f *fixture, sub *Submission) {
	t.Helper()
	blob, err := sub.Encode()
	require.NoError(t, err)
	require.NoError(t, f.deps.Store.Put(sub.AppId, blob))
}

func TestRehydrateRestoresRecords(t *testing.T) {
	f := newFixture(t)

	finished := NewSubmission("kj-0000001", validPayload())
	finished.Status = StatusCompleted
	finished.JobCompleted = true
	finished.Terminated = true
	persistRecord(t, f, finished)

	r := NewRegistry(f.deps)
	require.NoError(t, r.Rehydrate(context.Background()))

	got, err := r.Get("kj-0000001")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status())
}

func TestRehydrateReclaimsExpiredResources(t *testing.T) {
	f := newFixture(t)

	expired := NewSubmission("kj-0000001", validPayload())
	expired.Status = StatusCompleted
	expired.JobCompleted = true
	expired.Terminated = true
	expired.DeleteAuthorized = true
	expired.JobResourcesLifetime = 10
	finish := time.Now().Add(-time.Minute)
	expired.FinishTime = &finish
	persistRecord(t, f, expired)

	r := NewRegistry(f.deps)
	require.NoError(t, r.Rehydrate(context.Background()))

	got, err := r.Get("kj-0000001")
	require.NoError(t, err)
	assert.False(t, got.Submission().DeleteAuthorized)
	assert.Equal(t, []string{"kj-0000001"}, f.monitor.stopped)
}

func TestRehydrateReschedulesRemainingLifetime(t *testing.T) {
	f := newFixture(t)

	pending := NewSubmission("kj-0000002", validPayload())
	pending.Status = StatusCompleted
	pending.JobCompleted = true
	pending.Terminated = true
	pending.DeleteAuthorized = true
	pending.JobResourcesLifetime = 3600
	finish := time.Now().Add(-time.Minute)
	pending.FinishTime = &finish
	persistRecord(t, f, pending)

	r := NewRegistry(f.deps)
	require.NoError(t, r.Rehydrate(context.Background()))

	entries := f.deps.Cleaner.deadlines()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"kj-0000002"}, entries[0][0])
	assert.True(t, r.snapshot()[0].Submission().DeleteAuthorized)
}

func TestRehydrateRecoversUnfinishedSubmission(t *testing.T) {
	f := newFixture(t)

	// persisted mid-run: ongoing, job gone from the cluster
	orphan := NewSubmission("kj-0000003", validPayload())
	orphan.Status = StatusOngoing
	orphan.QueueAddress = "10.0.0.7"
	orphan.QueuePort = 31000
	start := time.Now().Add(-time.Minute)
	orphan.StartingTime = &start
	persistRecord(t, f, orphan)

	r := NewRegistry(f.deps)
	require.NoError(t, r.Rehydrate(context.Background()))

	got, err := r.Get("kj-0000003")
	require.NoError(t, err)

	// synchronize finds no job, the revived wait loop winds the
	// submission down and hands resources to the cleaner
	require.Eventually(t, func() bool {
		sub := got.Submission()
		return sub.Status == StatusNotFound && sub.FinishTime != nil
	}, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return len(f.teardowns.snapshot()) == 1
	}, 5*time.Second, time.Millisecond)
}

func TestRehydratePrefixIsolation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.deps.Store.Put("plugin-kubejobs-manager", []byte(`{"name":"kubejobs"}`)))

	sub := NewSubmission(ids.NewSubmissionId(), validPayload())
	sub.Status = StatusCompleted
	sub.Terminated = true
	persistRecord(t, f, sub)

	r := NewRegistry(f.deps)
	require.NoError(t, r.Rehydrate(context.Background()))
	assert.Len(t, r.List(), 1)
}
