/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package workqueue wraps the per-submission Redis instance that feeds
// work items to the job replicas. The broker only ever produces: it
// fills the job list, posts the stop sentinel and reads back errors the
// replicas reported.
package workqueue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"
)

const (
	jobList    = "job"
	errorsList = "job:errors"
	stopList   = "stop"

	stopSentinel = "stop"
)

// Queue is the broker-side handle on one submission's work queue.
type Queue struct {
	client *redis.Client
}

// New connects a handle to the queue at addr (host:port). The connection
// is lazy; Ping reports actual reachability.
func New(addr string) *Queue {
	return &Queue{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 2 * time.Second,
			ReadTimeout: 2 * time.Second,
		}),
	}
}

// Ping reports whether the queue answers. Used as the readiness probe
// during provisioning.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Fill pushes the workload items onto the job list, in order.
func (q *Queue) Fill(ctx context.Context, items []string) error {
	for _, item := range items {
		if err := q.client.RPush(ctx, jobList, item).Err(); err != nil {
			return err
		}
	}
	klog.Infof("queued %d work items", len(items))
	return nil
}

// Stop empties the job list and posts the stop sentinel so running
// replicas wind down after their current item.
func (q *Queue) Stop(ctx context.Context) error {
	if err := q.client.Del(ctx, jobList).Err(); err != nil {
		return err
	}
	return q.client.RPush(ctx, stopList, stopSentinel).Err()
}

// Errors returns the items the replicas pushed onto the error list. A
// queue that is gone (already torn down) yields an empty list, not an
// error.
func (q *Queue) Errors(ctx context.Context) []string {
	items, err := q.client.LRange(ctx, errorsList, 0, -1).Result()
	if err != nil {
		klog.V(2).Infof("work queue unreachable, reporting no errors: %v", err)
		return []string{}
	}
	return items
}

// Close releases the connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
