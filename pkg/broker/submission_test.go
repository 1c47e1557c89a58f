/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRoundTrip(t *testing.T) {
	sub := NewSubmission("kj-0000001", validPayload())
	sub.Status = StatusCompleted
	sub.QueueAddress = "10.0.0.7"
	sub.QueuePort = 31000
	sub.Report = map[string]interface{}{"progress": "100%"}
	sub.JobResourcesLifetime = 600
	sub.DeleteAuthorized = true
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	finish := start.Add(10 * time.Minute)
	sub.StartingTime = &start
	sub.FinishTime = &finish

	blob, err := sub.Encode()
	require.NoError(t, err)
	decoded, err := DecodeSubmission(blob)
	require.NoError(t, err)

	assert.Equal(t, sub.AppId, decoded.AppId)
	assert.Equal(t, sub.Status, decoded.Status)
	assert.Equal(t, sub.QueueAddress, decoded.QueueAddress)
	assert.Equal(t, sub.QueuePort, decoded.QueuePort)
	assert.Equal(t, sub.Report, decoded.Report)
	assert.Equal(t, sub.JobResourcesLifetime, decoded.JobResourcesLifetime)
	assert.True(t, decoded.DeleteAuthorized)
	assert.True(t, start.Equal(*decoded.StartingTime))
	assert.True(t, finish.Equal(*decoded.FinishTime))
	assert.Equal(t, "worker:latest", decoded.Payload["img"])
}

func TestDecodeSubmissionInitializesReport(t *testing.T) {
	decoded, err := DecodeSubmission([]byte(`{"app_id":"kj-1","status":"created"}`))
	require.NoError(t, err)
	assert.NotNil(t, decoded.Report)
}

func TestNewSubmissionDefaults(t *testing.T) {
	sub := NewSubmission("kj-0000001", validPayload())
	assert.Equal(t, StatusCreated, sub.Status)
	assert.Equal(t, "URL not generated!", sub.VisualizerURL)
	assert.Equal(t, "Job is not finished!", sub.ExecutionTime)
	assert.Equal(t, "Job is not running yet!", sub.StartTimeString())
	assert.Equal(t, "Job is not running yet!", sub.RecordedExecutionTime())
}

func TestStatusViewMergesReport(t *testing.T) {
	sub := NewSubmission("kj-0000001", validPayload())
	sub.Status = StatusOngoing
	sub.QueueAddress = "10.0.0.7"
	sub.Report = map[string]interface{}{"progress": "40%"}
	start := time.Now().Add(-90 * time.Second)
	sub.StartingTime = &start

	view := sub.StatusView()
	assert.Equal(t, "kj-0000001", view["app_id"])
	assert.Equal(t, StatusOngoing, view["status"])
	assert.Equal(t, "40%", view["progress"])
	assert.Equal(t, "10.0.0.7", view["queue_ip"])
	assert.NotEqual(t, "Job is not running yet!", view["starting_time"])
	assert.Equal(t, "1m30s", view["execution_time"])
}
