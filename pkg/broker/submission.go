/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package broker holds the submission lifecycle: the persisted record,
// the executor state machine driving one submission, the registry
// mapping ids to executors, and the cleanup scheduler reclaiming
// resources after their grace period.
package broker

import (
	"encoding/json"
	"time"
)

// Submission lifecycle states.
const (
	StatusCreated    = "created"
	StatusOngoing    = "ongoing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusTerminated = "terminated"
	StatusStopped    = "stopped"
	StatusError      = "error"
	StatusNotFound   = "not_found"
)

// Placeholder strings reported before the respective value exists.
const (
	executionTimePending = "Job is not running yet!"
	executionUnfinished  = "Job is not finished!"
	visualizerURLPending = "URL not generated!"
	visualizerURLDead    = "Url is dead!"
)

// TerminalStates lists the states a submission never leaves.
var TerminalStates = map[string]bool{
	StatusCompleted:  true,
	StatusFailed:     true,
	StatusTerminated: true,
	StatusStopped:    true,
	StatusError:      true,
	StatusNotFound:   true,
}

const timeLayout = "2006-01-02T15:04:05.000000GMT"

// Submission is the persisted record of one submission. The whole
// record travels as one JSON blob through the persistence store; every
// state mutation rewrites the blob.
type Submission struct {
	AppId   string                 `json:"app_id"`
	Payload map[string]interface{} `json:"payload"`
	Status  string                 `json:"status"`

	StartingTime *time.Time `json:"starting_time,omitempty"`
	FinishTime   *time.Time `json:"finish_time,omitempty"`

	QueueAddress string `json:"queue_ip,omitempty"`
	QueuePort    int32  `json:"queue_port,omitempty"`

	VisualizerURL        string                 `json:"visualizer_url"`
	Report               map[string]interface{} `json:"report"`
	ExecutionTime        string                 `json:"execution_time"`
	JobResourcesLifetime int                    `json:"job_resources_lifetime"`

	DeleteAuthorized     bool `json:"delete_authorized"`
	JobCompleted         bool `json:"job_completed"`
	Terminated           bool `json:"terminated"`
	EnableVisualizer     bool `json:"enable_visualizer"`
	EnableDetailedReport bool `json:"enable_detailed_report"`
}

// NewSubmission returns a fresh record in the created state.
func NewSubmission(appId string, payload map[string]interface{}) *Submission {
	return &Submission{
		AppId:         appId,
		Payload:       payload,
		Status:        StatusCreated,
		VisualizerURL: visualizerURLPending,
		ExecutionTime: executionUnfinished,
		Report:        map[string]interface{}{},
	}
}

// Encode serializes the record for the persistence store.
func (s *Submission) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSubmission rebuilds a record from its stored blob.
func DecodeSubmission(blob []byte) (*Submission, error) {
	var s Submission
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, err
	}
	if s.Report == nil {
		s.Report = map[string]interface{}{}
	}
	return &s, nil
}

// StartTimeString formats the start time for status replies.
func (s *Submission) StartTimeString() string {
	if s.StartingTime == nil {
		return executionTimePending
	}
	return s.StartingTime.Format(timeLayout)
}

// RecordedExecutionTime returns the elapsed run time: live while the
// job runs, frozen once it finished, a placeholder before it started.
func (s *Submission) RecordedExecutionTime() string {
	if s.StartingTime == nil {
		return executionTimePending
	}
	if s.ExecutionTime != executionUnfinished {
		return s.ExecutionTime
	}
	return elapsedSince(*s.StartingTime)
}

func elapsedSince(start time.Time) string {
	return time.Since(start).Truncate(time.Second).String()
}

// StatusView is the wire shape of GET /submissions/{id}: record fields
// with the latest cached report merged in.
func (s *Submission) StatusView() map[string]interface{} {
	view := map[string]interface{}{
		"app_id":         s.AppId,
		"starting_time":  s.StartTimeString(),
		"status":         s.Status,
		"visualizer_url": s.VisualizerURL,
		"execution_time": s.RecordedExecutionTime(),
		"queue_ip":       s.QueueAddress,
		"queue_port":     s.QueuePort,
	}
	for key, value := range s.Report {
		view[key] = value
	}
	return view
}
