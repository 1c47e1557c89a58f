/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindList
	kindMap
	kindInt
	kindBool
)

// requiredFields is the submission payload schema. Fields only needed
// when the visualizer is enabled are validated separately.
var requiredFields = map[string]fieldKind{
	"cmd":                kindList,
	"control_parameters": kindMap,
	"control_plugin":     kindString,
	"env_vars":           kindMap,
	"img":                kindString,
	"init_size":          kindInt,
	"monitor_info":       kindMap,
	"monitor_plugin":     kindString,
	"redis_workload":     kindString,
	"enable_visualizer":  kindBool,
}

func validatePayload(payload map[string]interface{}) error {
	for field, kind := range requiredFields {
		value, ok := payload[field]
		if !ok {
			return errors.NewBadRequest("variable %q is missing", field)
		}
		if err := checkKind(field, value, kind); err != nil {
			return err
		}
	}
	if asInt(payload["init_size"]) <= 0 {
		return errors.NewBadRequest("\"init_size\" must be greater than zero")
	}
	if enabled, _ := payload["enable_visualizer"].(bool); enabled {
		for field, kind := range map[string]fieldKind{
			"visualizer_plugin": kindString,
			"visualizer_info":   kindMap,
		} {
			value, ok := payload[field]
			if !ok {
				return errors.NewBadRequest("variable %q is missing", field)
			}
			if err := checkKind(field, value, kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkKind(field string, value interface{}, kind fieldKind) error {
	var ok bool
	switch kind {
	case kindString:
		_, ok = value.(string)
	case kindList:
		_, ok = value.([]interface{})
	case kindMap:
		_, ok = value.(map[string]interface{})
	case kindInt:
		switch number := value.(type) {
		case int:
			ok = true
		case float64:
			// JSON numbers decode as float64; accept whole values only
			ok = number == float64(int(number))
		}
	case kindBool:
		_, ok = value.(bool)
	}
	if !ok {
		return errors.NewBadRequest("%q has unexpected variable type: %T", field, value)
	}
	return nil
}

// injectEnvVars adds the broker-owned variables every replica needs:
// the queue's in-cluster service name and the config id.
func injectEnvVars(payload map[string]interface{}, appId string) {
	env := asMap(payload["env_vars"])
	env["WORK_QUEUE_HOST"] = "queue-" + appId
	configId, _ := payload["config_id"].(string)
	env["CONFIG_ID"] = configId
	payload["env_vars"] = env
}

// updateVisualizerInfo folds the metrics database coordinates and the
// plugin identity into the visualizer info block.
func updateVisualizerInfo(payload map[string]interface{}, databaseData map[string]interface{}) {
	info := asMap(payload["visualizer_info"])
	info["database_data"] = databaseData
	info["enable_visualizer"] = payload["enable_visualizer"]
	info["plugin"] = payload["monitor_plugin"]
	info["visualizer_plugin"] = payload["visualizer_plugin"]
	info["username"] = payload["username"]
	info["password"] = payload["password"]
	payload["visualizer_info"] = info
}

// updateMonitorInfo folds the run coordinates into the monitor info
// block before monitoring starts.
func updateMonitorInfo(payload map[string]interface{}, sub *Submission,
	databaseData map[string]interface{}, datasourceType string, queueSize int) {

	strategy := "default"
	var heuristicOptions interface{}
	if control := asMap(payload["control_parameters"]); control != nil {
		if s, ok := control["schedule_strategy"].(string); ok {
			strategy = s
		}
		heuristicOptions = control["heuristic_options"]
	}

	info := asMap(payload["monitor_info"])
	info["database_data"] = databaseData
	info["datasource_type"] = datasourceType
	info["number_of_jobs"] = queueSize
	info["submission_time"] = sub.StartTimeString()
	info["queue_ip"] = sub.QueueAddress
	info["queue_port"] = sub.QueuePort
	info["enable_visualizer"] = sub.EnableVisualizer
	info["enable_detailed_report"] = sub.EnableDetailedReport
	info["scaling_strategy"] = strategy
	info["heuristic_options"] = heuristicOptions
	payload["monitor_info"] = info
}

func lifetimeFromPayload(payload map[string]interface{}) int {
	value, ok := payload["job_resources_lifetime"]
	if !ok {
		return 0
	}
	lifetime := asInt(value)
	if lifetime == 0 {
		klog.Infof("'job_resources_lifetime' missing or not a whole number, defaulting to 0")
	}
	return lifetime
}

func decodeReport(body []byte) map[string]interface{} {
	report := map[string]interface{}{}
	if err := json.Unmarshal(body, &report); err != nil {
		report["message"] = string(body)
	}
	return report
}

func asMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asStrings(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, fmt.Sprintf("%v", item))
	}
	return result
}

func asStringMap(value interface{}) map[string]string {
	items := asMap(value)
	if len(items) == 0 {
		return nil
	}
	result := make(map[string]string, len(items))
	for key, item := range items {
		result[key] = fmt.Sprintf("%v", item)
	}
	return result
}

func asInt(value interface{}) int {
	switch number := value.(type) {
	case int:
		return number
	case float64:
		return int(number)
	default:
		return 0
	}
}
