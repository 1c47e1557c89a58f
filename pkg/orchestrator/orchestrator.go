/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package orchestrator is the broker's Kubernetes adapter. It owns every
// per-submission cluster resource: the batch Job running the replicas,
// the work-queue pod and NodePort service, and the optional metrics
// database backing the visualizer.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	"github.com/ufcg-lsd/asperathos-manager/pkg/workqueue"
)

const (
	queuePort   = 6379
	queueImage  = "redis"
	metricsPort = 8086
)

// Readiness window for provisioned resources. Package variables so the
// tests can shrink the window.
var (
	provisionTimeout = 60 * time.Second
	probeInterval    = 5 * time.Second
)

// JobSpec carries everything needed to create one submission's Job.
type JobSpec struct {
	AppId       string
	Command     []string
	Image       string
	Parallelism int32
	Env         map[string]string
	// Limits and Requests hold resource quantities keyed by resource
	// name ("cpu", "memory"). Empty maps mean no constraint.
	Limits   map[string]string
	Requests map[string]string
}

// Orchestrator talks to the active cluster. The kubeconfig is re-read
// on every operation, so activating another cluster profile retargets
// in-flight brokers without a restart.
type Orchestrator struct {
	loadClient func() (kubernetes.Interface, error)
	namespace  string

	// advertised address for NodePort connections; empty means
	// discover one from the cluster's node list
	nodeAddress string

	// probe checks that the work queue at addr answers. Replaced in
	// tests, where no real redis backs the fake clientset.
	probe func(ctx context.Context, addr string) error
}

// New builds an Orchestrator over the kubeconfig at confPath. The file
// is reloaded per call rather than once at startup, because cluster
// activation rewrites it in place.
func New(confPath, namespace, nodeAddress string) *Orchestrator {
	o := NewWithClient(nil, namespace, nodeAddress)
	o.loadClient = func() (kubernetes.Interface, error) {
		cfg, err := clientcmd.BuildConfigFromFlags("", confPath)
		if err != nil {
			return nil, err
		}
		return kubernetes.NewForConfig(cfg)
	}
	return o
}

// NewWithClient builds an Orchestrator pinned to an existing clientset.
func NewWithClient(client kubernetes.Interface, namespace, nodeAddress string) *Orchestrator {
	return &Orchestrator{
		loadClient:  func() (kubernetes.Interface, error) { return client, nil },
		namespace:   namespace,
		nodeAddress: nodeAddress,
		probe: func(ctx context.Context, addr string) error {
			q := workqueue.New(addr)
			defer q.Close()
			return q.Ping(ctx)
		},
	}
}

// CreateJob creates the batch Job running the submission's replicas.
func (o *Orchestrator) CreateJob(ctx context.Context, spec *JobSpec) error {
	client, err := o.loadClient()
	if err != nil {
		return err
	}
	var env []corev1.EnvVar
	for key, value := range spec.Env {
		env = append(env, corev1.EnvVar{Name: key, Value: value})
	}
	requirements := corev1.ResourceRequirements{
		Limits:   toResourceList(spec.Limits),
		Requests: toResourceList(spec.Requests),
	}
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: spec.AppId},
		Spec: batchv1.JobSpec{
			Parallelism: ptr.To(spec.Parallelism),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Name: spec.AppId},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
					Containers: []corev1.Container{{
						Name:            spec.AppId,
						Image:           spec.Image,
						ImagePullPolicy: corev1.PullAlways,
						Command:         spec.Command,
						Env:             env,
						TTY:             true,
						Resources:       requirements,
					}},
				},
			},
		},
	}
	if _, err = client.BatchV1().Jobs(o.namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return err
	}
	klog.Infof("created job %s with parallelism %d", spec.AppId, spec.Parallelism)
	return nil
}

func toResourceList(quantities map[string]string) corev1.ResourceList {
	if len(quantities) == 0 {
		return nil
	}
	list := corev1.ResourceList{}
	for name, quantity := range quantities {
		list[corev1.ResourceName(name)] = resource.MustParse(quantity)
	}
	return list
}

// JobState is a snapshot of the submission Job's standing.
type JobState struct {
	// Active is true while any pod of the Job is still running.
	Active bool
	// Complete is true once the Job carries the Complete condition.
	Complete bool
	// Failed is true once the Job stopped without completing.
	Failed bool
}

// GetJobState reads the Job's status. A missing Job surfaces as a
// NotFound error for the caller's state machine.
func (o *Orchestrator) GetJobState(ctx context.Context, appId string) (JobState, error) {
	client, err := o.loadClient()
	if err != nil {
		return JobState{}, err
	}
	job, err := client.BatchV1().Jobs(o.namespace).Get(ctx, appId, metav1.GetOptions{})
	if err != nil {
		return JobState{}, err
	}
	// no active pods and no conditions means the job has not started
	// its first pod yet
	if job.Status.Active > 0 || len(job.Status.Conditions) == 0 {
		return JobState{Active: true}, nil
	}
	for _, condition := range job.Status.Conditions {
		if condition.Type == batchv1.JobComplete && condition.Status == corev1.ConditionTrue {
			return JobState{Complete: true}, nil
		}
	}
	return JobState{Failed: true}, nil
}

// ProvisionWorkQueue stands up the submission's work queue: a redis pod
// plus a NodePort service, both named queue-<appId>. It waits until the
// queue answers or the readiness window closes; on timeout the partial
// resources are removed and a provisioning error is returned.
func (o *Orchestrator) ProvisionWorkQueue(ctx context.Context, appId string) (string, int32, error) {
	client, err := o.loadClient()
	if err != nil {
		return "", 0, err
	}
	name := queueName(appId)
	labels := map[string]string{"app": name}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{
				Name:  "queue-master",
				Image: queueImage,
				Ports: []corev1.ContainerPort{{ContainerPort: queuePort}},
			}},
		},
	}
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: labels,
			Ports: []corev1.ServicePort{{
				Port:       queuePort,
				TargetPort: intstr.FromInt32(queuePort),
			}},
		},
	}

	if _, err = client.CoreV1().Pods(o.namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return "", 0, err
	}
	created, err := client.CoreV1().Services(o.namespace).Create(ctx, svc, metav1.CreateOptions{})
	if err != nil {
		o.DeleteQueueResources(ctx, appId)
		return "", 0, err
	}
	nodePort := created.Spec.Ports[0].NodePort

	address, err := o.resolveNodeAddress(ctx, client)
	if err != nil {
		o.DeleteQueueResources(ctx, appId)
		return "", 0, err
	}

	addr := fmt.Sprintf("%s:%d", address, nodePort)
	if err = o.waitQueueReady(ctx, addr); err != nil {
		klog.ErrorS(err, "work queue never became ready, cleaning up", "app", appId)
		o.DeleteQueueResources(ctx, appId)
		return "", 0, errors.NewProvisioningTimeout("work queue for %s not ready: %v", appId, err)
	}
	klog.Infof("work queue for %s ready at %s", appId, addr)
	return address, nodePort, nil
}

func (o *Orchestrator) waitQueueReady(ctx context.Context, addr string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(probeInterval),
		uint64(provisionTimeout/probeInterval)), ctx)
	return backoff.Retry(func() error {
		return o.probe(ctx, addr)
	}, policy)
}

// DeleteQueueResources removes the queue pod and service. Absent
// resources are ignored, so teardown can run any number of times.
func (o *Orchestrator) DeleteQueueResources(ctx context.Context, appId string) {
	name := queueName(appId)
	client, err := o.loadClient()
	if err != nil {
		klog.ErrorS(err, "failed to reach cluster for queue cleanup", "name", name)
		return
	}
	if err = client.CoreV1().Pods(o.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		klog.ErrorS(err, "failed to delete queue pod", "name", name)
	}
	if err = client.CoreV1().Services(o.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		klog.ErrorS(err, "failed to delete queue service", "name", name)
	}
}

// CreateMetricsDB stands up the influxdb pod and NodePort service the
// visualizer reads from, both named metrics-<appId>, and waits for the
// pod to run.
func (o *Orchestrator) CreateMetricsDB(ctx context.Context, appId string) (int32, error) {
	client, err := o.loadClient()
	if err != nil {
		return 0, err
	}
	name := metricsName(appId)
	labels := map[string]string{"app": name}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{
				Name:  "metrics-master",
				Image: "influxdb",
				Ports: []corev1.ContainerPort{{ContainerPort: metricsPort}},
			}},
		},
	}
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: labels,
			Ports: []corev1.ServicePort{{
				Protocol:   corev1.ProtocolTCP,
				Port:       metricsPort,
				TargetPort: intstr.FromInt32(metricsPort),
			}},
		},
	}

	if _, err = client.CoreV1().Pods(o.namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return 0, err
	}
	created, err := client.CoreV1().Services(o.namespace).Create(ctx, svc, metav1.CreateOptions{})
	if err != nil {
		o.DeleteMetricsResources(ctx, appId)
		return 0, err
	}
	nodePort := created.Spec.Ports[0].NodePort

	err = o.waitPodRunning(ctx, client, name)
	if err != nil {
		o.DeleteMetricsResources(ctx, appId)
		return 0, errors.NewProvisioningTimeout("metrics database for %s not ready: %v", appId, err)
	}
	klog.Infof("metrics database for %s ready on node port %d", appId, nodePort)
	return nodePort, nil
}

func (o *Orchestrator) waitPodRunning(ctx context.Context, client kubernetes.Interface, name string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(time.Second),
		uint64(provisionTimeout/time.Second)), ctx)
	return backoff.Retry(func() error {
		pod, err := client.CoreV1().Pods(o.namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		if pod.Status.Phase != corev1.PodRunning {
			return fmt.Errorf("pod %s in phase %s", name, pod.Status.Phase)
		}
		return nil
	}, policy)
}

// DeleteMetricsResources removes the metrics pod and service, ignoring
// absent resources.
func (o *Orchestrator) DeleteMetricsResources(ctx context.Context, appId string) {
	name := metricsName(appId)
	client, err := o.loadClient()
	if err != nil {
		klog.ErrorS(err, "failed to reach cluster for metrics cleanup", "name", name)
		return
	}
	if err = client.CoreV1().Pods(o.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		klog.ErrorS(err, "failed to delete metrics pod", "name", name)
	}
	if err = client.CoreV1().Services(o.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		klog.ErrorS(err, "failed to delete metrics service", "name", name)
	}
}

// TerminateJob deletes the submission's Job with foreground cascading,
// so its pods go with it. A missing Job is not an error.
func (o *Orchestrator) TerminateJob(ctx context.Context, appId string) error {
	client, err := o.loadClient()
	if err != nil {
		return err
	}
	policy := metav1.DeletePropagationForeground
	err = client.BatchV1().Jobs(o.namespace).Delete(ctx, appId, metav1.DeleteOptions{
		PropagationPolicy: &policy,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}

// NodeAddress returns the advertised address for NodePort connections:
// the configured address when set, otherwise the internal IP of the
// last listed node. The API lists the control-plane node first, so the
// last entry is a worker.
func (o *Orchestrator) NodeAddress(ctx context.Context) (string, error) {
	client, err := o.loadClient()
	if err != nil {
		return "", err
	}
	return o.resolveNodeAddress(ctx, client)
}

func (o *Orchestrator) resolveNodeAddress(ctx context.Context, client kubernetes.Interface) (string, error) {
	if o.nodeAddress != "" {
		return o.nodeAddress, nil
	}
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", err
	}
	if len(nodes.Items) == 0 {
		return "", errors.NewInternalError("cluster has no nodes")
	}
	node := nodes.Items[len(nodes.Items)-1]
	for _, address := range node.Status.Addresses {
		if address.Type == corev1.NodeInternalIP {
			return address.Address, nil
		}
	}
	return "", errors.NewInternalError("node %s has no internal address", node.Name)
}

func queueName(appId string) string   { return "queue-" + appId }
func metricsName(appId string) string { return "metrics-" + appId }
