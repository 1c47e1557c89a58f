/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// The broker's error taxonomy. Every failure surfaced to a caller is one
// of these StatusError values; the handlers translate them into the
// {errorCode, errorMessage} wire shape with the matching HTTP status.

const (
	// ReasonProvisioning marks failures to stand up per-submission
	// resources (work queue, metrics database) within the bounded wait.
	ReasonProvisioning metav1.StatusReason = "ProvisioningFailure"
)

func newStatusError(code int32, reason metav1.StatusReason, msg string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    code,
		Reason:  reason,
		Message: msg,
	}}
}

// NewBadRequest reports a malformed or invalid submission payload.
func NewBadRequest(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusBadRequest, metav1.StatusReasonBadRequest, fmt.Sprintf(format, args...))
}

// NewUnauthorized reports a rejected credential check.
func NewUnauthorized(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusUnauthorized, metav1.StatusReasonUnauthorized, fmt.Sprintf(format, args...))
}

// NewNotFound reports a missing submission, profile or plugin.
func NewNotFound(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusNotFound, metav1.StatusReasonNotFound, fmt.Sprintf(format, args...))
}

// NewConflict reports a name collision, such as adding a cluster profile
// that already exists.
func NewConflict(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, metav1.StatusReasonConflict, fmt.Sprintf(format, args...))
}

// NewProvisioningTimeout reports that a dependent resource never became
// ready inside its readiness window.
func NewProvisioningTimeout(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusServiceUnavailable, ReasonProvisioning, fmt.Sprintf(format, args...))
}

// NewInternalError reports an unexpected failure inside the broker.
func NewInternalError(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusInternalServerError, metav1.StatusReasonInternalError, fmt.Sprintf(format, args...))
}

// IsProvisioningTimeout reports whether err carries the provisioning
// failure reason.
func IsProvisioningTimeout(err error) bool {
	if status, ok := err.(apierrors.APIStatus); ok {
		return status.Status().Reason == ReasonProvisioning
	}
	return false
}
