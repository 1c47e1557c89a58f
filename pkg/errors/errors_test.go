/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

func TestTaxonomyCodes(t *testing.T) {
	cases := []struct {
		err  *apierrors.StatusError
		code int32
	}{
		{NewBadRequest("missing field %s", "cmd"), http.StatusBadRequest},
		{NewUnauthorized("bad credentials"), http.StatusUnauthorized},
		{NewNotFound("submission %s not found", "kj-123"), http.StatusNotFound},
		{NewConflict("cluster %s already exists", "prod"), http.StatusConflict},
		{NewProvisioningTimeout("work queue never became ready"), http.StatusServiceUnavailable},
		{NewInternalError("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Status().Code, tc.err.Error())
		assert.NotEmpty(t, tc.err.Status().Reason)
	}
}

func TestIsProvisioningTimeout(t *testing.T) {
	assert.True(t, IsProvisioningTimeout(NewProvisioningTimeout("queue")))
	assert.False(t, IsProvisioningTimeout(NewInternalError("boom")))
	assert.False(t, IsProvisioningTimeout(assert.AnError))
}

func TestApimachineryPredicates(t *testing.T) {
	assert.True(t, apierrors.IsNotFound(NewNotFound("x")))
	assert.True(t, apierrors.IsBadRequest(NewBadRequest("x")))
	assert.True(t, apierrors.IsConflict(NewConflict("x")))
	assert.True(t, apierrors.IsUnauthorized(NewUnauthorized("x")))
}
