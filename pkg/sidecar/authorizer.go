/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package sidecar

import (
	"fmt"

	"github.com/ufcg-lsd/asperathos-manager/pkg/utils/httpclient"
)

// Authorizer checks submission credentials at admission.
type Authorizer struct {
	base string
	http httpclient.Interface
}

func NewAuthorizer(base string, client httpclient.Interface) *Authorizer {
	return &Authorizer{base: base, http: client}
}

// Authorize checks the credentials carried in the submission payload.
// Any transport failure or non-success reply denies the request.
func (a *Authorizer) Authorize(username, password string) (bool, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	result, err := a.http.Post(fmt.Sprintf("%s/authorization", a.base), body)
	if err != nil {
		return false, err
	}
	if !result.IsSuccess() {
		return false, nil
	}
	var reply struct {
		Success bool `json:"success"`
	}
	if err = result.Into(&reply); err != nil {
		return false, err
	}
	return reply.Success, nil
}
