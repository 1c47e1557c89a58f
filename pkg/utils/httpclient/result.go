/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result carries the response of an HTTP request.
type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Result) IsSuccess() bool {
	return r.StatusCode/100 == 2
}

// Into unmarshals the JSON response body into obj.
func (r *Result) Into(obj interface{}) error {
	return json.Unmarshal(r.Body, obj)
}

func (r *Result) String() string {
	return fmt.Sprintf("code: %d, body: %s", r.StatusCode, string(r.Body))
}
