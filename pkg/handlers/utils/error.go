/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	brokererrors "github.com/ufcg-lsd/asperathos-manager/pkg/errors"
)

// ApiError is the unified error response: HTTP code, error code, and
// error message.
type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Error returns the error message string.
func (err *ApiError) Error() string {
	return err.ErrorMessage
}

// AbortWithApiError converts err into the standardized error format and
// aborts the request with a JSON error response.
func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	rsp := convertToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

// convertToErrResponse converts an error into the ApiError shape. Typed
// StatusErrors carry their own code and reason; anything else is mapped
// through the apierrors predicates.
func convertToErrResponse(err error) ApiError {
	var result *ApiError
	if errors.As(err, &result) {
		return *result
	}
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		switch {
		case apierrors.IsNotFound(err):
			statusErr = brokererrors.NewNotFound("%s", err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			statusErr = brokererrors.NewBadRequest("%s", err.Error())
		case apierrors.IsUnauthorized(err):
			statusErr = brokererrors.NewUnauthorized("%s", err.Error())
		case apierrors.IsConflict(err), apierrors.IsAlreadyExists(err):
			statusErr = brokererrors.NewConflict("%s", err.Error())
		default:
			statusErr = brokererrors.NewInternalError("%s", err.Error())
		}
	}
	return ApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	}
}

// handleErrors adds single errors or every member of an aggregate to the
// gin context's error collection.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
