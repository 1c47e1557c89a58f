/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package submission_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ufcg-lsd/asperathos-manager/pkg/broker"
	"github.com/ufcg-lsd/asperathos-manager/pkg/errors"
	apiutils "github.com/ufcg-lsd/asperathos-manager/pkg/handlers/utils"
	"github.com/ufcg-lsd/asperathos-manager/pkg/plugincatalog"
)

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes the handler function and processes the response/error.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch responseType := response.(type) {
	case nil:
		c.Status(code)
	case []byte:
		c.Data(code, "application/json", responseType)
	case string:
		c.Data(code, "application/json", []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}

// AuthorizerClient validates submission credentials.
type AuthorizerClient interface {
	Authorize(username, password string) (bool, error)
}

type Handler struct {
	registry   *broker.Registry
	catalog    *plugincatalog.Catalog
	authorizer AuthorizerClient
	deps       *broker.Deps
	logsDir    string
}

func NewHandler(registry *broker.Registry, catalog *plugincatalog.Catalog,
	authorizer AuthorizerClient, deps *broker.Deps, logsDir string) *Handler {
	return &Handler{
		registry:   registry,
		catalog:    catalog,
		authorizer: authorizer,
		deps:       deps,
		logsDir:    logsDir,
	}
}

// bindBody decodes the request body into a generic map. An absent body
// is not an error; the field checks downstream report what is missing.
func bindBody(c *gin.Context) map[string]interface{} {
	data := make(map[string]interface{})
	_ = c.ShouldBindJSON(&data)
	return data
}

// checkAuthorization enforces the credential rules on mutating
// requests: enable_auth must be present, and when true the credentials
// must pass the authorizer service.
func (h *Handler) checkAuthorization(data map[string]interface{}) error {
	enable, ok := data["enable_auth"]
	if !ok {
		return errors.NewBadRequest("missing enable_auth field in request")
	}
	enabled, ok := enable.(bool)
	if !ok {
		return errors.NewBadRequest("enable_auth must be a boolean")
	}
	if !enabled {
		return nil
	}
	username, _ := data["username"].(string)
	password, _ := data["password"].(string)
	if username == "" || password == "" {
		return errors.NewBadRequest("missing username or password in request")
	}
	authorized, err := h.authorizer.Authorize(username, password)
	if err != nil {
		return err
	}
	if !authorized {
		return errors.NewUnauthorized("wrong credentials for user %s", username)
	}
	return nil
}
