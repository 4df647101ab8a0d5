// Package handlers implements the HTTP request handlers of the
// HSCode-Intelligence API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// errorBody is the JSON error envelope returned by every failing endpoint.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError translates an error into the envelope, mapping typed codes to
// HTTP statuses.  Untyped errors are masked as internal.
func respondError(c *gin.Context, err error) {
	var appErr *pkgerrors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "internal error")
	}
	c.Error(err) // surfaces in the access log
	c.JSON(pkgerrors.HTTPStatusForCode(appErr.Code), errorResponse{Error: errorBody{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    string(pkgerrors.ErrCodeBadRequest),
		Message: msg,
	}})
}
