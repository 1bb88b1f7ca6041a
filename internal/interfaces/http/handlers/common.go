// Package handlers maps the FreshGuard HTTP API onto the expiry application
// service.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/middleware"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps err to its HTTP status. Server-side failures are logged
// and masked; their detail never reaches the caller.
func respondError(c *gin.Context, logger logging.Logger, err error) {
	code := apperrors.GetCode(err)
	if code == apperrors.CodeUnknown {
		code = apperrors.KindOf(err)
	}
	status := apperrors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: code.String(), Message: apperrors.DefaultMessageForCode(code)}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.Err(err),
			logging.String("code", code.String()),
			logging.String("path", c.FullPath()),
			logging.String("request_id", middleware.GetRequestID(c)),
		)
		resp.Detail = ""
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// badRequest answers a malformed request before it reaches the service.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    apperrors.ErrCodeExpiryValidation.String(),
		Message: message,
	})
}

// parseOptionalDate parses a YYYY-MM-DD value; "" yields nil.
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domainExpiry.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
