package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/pkg/logging"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// ErrorResponse is the body of a failed API request
type ErrorResponse struct {
	Code      common.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Details   string           `json:"details,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// respondError writes err as an ErrorResponse with the status mapped from its
// code. Errors that are not AppErrors are reported as internal errors.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := common.GetAppError(err)
	if appErr == nil {
		appErr = common.WrapError(err, common.ErrCodeInternal, "internal server error")
	}
	status := common.StatusCode(appErr)

	logger = logging.FromContext(c.Request.Context(), logger)
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("code", string(appErr.Code)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Debug("Request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: c.GetString("request_id"),
	})
}

// queryBool parses a boolean query parameter, falling back to def when the
// parameter is absent or unparsable.
func queryBool(c *gin.Context, name string, def bool) bool {
	v, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
