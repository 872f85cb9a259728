package shared

import (
	"errors"
	"net/http"

	"github.com/certvault/internal/constants"
	"github.com/certvault/internal/http/response"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(constants.ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, status int, msg string, err error) {
	appErr := response.WrapError(status, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"status", appErr.Status,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Status, appErr.Message)
}

// RespondServiceError 将服务层哨兵错误映射为 HTTP 状态码。
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrDuplicateRecord),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidFile),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrCaptchaRequired),
		errors.Is(err, service.ErrCaptchaInvalid):
		response.BadRequest(c, err.Error())
	default:
		RespondError(c, http.StatusInternalServerError, "服务器内部错误", err)
	}
}
