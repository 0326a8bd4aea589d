// Package response writes the JSON envelope shared by every backend endpoint:
// {code, message, data, details, trace_id}.
package response

import (
	"net/http"

	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the body of every response.
type Envelope struct {
	Code    errors.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Data    interface{}            `json:"data,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "Success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Code:    errors.Success,
		Message: message,
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error maps err to its code and HTTP status. Client mistakes are logged at
// warn level, everything else at error level with the stack.
func Error(c *gin.Context, err error) {
	e := errors.GetError(err)
	status := e.Code.HTTPStatus()
	fields := []zap.Field{
		zap.Int("code", int(e.Code)),
		zap.String("message", e.Error()),
		zap.String("path", c.FullPath()),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", append(fields, zap.String("stack", e.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}
	c.JSON(status, Envelope{
		Code:    e.Code,
		Message: e.Error(),
		Details: e.Details,
		TraceID: traceID(c),
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, errors.BadRequest(message))
}

// AbortWithError writes the error and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func traceID(c *gin.Context) string {
	if v, ok := c.Request.Context().Value(contextkey.TraceID).(string); ok {
		return v
	}
	return c.GetString("trace_id")
}
