package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Respond writes err as a JSON failure body. Internal errors are logged and
// replaced with a generic message.
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal("Internal server error", err)
	}

	if e.Kind == KindInternal {
		slog.ErrorContext(c.Request.Context(), "Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err.Error(),
		)
	}

	body := gin.H{
		"success": false,
		"error":   e.Code,
		"message": e.Message,
	}
	for k, v := range e.Details {
		body[k] = v
	}

	c.AbortWithStatusJSON(e.Status(), body)
}

// BindJSON decodes the request body into dst, writing a 400 on failure.
// Returns false when the handler should stop.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Respond(c, &Error{Kind: KindValidation, Code: CodeValidation, Message: "Invalid request body", Err: err})
		return false
	}
	return true
}

// StatusOf returns the HTTP status err would be written with
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}

// ParamUUID parses the named path parameter, writing a 400 when it is not a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Respond(c, Validation("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
