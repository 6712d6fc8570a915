package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/middleware"
)

const exposeErrorsKey = "exposeErrors"

var errInvalidBody = apperror.New(apperror.InvalidArgument, "Invalid request body")

// exposeErrors marks requests whose 500 responses may carry the internal
// error text.
func exposeErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(exposeErrorsKey, true)
		c.Next()
	}
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.InvalidArgument, apperror.InvalidState, apperror.InsufficientStock:
		return http.StatusBadRequest
	case apperror.Unauthorized:
		return http.StatusUnauthorized
	case apperror.Forbidden:
		return http.StatusForbidden
	case apperror.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	if kind == apperror.Internal {
		middleware.GetLogger(c).ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		body := gin.H{"message": "Server error"}
		if c.GetBool(exposeErrorsKey) {
			body["error"] = err.Error()
		}
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": apperror.Message(err)})
}

// respondOK writes payload with success set to true.
func respondOK(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(status, payload)
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, apperror.Newf(apperror.InvalidArgument, "Invalid %s id", what))
		return uuid.Nil, false
	}
	return id, true
}
