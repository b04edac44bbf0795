package api

import (
	"errors"
	"net/http"

	"map-artifact-registry/registry"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
)

func writeError(c *gin.Context, err error) {
	status, message := httpStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	writeMessage(c, status, message)
}

func writeMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// httpStatus maps service errors to a status and a client-safe message.
// Anything that is not a ServiceError is reported as an internal error.
func httpStatus(err error) (int, string) {
	var serviceErr *registry.ServiceError
	if !errors.As(err, &serviceErr) {
		return http.StatusInternalServerError, "Internal server error"
	}

	if errors.Is(err, registry.ErrUnsupportedMediaType) {
		return http.StatusUnsupportedMediaType, serviceErr.Message
	}

	switch serviceErr.Code {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest, serviceErr.Message
	case codes.NotFound:
		return http.StatusNotFound, serviceErr.Message
	case codes.PermissionDenied:
		return http.StatusForbidden, serviceErr.Message
	case codes.Unauthenticated:
		return http.StatusUnauthorized, serviceErr.Message
	case codes.AlreadyExists:
		return http.StatusConflict, serviceErr.Message
	case codes.Unavailable:
		return http.StatusServiceUnavailable, serviceErr.Message
	default:
		return http.StatusInternalServerError, serviceErr.Message
	}
}
