package registry

import (
	"errors"
	"fmt"

	"map-artifact-registry/orm"
	"map-artifact-registry/preview"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Static errors to avoid err113 violations
var (
	ErrRegistryNil          = errors.New("registry is nil")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrWriteFailure         = errors.New("artifact write failed")
	ErrPersistenceFailure   = errors.New("artifact record persistence failed")
	ErrValidationFailure    = errors.New("validation failed")
	ErrArtifactNotFound     = errors.New("artifact not found")
	ErrArtifactExists       = errors.New("artifact already exists")
	ErrForbidden            = errors.New("forbidden")
)

// ServiceError represents public-facing errors from the registry service
type ServiceError struct {
	Code    codes.Code
	Message string
	Inner   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Inner
}

func (e *ServiceError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// wrapPersistenceError converts record repository errors to service errors.
// The result always matches ErrPersistenceFailure.
func wrapPersistenceError(err error, operation string) error {
	if err == nil {
		return nil
	}

	inner := fmt.Errorf("%w: %w", ErrPersistenceFailure, err)

	var badInputErr *orm.BadInputError
	if errors.As(err, &badInputErr) {
		return &ServiceError{
			Code:    codes.InvalidArgument,
			Message: "Invalid artifact record for " + operation + ": " + badInputErr.Reason,
			Inner:   inner,
		}
	}

	var conflictErr *orm.ConflictError
	if errors.As(err, &conflictErr) {
		return &ServiceError{
			Code:    codes.AlreadyExists,
			Message: "Artifact record already exists for " + operation,
			Inner:   inner,
		}
	}

	return &ServiceError{
		Code:    codes.Internal,
		Message: "Internal server error during " + operation,
		Inner:   inner,
	}
}

func newUnsupportedMediaTypeError(mimeType string) error {
	return &ServiceError{
		Code:    codes.InvalidArgument,
		Message: fmt.Sprintf("Unsupported file type %q, only PNG and JPEG images are accepted", mimeType),
		Inner:   ErrUnsupportedMediaType,
	}
}

func newValidationError(message string) error {
	return &ServiceError{
		Code:    codes.InvalidArgument,
		Message: message,
		Inner:   ErrValidationFailure,
	}
}

func newWriteFailureError(err error) error {
	return &ServiceError{
		Code:    codes.Internal,
		Message: "Failed to store artifact",
		Inner:   fmt.Errorf("%w: %w", ErrWriteFailure, err),
	}
}

func newArtifactNotFoundError(storagePath string, err error) error {
	return &ServiceError{
		Code:    codes.NotFound,
		Message: "Artifact not found at " + storagePath,
		Inner:   err,
	}
}

func newPreviewNotFoundError(id string) error {
	return &ServiceError{
		Code:    codes.NotFound,
		Message: "Preview " + id + " not found or expired",
		Inner:   preview.ErrPreviewNotFound,
	}
}

func newForbiddenError(message string) error {
	return &ServiceError{
		Code:    codes.PermissionDenied,
		Message: message,
		Inner:   ErrForbidden,
	}
}

func newInternalError(operation string, err error) error {
	return &ServiceError{
		Code:    codes.Internal,
		Message: "Internal server error during " + operation,
		Inner:   err,
	}
}

func newRegistryUnavailableError(operation string) error {
	return &ServiceError{
		Code:    codes.Unavailable,
		Message: "Registry service unavailable for " + operation,
		Inner:   ErrRegistryNil,
	}
}
