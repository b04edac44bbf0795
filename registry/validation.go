package registry

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// validateFile checks an incoming payload and returns its effective media
// type. Nothing is written before this passes.
func (s *Server) validateFile(file Upload) (string, error) {
	mediaType := s.resolveMediaType(file.MimeType, file.Content)
	if !s.allowedTypes[mediaType] {
		return "", newUnsupportedMediaTypeError(mediaType)
	}

	if len(file.Content) == 0 {
		return "", newValidationError("image file is empty")
	}

	if s.maxBytes > 0 && int64(len(file.Content)) > s.maxBytes {
		return "", newValidationError(fmt.Sprintf(
			"image file is %d bytes, the limit is %d bytes",
			len(file.Content),
			s.maxBytes,
		))
	}

	return mediaType, nil
}

// resolveMediaType trusts the declared type and only sniffs the content when
// the client sent nothing more specific than an octet stream.
func (s *Server) resolveMediaType(declared string, content []byte) string {
	mediaType := baseMediaType(declared)
	if mediaType == "" || mediaType == octetStream {
		mediaType = baseMediaType(mimetype.Detect(content).String())
	}

	return mediaType
}

func baseMediaType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}

	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return value
	}

	return parsed
}

// normalizeOwner drops empty owners so they are stored as absent.
func normalizeOwner(owner *string) *string {
	if owner == nil || *owner == "" {
		return nil
	}

	value := *owner

	return &value
}

func validateDirectSave(req DirectSaveRequest) error {
	if strings.TrimSpace(req.StoragePath) == "" {
		return newValidationError("storagePath must be provided")
	}

	return nil
}

func validateOwner(owner string) error {
	if owner == "" {
		return newValidationError("owner must be provided")
	}

	return nil
}
