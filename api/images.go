package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"map-artifact-registry/orm"
	"map-artifact-registry/registry"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const (
	formFieldImage = "image"
	formFieldName  = "name"
	formFieldType  = "type"
)

type directSaveBody struct {
	StoragePath string `json:"storagePath"`
	Name        string `json:"name"`
}

func (h *Handler) handleUpload(c *gin.Context) {
	file, ok := h.readImage(c)
	if !ok {
		return
	}

	callerOwner := owner(c)
	record, err := h.server.UploadArtifact(c.Request.Context(), registry.UploadRequest{
		Name:         c.PostForm(formFieldName),
		Owner:        &callerOwner,
		DeclaredType: c.PostForm(formFieldType),
		File:         file,
	})
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) handleUploadGenerated(c *gin.Context) {
	file, ok := h.readImage(c)
	if !ok {
		return
	}

	callerOwner := owner(c)
	record, err := h.server.UploadGeneratedArtifact(c.Request.Context(), registry.UploadRequest{
		Name:  c.PostForm(formFieldName),
		Owner: &callerOwner,
		File:  file,
	})
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) handleDirectSave(c *gin.Context) {
	var body directSaveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	callerOwner := owner(c)
	record, err := h.server.SaveGeneratedArtifact(c.Request.Context(), registry.DirectSaveRequest{
		Owner:       &callerOwner,
		StoragePath: body.StoragePath,
		Name:        body.Name,
	})
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) handleListAll(c *gin.Context) {
	h.list(c, h.server.ListAll)
}

func (h *Handler) handleListGenerated(c *gin.Context) {
	h.list(c, h.server.ListGenerated)
}

func (h *Handler) handleListGeneratedMine(c *gin.Context) {
	callerOwner := owner(c)
	h.list(c, func(ctx context.Context) ([]orm.ArtifactRecord, error) {
		return h.server.ListGeneratedByOwner(ctx, callerOwner)
	})
}

func (h *Handler) handleListOther(c *gin.Context) {
	h.list(c, h.server.ListOther)
}

func (h *Handler) handleListOtherMine(c *gin.Context) {
	callerOwner := owner(c)
	h.list(c, func(ctx context.Context) ([]orm.ArtifactRecord, error) {
		return h.server.ListOtherByOwner(ctx, callerOwner)
	})
}

func (h *Handler) list(
	c *gin.Context,
	query func(context.Context) ([]orm.ArtifactRecord, error),
) {
	records, err := query(c.Request.Context())
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) handleServeArtifact(c *gin.Context) {
	content, err := h.server.OpenArtifact(c.Request.Context(), c.Request.URL.Path)
	if err != nil {
		writeError(c, err)

		return
	}

	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}

// readImage pulls the "image" part out of a multipart body. On failure the
// response is already written.
func (h *Handler) readImage(c *gin.Context) (registry.Upload, bool) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	header, err := c.FormFile(formFieldImage)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(c, http.StatusRequestEntityTooLarge, fmt.Sprintf(
				"request body exceeds %d bytes", tooLarge.Limit,
			))

			return registry.Upload{}, false
		}
		writeMessage(c, http.StatusBadRequest, "multipart field \"image\" is required")

		return registry.Upload{}, false
	}

	part, err := header.Open()
	if err != nil {
		writeError(c, err)

		return registry.Upload{}, false
	}
	defer func() { _ = part.Close() }()

	content, err := io.ReadAll(part)
	if err != nil {
		writeError(c, err)

		return registry.Upload{}, false
	}

	return registry.Upload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  content,
	}, true
}
