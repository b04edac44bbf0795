package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type promoteBody struct {
	Name string `json:"name"`
}

func (h *Handler) handleStagePreview(c *gin.Context) {
	file, ok := h.readImage(c)
	if !ok {
		return
	}

	p, err := h.server.StagePreview(c.Request.Context(), owner(c), file)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) handleGetPreview(c *gin.Context) {
	p, err := h.server.GetPreview(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		writeError(c, err)

		return
	}

	c.Data(http.StatusOK, p.MimeType, p.Content)
}

func (h *Handler) handlePromotePreview(c *gin.Context) {
	var body promoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	record, err := h.server.PromotePreview(c.Request.Context(), owner(c), c.Param("id"), body.Name)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) handleDiscardPreview(c *gin.Context) {
	if err := h.server.DiscardPreview(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}
