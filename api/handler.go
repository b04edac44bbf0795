// Package api exposes the registry over HTTP.
package api

import (
	"net/http"

	"map-artifact-registry/auth"
	"map-artifact-registry/metrics"
	"map-artifact-registry/registry"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is headroom for form fields and part headers on top of
// the image itself.
const multipartOverhead = 1 << 20

// Handler wires HTTP routes to the registry server.
type Handler struct {
	server         *registry.Server
	verifier       *auth.Verifier
	maxUploadBytes int64
}

func NewHandler(server *registry.Server, verifier *auth.Verifier, maxUploadBytes int64) *Handler {
	return &Handler{server: server, verifier: verifier, maxUploadBytes: maxUploadBytes}
}

// Router returns a configured gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMetrics())

	r.GET("/health", h.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, root := range h.server.Layout().Roots() {
		r.GET("/"+root+"/*path", h.handleServeArtifact)
	}

	api := r.Group("/api", auth.Middleware(h.verifier))

	images := api.Group("/images")
	images.POST("", h.handleUpload)
	images.GET("", h.handleListAll)
	images.POST("/generated", h.handleUploadGenerated)
	images.GET("/generated", h.handleListGenerated)
	images.GET("/generated/mine", h.handleListGeneratedMine)
	images.POST("/generated/save", h.handleDirectSave)
	images.GET("/other", h.handleListOther)
	images.GET("/other/mine", h.handleListOtherMine)

	previews := api.Group("/previews")
	previews.POST("", h.handleStagePreview)
	previews.GET("/:id", h.handleGetPreview)
	previews.POST("/:id/save", h.handlePromotePreview)
	previews.DELETE("/:id", h.handleDiscardPreview)

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// owner returns the verified caller. Routes behind auth.Middleware always
// have one.
func owner(c *gin.Context) string {
	identity, _ := auth.IdentityFrom(c)

	return identity.Owner()
}
