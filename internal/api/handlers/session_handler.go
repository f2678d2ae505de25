package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RamonSaldanha/gravadorjuridico/internal/services"
)

type SessionHandler struct {
	capture services.CaptureService
}

func NewSessionHandler(capture services.CaptureService) *SessionHandler {
	return &SessionHandler{capture: capture}
}

func (h *SessionHandler) Start(c *gin.Context) {
	if err := h.capture.Start(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.capture.Snapshot())
}

func (h *SessionHandler) Pause(c *gin.Context) {
	h.capture.Pause()
	c.JSON(http.StatusOK, h.capture.Snapshot())
}

func (h *SessionHandler) Resume(c *gin.Context) {
	h.capture.Resume()
	c.JSON(http.StatusOK, h.capture.Snapshot())
}

// Stop uses the background context on purpose: a client disconnect must not
// cancel the drain mid-way.
func (h *SessionHandler) Stop(c *gin.Context) {
	rec, err := h.capture.Stop(context.Background())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *SessionHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.capture.Snapshot())
}

type liveTranscriptionRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *SessionHandler) SetLiveTranscription(c *gin.Context) {
	var req liveTranscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody("SessionHandler.SetLiveTranscription", err))
		return
	}
	h.capture.SetLiveTranscription(*req.Enabled)
	c.JSON(http.StatusOK, h.capture.Snapshot())
}
