package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RamonSaldanha/gravadorjuridico/internal/services"
)

type RecordingHandler struct {
	svc services.RecordingService
}

func NewRecordingHandler(svc services.RecordingService) *RecordingHandler {
	return &RecordingHandler{svc: svc}
}

func (h *RecordingHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *RecordingHandler) Get(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *RecordingHandler) Rename(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody("RecordingHandler.Rename", err))
		return
	}
	if err := h.svc.Rename(c.Request.Context(), id, req.Title); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordingHandler) Delete(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordingHandler) Transcribe(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Transcribe(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordingHandler) Diarize(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Diarize(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordingHandler) Dossier(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	rec, err := h.svc.GenerateDossier(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordingHandler) Export(c *gin.Context) {
	id, ok := recordingID(c)
	if !ok {
		return
	}
	stored, err := h.svc.Export(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored_path": stored})
}
