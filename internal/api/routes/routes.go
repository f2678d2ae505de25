package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/RamonSaldanha/gravadorjuridico/internal/api/handlers"
)

type Deps struct {
	Session   *handlers.SessionHandler
	Recording *handlers.RecordingHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/session/start", d.Session.Start)
	r.POST("/session/pause", d.Session.Pause)
	r.POST("/session/resume", d.Session.Resume)
	r.POST("/session/stop", d.Session.Stop)
	r.GET("/session/state", d.Session.State)
	r.PUT("/session/live-transcription", d.Session.SetLiveTranscription)

	r.GET("/recordings", d.Recording.List)
	r.GET("/recordings/:id", d.Recording.Get)
	r.PUT("/recordings/:id", d.Recording.Rename)
	r.DELETE("/recordings/:id", d.Recording.Delete)
	r.POST("/recordings/:id/transcribe", d.Recording.Transcribe)
	r.POST("/recordings/:id/diarize", d.Recording.Diarize)
	r.POST("/recordings/:id/dossier", d.Recording.Dossier)
	r.POST("/recordings/:id/export", d.Recording.Export)

	// WebSocket
	r.GET("/ws/session", d.WS.SessionWS)
}
