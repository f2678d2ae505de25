package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/RamonSaldanha/gravadorjuridico/internal/services"
)

// WSHandler pushes session snapshots (state, elapsed time, live transcript)
// to the recording screen over a websocket, once per second while connected.
type WSHandler struct {
	capture  services.CaptureService
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewWSHandler(capture services.CaptureService, log *logrus.Entry) *WSHandler {
	return &WSHandler{
		capture: capture,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // local single-user service
		},
	}
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(h.capture.Snapshot()); err != nil {
				return
			}
		}
	}
}
