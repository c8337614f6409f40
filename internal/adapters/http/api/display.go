package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/arenalabs/motionduel/internal/app/orchestrator"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	// frameBacklog bounds how far a slow display may lag before frames are
	// dropped. The record in the store stays authoritative, so drops only
	// cost display smoothness.
	frameBacklog = 16
)

// handleDisplayWS streams live frames to a display client.
func (s *Server) handleDisplayWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "display upgrade failed", logger.Error(err))
		return
	}

	metrics.IncDisplayClients()
	defer metrics.DecDisplayClients()
	defer conn.Close()

	// Server read/write timeouts do not suit a long-lived feed; the write
	// deadline is re-armed per message instead.
	_ = conn.SetReadDeadline(time.Time{})

	frames := make(chan orchestrator.Frame, frameBacklog)
	unsubscribe := s.deps.SubscribeFrames(func(fr orchestrator.Frame) {
		select {
		case frames <- fr:
		default:
		}
	})
	defer unsubscribe()

	// Reader goroutine: displays send nothing meaningful, but reading keeps
	// close and pong handling alive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case fr := <-frames:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(fr); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleDisplayQR serves a PNG QR code pointing at the display page.
func (s *Server) handleDisplayQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	url := s.displayURL
	if url == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		url = scheme + "://" + r.Host + "/display"
	}

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr_failed", errors.New("qr generation failed"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
