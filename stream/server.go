// Package stream serves annotated frames and live count statistics over
// HTTP for headless deployments.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mzocca/go-personcounter/counter"
	"github.com/mzocca/go-personcounter/store"
)

// StatsSource returns a snapshot of the running counts
type StatsSource func() counter.Stats

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Person Counter</title></head>
<body style="background:#111;color:#eee;font-family:sans-serif;text-align:center">
<h1>Person Counter</h1>
<img src="/stream" alt="live stream">
<pre id="stats"></pre>
<script>
var ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function (ev) {
	document.getElementById("stats").textContent = ev.data;
};
</script>
</body>
</html>
`

// Server streams MJPEG video and count statistics to browsers.  The
// capture loop publishes annotated frames with SetFrame, the server never
// touches the camera.
type Server struct {
	addr string
	// interval paces the MJPEG stream to the configured frame rate
	interval time.Duration
	stats    StatsSource
	// db is optional, without it the sessions endpoint is not routed
	db  *store.Store
	hub *Hub
	log *logrus.Logger

	mu    sync.RWMutex
	frame []byte

	srv  *http.Server
	done chan struct{}
}

// New returns a Server listening on addr once started.  fps paces the
// MJPEG stream, stats supplies counter snapshots, and db may be nil when
// no persistence is configured.
func New(addr string, fps int, stats StatsSource, db *store.Store,
	log *logrus.Logger) *Server {

	if fps < 1 {
		fps = 15
	}

	s := &Server{
		addr:     addr,
		interval: time.Duration(float64(time.Second) / float64(fps)),
		stats:    stats,
		db:       db,
		hub:      NewHub(log),
		log:      log,
		done:     make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/stream", s.handleStream)
	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.handleWS)

	if s.db != nil {
		r.Get("/sessions", s.handleSessions)
	}

	s.srv = &http.Server{
		Addr:    addr,
		Handler: r,
	}

	return s
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the websocket hub and stats broadcaster and serves HTTP
// until Shutdown is called
func (s *Server) Start() error {

	go s.hub.Run()
	go s.broadcastStats()

	s.log.Infof("http server listening on %s", s.addr)

	err := s.srv.ListenAndServe()

	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

// Shutdown stops the broadcaster and hub and gracefully shuts down the
// HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	s.hub.Stop()
	return s.srv.Shutdown(ctx)
}

// SetFrame publishes the latest annotated JPEG frame for streaming
func (s *Server) SetFrame(frame []byte) {

	buf := make([]byte, len(frame))
	copy(buf, frame)

	s.mu.Lock()
	s.frame = buf
	s.mu.Unlock()
}

// Frame returns the most recently published JPEG frame
func (s *Server) Frame() []byte {

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frame
}

// broadcastStats pushes a stats snapshot to websocket clients once a
// second while any are connected
func (s *Server) broadcastStats() {

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case <-ticker.C:

			if s.hub.ClientCount() == 0 {
				continue
			}

			payload, err := json.Marshal(s.stats())

			if err != nil {
				s.log.Errorf("failed to marshal stats: %v", err)
				continue
			}

			s.hub.Broadcast(payload)
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// handleStream streams the published frames as MJPEG until the client
// disconnects
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {

	s.log.Info("stream client connected")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("stream client disconnected")
			return

		case <-ticker.C:

			frame := s.Frame()

			if frame == nil {
				continue
			}

			// write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)
			w.Write([]byte("\r\n"))

			// flush the buffer
			flusher, ok := w.(http.Flusher)
			if ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.stats()); err != nil {
		s.log.Errorf("failed to encode stats: %v", err)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {

	sessions, err := s.db.Sessions(r.Context(), 20)

	if err != nil {
		s.log.Errorf("failed to query sessions: %v", err)
		http.Error(w, "failed to query sessions", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []store.Session{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		s.log.Errorf("failed to encode sessions: %v", err)
	}
}

// handleWS upgrades the connection and registers it with the hub.  Client
// messages are drained until the connection closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		s.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	s.hub.Register(conn)

	go func() {
		defer s.hub.Unregister(conn)

		conn.SetReadLimit(512)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
