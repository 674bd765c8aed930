package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mzocca/go-personcounter/counter"
	"github.com/mzocca/go-personcounter/store"
)

// newTestServer returns a stream server with a fixed stats source wrapped
// in a test HTTP server
func newTestServer(t *testing.T, db *store.Store) (*Server, *httptest.Server) {

	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	stats := func() counter.Stats {
		return counter.Stats{Current: 2, Total: 7, Max: 4, FPS: 14.5}
	}

	srv := New("127.0.0.1:0", 50, stats, db, log)

	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(ts.Close)

	return srv, ts
}

func TestIndexPage(t *testing.T) {

	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")

	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d; want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}

	if !strings.Contains(string(body), "/stream") {
		t.Error("index page does not embed the stream")
	}
}

func TestStatsEndpoint(t *testing.T) {

	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/stats")

	if err != nil {
		t.Fatalf("GET /stats failed: %v", err)
	}

	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q; want %q", ct, "application/json")
	}

	var stats counter.Stats

	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats failed: %v", err)
	}

	if stats.Current != 2 || stats.Total != 7 || stats.Max != 4 {
		t.Errorf("stats = current %d, total %d, max %d; want 2, 7, 4",
			stats.Current, stats.Total, stats.Max)
	}
}

func TestSessionsEndpoint(t *testing.T) {

	db, err := store.Open(filepath.Join(t.TempDir(), "counts.db"))

	if err != nil {
		t.Fatalf("opening store failed: %v", err)
	}

	defer db.Close()

	if _, err := db.BeginSession("video.mp4"); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	_, ts := newTestServer(t, db)

	resp, err := http.Get(ts.URL + "/sessions")

	if err != nil {
		t.Fatalf("GET /sessions failed: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /sessions status = %d; want %d", resp.StatusCode, http.StatusOK)
	}

	var sessions []store.Session

	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decoding sessions failed: %v", err)
	}

	if len(sessions) != 1 {
		t.Fatalf("got %d sessions; want 1", len(sessions))
	}

	if sessions[0].Source != "video.mp4" {
		t.Errorf("session source = %q; want %q", sessions[0].Source, "video.mp4")
	}
}

func TestSessionsNotRoutedWithoutStore(t *testing.T) {

	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/sessions")

	if err != nil {
		t.Fatalf("GET /sessions failed: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /sessions status = %d; want %d",
			resp.StatusCode, http.StatusNotFound)
	}
}

func TestStreamDeliversFrames(t *testing.T) {

	srv, ts := newTestServer(t, nil)

	srv.SetFrame([]byte("notarealjpeg"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)

	if err != nil {
		t.Fatalf("building request failed: %v", err)
	}

	resp, err := ts.Client().Do(req)

	if err != nil {
		t.Fatalf("GET /stream failed: %v", err)
	}

	defer resp.Body.Close()

	want := "multipart/x-mixed-replace; boundary=frame"

	if ct := resp.Header.Get("Content-Type"); ct != want {
		t.Errorf("content type = %q; want %q", ct, want)
	}

	expected := "--frame\r\nContent-Type: image/jpeg\r\n\r\nnotarealjpeg\r\n"

	buf := make([]byte, len(expected))

	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("reading stream failed: %v", err)
	}

	if string(buf) != expected {
		t.Errorf("stream part = %q; want %q", string(buf), expected)
	}
}

func TestSetFrameCopies(t *testing.T) {

	srv, _ := newTestServer(t, nil)

	buf := []byte("abc")
	srv.SetFrame(buf)

	buf[0] = 'x'

	if got := srv.Frame(); string(got) != "abc" {
		t.Errorf("published frame = %q; want %q", string(got), "abc")
	}
}

// dialWS connects a websocket client to the test server and waits for the
// hub to register it
func dialWS(t *testing.T, srv *Server, ts *httptest.Server) *websocket.Conn {

	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)

	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	deadline := time.Now().Add(2 * time.Second)

	for srv.hub.ClientCount() == 0 {

		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}

		time.Sleep(10 * time.Millisecond)
	}

	return conn
}

func TestWebsocketBroadcast(t *testing.T) {

	srv, ts := newTestServer(t, nil)

	go srv.hub.Run()
	defer srv.hub.Stop()

	conn := dialWS(t, srv, ts)

	srv.hub.Broadcast([]byte(`{"current":1}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := conn.ReadMessage()

	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}

	if string(msg) != `{"current":1}` {
		t.Errorf("broadcast message = %q; want %q", string(msg), `{"current":1}`)
	}
}

func TestHubStopReleasesHandlers(t *testing.T) {

	srv, ts := newTestServer(t, nil)

	go srv.hub.Run()

	conn := dialWS(t, srv, ts)

	srv.hub.Stop()

	// the read drain goroutine unregisters once its connection drops,
	// that must return rather than block on the stopped hub
	released := make(chan struct{})

	go func() {
		srv.hub.Unregister(conn)
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister blocked after the hub stopped")
	}

	// late registrations must not block either
	registered := make(chan struct{})

	go func() {
		srv.hub.Register(conn)
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked after the hub stopped")
	}

	// the stopping hub closes out every tracked connection
	deadline := time.Now().Add(2 * time.Second)

	for srv.hub.ClientCount() != 0 {

		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() after stop = %d; want 0", srv.hub.ClientCount())
		}

		time.Sleep(10 * time.Millisecond)
	}
}
