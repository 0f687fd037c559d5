package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))

	gl := &Greenlist{
		AllowedNames:     []string{"alice", "bob"},
		MediaDirectories: []string{root},
	}
	catalog := NewCatalog(gl.MediaDirectories)
	catalog.Start()
	session := NewSession(gl, catalog)
	session.Start()

	ts := httptest.NewServer(NewHTTPServer(session, gl.MediaDirectories, "").Router())
	t.Cleanup(func() {
		ts.Close()
		session.Close()
		catalog.Close()
	})
	return ts, root
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ServerEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev ServerEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

// awaitEvent skips unrelated broadcasts (roster updates from other
// joiners, mostly) until the wanted type arrives.
func awaitEvent(t *testing.T, conn *websocket.Conn, typ string) ServerEvent {
	t.Helper()
	for i := 0; i < 16; i++ {
		ev := readEvent(t, conn)
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("event %q never arrived", typ)
	return ServerEvent{}
}

func joinAs(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	if err := conn.WriteJSON(ClientMessage{Type: msgSetUsername, Name: name}); err != nil {
		t.Fatalf("send setUsername: %v", err)
	}
	awaitEvent(t, conn, evtUserList)
}

func TestWebSocketAdmissionFlow(t *testing.T) {
	ts, root := newTestServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(ClientMessage{Type: msgSetUsername, Name: "alice"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Type != evtChatEnabled || ev.Enabled == nil || !*ev.Enabled {
		t.Fatalf("expected admission grant, got %+v", ev)
	}
	if ev = readEvent(t, conn); ev.Type != evtChatHistory {
		t.Fatalf("expected history, got %+v", ev)
	}
	ev = readEvent(t, conn)
	if ev.Type != evtMediaList {
		t.Fatalf("expected catalog, got %+v", ev)
	}
	if len(ev.Listings) != 1 || ev.Listings[0].Dir != root {
		t.Fatalf("catalog listings = %+v", ev.Listings)
	}
	found := false
	for _, f := range ev.Listings[0].Files {
		if f == "a.mp4" {
			found = true
		}
	}
	if !found {
		t.Fatalf("a.mp4 missing from catalog: %v", ev.Listings[0].Files)
	}
	ev = readEvent(t, conn)
	if ev.Type != evtUserList || len(ev.Users) != 1 || ev.Users[0].Name != "alice" {
		t.Fatalf("expected roster with alice, got %+v", ev)
	}
}

func TestWebSocketChatAndPlaybackAcrossConnections(t *testing.T) {
	ts, root := newTestServer(t)
	a := dialWS(t, ts)
	b := dialWS(t, ts)
	joinAs(t, a, "alice")
	joinAs(t, b, "bob")
	awaitEvent(t, a, evtUserList) // bob's join

	if err := a.WriteJSON(ClientMessage{Type: msgChatMessage, Text: "hello"}); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		ev := awaitEvent(t, conn, evtChatMessage)
		if ev.Message == nil || ev.Message.Author != "alice" || ev.Message.Text != "hello" {
			t.Fatalf("chat broadcast = %+v", ev)
		}
	}

	if err := a.WriteJSON(ClientMessage{Type: msgSelectMedia, Dir: root, File: "a.mp4"}); err != nil {
		t.Fatalf("send selectMedia: %v", err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		ev := awaitEvent(t, conn, evtPlayingNow)
		if ev.Media == nil || ev.Media.Dir != root || ev.Media.File != "a.mp4" || ev.Media.Mode != ModeIdle {
			t.Fatalf("shared reference = %+v", ev)
		}
	}

	if err := a.WriteJSON(ClientMessage{Type: msgPlayMedia, Dir: root, File: "a.mp4"}); err != nil {
		t.Fatalf("send playMedia: %v", err)
	}
	ev := awaitEvent(t, b, evtPlay)
	if ev.Media == nil || ev.Media.File != "a.mp4" {
		t.Fatalf("play mirror = %+v", ev)
	}

	if err := a.WriteJSON(ClientMessage{Type: msgSeekMedia, Dir: root, File: "a.mp4", Timestamp: 12.5}); err != nil {
		t.Fatalf("send seekMedia: %v", err)
	}
	ev = awaitEvent(t, b, evtSeek)
	if ev.Timestamp != 12.5 {
		t.Fatalf("seek mirror = %+v", ev)
	}
}

func TestWebSocketDeniedName(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(ClientMessage{Type: msgSetUsername, Name: "mallory"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != evtChatEnabled || ev.Enabled == nil || *ev.Enabled {
		t.Fatalf("expected denial, got %+v", ev)
	}
	if ev = readEvent(t, conn); ev.Type != evtError {
		t.Fatalf("expected error, got %+v", ev)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMediaFileServing(t *testing.T) {
	ts, root := newTestServer(t)

	resp, err := http.Get(ts.URL + mountPath(root) + "/a.mp4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatal("empty media body")
	}
}

func TestShellServedOnUnknownRoutes(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, p := range []string{"/", "/some/client/route"} {
		resp, err := http.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", p, resp.StatusCode)
		}
		if !strings.Contains(string(body), "WatchZone") {
			t.Fatalf("%s: shell not served", p)
		}
	}
}

func TestDistDirFallback(t *testing.T) {
	dist := t.TempDir()
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>custom shell</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dist, "app.js"), []byte("// app"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	gl := &Greenlist{AllowedNames: []string{"alice"}}
	session := NewSession(gl, NewCatalog(nil))
	session.Start()
	t.Cleanup(session.Close)
	ts := httptest.NewServer(NewHTTPServer(session, nil, dist).Router())
	t.Cleanup(ts.Close)

	for path, want := range map[string]string{
		"/app.js":     "// app",
		"/":           "custom shell",
		"/deep/route": "custom shell",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(body), want) {
			t.Fatalf("%s: body %q, want substring %q", path, body, want)
		}
	}
}
