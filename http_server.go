package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HTTPServer wires the websocket endpoint, the read-only media mounts
// and the app shell onto one router.
type HTTPServer struct {
	session   *Session
	mediaDirs []string
	distDir   string
	upgrader  websocket.Upgrader
}

func NewHTTPServer(session *Session, mediaDirs []string, distDir string) *HTTPServer {
	return &HTTPServer{
		session:   session,
		mediaDirs: mediaDirs,
		distDir:   distDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", s.handleWebSocket)
	for _, dir := range s.mediaDirs {
		mount := mountPath(dir)
		fileServer := http.StripPrefix(mount+"/", http.FileServer(http.Dir(dir)))
		r.Method(http.MethodGet, mount+"/*", fileServer)
		log.Info().Str("mount", mount).Str("dir", dir).Msg("[http] serving media")
	}
	r.NotFound(s.serveShell)
	return r
}

func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("upgrade websocket")
		return
	}
	client := NewClient(conn, s.session)
	s.session.Attach(client)
	go client.writeLoop()
	client.readLoop()
}

// serveShell answers every non-API route. With --dist set it behaves
// like a static host with an index.html fallback for client-side
// routing; otherwise the embedded shell is used.
func (s *HTTPServer) serveShell(w http.ResponseWriter, r *http.Request) {
	if s.distDir != "" {
		p := filepath.Join(s.distDir, filepath.Clean("/"+r.URL.Path))
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			http.ServeFile(w, r, p)
			return
		}
		index := filepath.Join(s.distDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}
	serveIndex(w)
}
