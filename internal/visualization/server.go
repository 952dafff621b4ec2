package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/store"
)

// Source loads the long rows to display.
type Source func(ctx context.Context) ([]models.LongRecord, error)

// StaticSource serves a fixed table.
func StaticSource(long []models.LongRecord) Source {
	rows := append([]models.LongRecord(nil), long...)
	return func(context.Context) ([]models.LongRecord, error) {
		return rows, nil
	}
}

// RunSource loads an archived run on every request.
func RunSource(rs store.RunStore, runID string) Source {
	return func(ctx context.Context) ([]models.LongRecord, error) {
		return rs.LoadObservations(ctx, runID)
	}
}

// Server serves the trajectory page and the underlying rows as JSON.
type Server struct {
	source     Source
	title      string
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new trajectory server.
func NewServer(source Source, title string) *Server {
	return &Server{
		source: source,
		title:  title,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/observations", s.handleObservations)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. ready, if non-nil, receives the address
// once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	// Let the OS pick a free port.
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	if ready != nil {
		ready(s.Addr())
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	long, err := s.source(r.Context())
	if err != nil {
		http.Error(w, "load error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := RenderTrajectories(&buf, long, s.title); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	long, err := s.source(r.Context())
	if err != nil {
		http.Error(w, "load error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(long)
}
