// Package server streams model results to browser clients over websockets.
// Each connection gets its own hub holding a parameter set and a window of
// forcing samples the client pushes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"glacier/calculator"
	"glacier/model"
)

// Options configure every hub the server creates.
type Options struct {
	Addr    string
	Site    string
	Params  model.Params
	Workers int

	// Domain is used by runs that do not send elevations.
	Domain calculator.Domain
	Dt     float64

	// Window is the number of forcing samples a connection keeps.
	Window int
}

func (o Options) withDefaults() Options {
	if o.Dt <= 0 {
		o.Dt = 1
	}
	if o.Window < 1 {
		o.Window = 8760
	}
	return o
}

type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	metrics  *Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewServer(opts Options, upgrader websocket.Upgrader, metrics *Metrics) *Server {
	return &Server{
		opts:     opts.withDefaults(),
		upgrader: upgrader,
		metrics:  metrics,
		conns:    make(map[*websocket.Conn]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	mux.HandleFunc("/healthz", s.serveHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.conns)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"connections": n,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
		}).WithError(err).Warn("health reply failed")
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	s.track(conn, true)
	s.metrics.Connections.Inc()
	defer func() {
		s.metrics.Connections.Dec()
		s.track(conn, false)
		conn.Close()
	}()

	enc := newEncoder(r)
	hub := NewHub(s.opts, s.metrics, enc)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.handleRequest(ctx)
	go hub.handleResponse(conn)

	fields := log.Fields{
		"remote": r.RemoteAddr,
		"format": enc.name(),
	}
	log.WithFields(fields).Info("client connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithFields(fields).WithError(err).Info("read failed")
			}
			break
		}
		hub.msg <- data
	}
	cancel()
	close(hub.msg)
	<-hub.done
	log.WithFields(fields).Info("client disconnected")
}

func (s *Server) track(conn *websocket.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    s.opts.Addr,
			"workers": s.opts.Workers,
			"window":  s.opts.Window,
		}).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeConns()
	if errors.Is(<-errCh, http.ErrServerClosed) {
		log.Info("server stopped")
	}
	return err
}
