// Package api exposes the capture engine to a hosting application over
// HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"expvar"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/vearne/httpcap/capture"
	"github.com/vearne/httpcap/channel"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
	"github.com/vearne/httpcap/perm"
	slog "github.com/vearne/simplelog"
)

// Engine is the part of *capture.Engine the API drives.
type Engine interface {
	Init() error
	Stop() error
	Status() model.CaptureStatus
	RegisterStatusChannel(dst channel.Destination[model.CaptureStatus])
	RegisterRequestChannel(dst channel.Destination[*model.HTTPRequest])
	StatusChannel() channel.Destination[model.CaptureStatus]
	RequestChannel() channel.Destination[*model.HTTPRequest]
	PublishStatus()
}

type Server struct {
	engine Engine
	srv    *http.Server

	// origins besides the server's own host that may call the api
	allowedOrigins []string
	upgrader       websocket.Upgrader

	// overridable in tests
	counters   func(name string) (psnet.IOCountersStat, error)
	permission func() bool

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer creates a server for engine. Browser requests are only served
// for the server's own origin and allowedOrigins, e.g. "http://localhost:1420".
func NewServer(addr string, engine Engine, allowedOrigins []string) *Server {
	s := &Server{
		engine:         engine,
		allowedOrigins: allowedOrigins,
		counters:       capture.DeviceCounters,
		permission:     perm.HasCaptureHelper,
		clients:        make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/capture/init", s.handleInit)
	mux.HandleFunc("/api/capture/stop", s.handleStop)
	mux.HandleFunc("/api/capture/status", s.handleStatus)
	mux.HandleFunc("/api/capture/permission", s.handlePermission)
	mux.HandleFunc("/api/capture/device", s.handleDevice)

	mux.HandleFunc("/api/ws/status", s.handleStatusWebSocket)
	mux.HandleFunc("/api/ws/requests", s.handleRequestsWebSocket)

	mux.Handle("/debug/vars", expvar.Handler())
	return s.checkOrigin(mux)
}

// checkOrigin rejects requests sent by pages of other origins. Requests
// without an Origin header do not come from a browser page.
func (s *Server) checkOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.originAllowed(r) {
			slog.Warn("rejected request from origin %q, path:%v", r.Header.Get("Origin"), r.URL.Path)
			writeError(w, http.StatusForbidden, errors.New("origin not allowed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// isJSON makes state changing requests non-simple, so a cross-origin page
// cannot send them without a preflight.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// Start serves in the background. A failure to bind is logged.
func (s *Server) Start() {
	slog.Info("Starting api server on %s", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error: %v", err)
		}
	}()
}

// Shutdown stops accepting requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
	return err
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isJSON(r) {
		writeError(w, http.StatusUnsupportedMediaType, errors.New("content type must be application/json"))
		return
	}
	if err := s.engine.Init(); err != nil {
		slog.Warn("initialize capture: %v", err)
		code := http.StatusInternalServerError
		if errors.Is(err, consts.ErrAlreadyInitialized) || errors.Is(err, consts.ErrStatusInitialized) {
			code = http.StatusConflict
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isJSON(r) {
		writeError(w, http.StatusUnsupportedMediaType, errors.New("content type must be application/json"))
		return
	}
	if err := s.engine.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_helper": s.permission()})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st := s.engine.Status()
	if st.DeviceName == "" || st.DeviceName == consts.DeviceUnknown {
		writeError(w, http.StatusServiceUnavailable, errors.New("no capture device selected"))
		return
	}
	c, err := s.counters(st.DeviceName)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
