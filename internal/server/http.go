package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/config"
	"github.com/muurk/tvdiscovery/internal/logging"
	"github.com/muurk/tvdiscovery/internal/version"
)

// Handler returns the HTTP handler serving the feed and the health check
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logRequests(mux)
}

// healthResponse is the body of GET /healthz
type healthResponse struct {
	Status       string   `json:"status"`
	Version      string   `json:"version"`
	ActiveScans  int      `json:"active_scans"`
	ServiceTypes []string `json:"service_types"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:       "ok",
		Version:      version.Version,
		ActiveScans:  s.ActiveScans(),
		ServiceTypes: s.config.ServiceTypes,
	})
}

// parseServiceTypes reads the comma-separated ?types= value. An empty value
// selects defaults.
func parseServiceTypes(raw string, defaults []string) ([]string, error) {
	var types []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if err := config.ValidateServiceType(t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return append([]string(nil), defaults...), nil
	}
	return types, nil
}

// checkOrigin accepts same-origin and Origin-less requests plus the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	logging.Warn("Rejected WebSocket origin",
		zap.String("origin", origin),
		zap.String("remote_addr", r.RemoteAddr),
	)
	return false
}

// logRequests logs each request. The ResponseWriter is passed through
// unwrapped so the WebSocket upgrade can hijack it.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		LogHTTPRequestDetails(r, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// LogHTTPRequestDetails logs detailed information about an HTTP request
func LogHTTPRequestDetails(req *http.Request, remoteAddr string) {
	logging.Debug("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", req.Method),
		zap.String("uri", req.RequestURI),
		zap.String("upgrade", req.Header.Get("Upgrade")),
		zap.String("user_agent", req.UserAgent()),
	)
}

// httpError writes a plain-text error before any upgrade happened
func httpError(w http.ResponseWriter, status int, err error) {
	http.Error(w, fmt.Sprintf("%s: %v", http.StatusText(status), err), status)
}
