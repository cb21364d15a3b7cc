// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/status"
	"github.com/tamzrod/modbus-viewer/internal/store"
)

// Store is the read side the endpoint needs. *store.Store satisfies it.
type Store interface {
	FirstState(ctx context.Context) (store.State, error)
	UserForToken(ctx context.Context, token string) (string, error)
}

// Server serves the device state to authenticated dashboards.
type Server struct {
	store   Store
	tracker *status.Tracker // optional; /health reports unknown without it
	log     zerolog.Logger
}

// New builds the REST server.
func New(st Store, tracker *status.Tracker, log zerolog.Logger) *Server {
	return &Server{
		store:   st,
		tracker: tracker,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed, CORS-enabled handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleState)
	return s.logRequests(cors(mux))
}

// ---- handlers ----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	user, ok := s.authenticate(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Token realm="Authentication Required"`)
		writeError(w, http.StatusUnauthorized, "Unauthorized Access")
		return
	}

	st, err := s.store.FirstState(r.Context())
	if errors.Is(err, store.ErrNoState) {
		writeError(w, http.StatusNotFound, "No modbus data found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("read state")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, device.Payload{
		User: user,
		IP:   st.IP,
		DI:   st.DI,
		CO:   st.CO,
		IR:   st.IR,
		HR:   st.HR,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := status.Snapshot{Health: status.HealthUnknown}
	if s.tracker != nil {
		snap = s.tracker.Snapshot()
	}

	code := http.StatusOK
	if snap.Health == status.HealthError || snap.Health == status.HealthStale {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status.Encode(snap))
}

// authenticate resolves "Authorization: Token <t>" to the owning user.
// A lookup failure denies access; it never leaks as a 500.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	token, ok := TokenFromHeader(r.Header.Get("Authorization"))
	if !ok {
		return "", false
	}
	user, err := s.store.UserForToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, store.ErrUnknownToken) {
			s.log.Error().Err(err).Msg("token verification")
		}
		return "", false
	}
	return user, true
}

// TokenFromHeader extracts the credential of a "Token <t>" authorization header.
// The scheme is case-insensitive.
func TokenFromHeader(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ---- middleware ----

// cors allows any origin, answering preflights directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			} else {
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.code).
			Dur("took", time.Since(started)).
			Msg("request")
	})
}

// ---- encoding ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
