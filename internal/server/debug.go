package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	ops := s.dispatcher.Operations()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, string(op))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operations": names,
		"merge":      s.merger != nil,
		"connectors": s.archiver.Names(),
	})
}

func (s *Server) handleRequestDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.ledger.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":  "not_found",
			"detail": "no request with id " + id,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request":    entry,
		"latency_ms": entry.LatencyMillis(),
		"http_code":  httpCode(entry.ErrorKind),
	})
}

func httpCode(kind string) int {
	if kind == "" {
		return http.StatusOK
	}
	return mediaerr.StatusCode(mediaerr.Kind(kind))
}

type routeInfo struct {
	Method string `json:"method"`
	Route  string `json:"route"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	var routes []routeInfo
	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeInfo{Method: method, Route: route})
		return nil
	}
	if err := chi.Walk(s.router, walk); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Route != routes[j].Route {
			return routes[i].Route < routes[j].Route
		}
		return routes[i].Method < routes[j].Method
	})
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) handleStoreState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"store": s.ledger.State(r.Context()),
	})
}
