// Package web provides the HTTP API and status page for the greenhouse controller.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/sweeney/greenhouse-controller/internal/greenhouse"
	"github.com/sweeney/greenhouse-controller/internal/history"
	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
	"github.com/sweeney/greenhouse-controller/internal/status"
)

// API is the set of controller operations served over HTTP.
// greenhouse.Service satisfies it.
type API interface {
	LatestReading(ctx context.Context) (logic.Reading, bool, error)
	SubmitCommandText(text string) (logic.Command, error)
	TriggerStates(ctx context.Context) ([]logic.TriggerState, error)
	ResetDevices(ctx context.Context) (greenhouse.ResetResult, error)
	History(ctx context.Context, start, end string) (history.Result, error)
}

// Server serves the status page and the JSON API.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	api        API
	logger     *zap.Logger
}

// New creates a Server that reads state from tracker and delegates API calls to api.
func New(addr string, tracker *status.Tracker, api API, logger *zap.Logger) *Server {
	s := &Server{tracker: tracker, api: api, logger: logger}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.HandleFunc("/data", s.handleData).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/control", s.handleControl).Methods(http.MethodPost)
	apiRoutes.HandleFunc("/triggers", s.handleTriggers).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	apiRoutes.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/history.xlsx", s.handleHistoryXLSX).Methods(http.MethodGet)

	access := &zapio.Writer{Log: logger.Named("http"), Level: zap.DebugLevel}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(access, r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, including access logging.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// instrument records request latency by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HttpRequestLatencySeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warn("failed to render status page", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	reading, ok, err := s.api.LatestReading(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Error: err.Error()})
		return
	}

	cmd, err := s.api.SubmitCommandText(req.Command)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Command: cmd.String()})
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	states, err := s.api.TriggerStates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, triggersResponse{Triggers: states})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.api.ResetDevices(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.Triggers == nil {
		res.Triggers = []logic.TriggerState{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) (history.Result, bool) {
	q := r.URL.Query()
	res, err := s.api.History(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, err)
		return history.Result{}, false
	}
	if res.Series == nil {
		res.Series = []logic.Bucket{}
	}
	if res.Triggers == nil {
		res.Triggers = logic.TriggerSummary{}
	}
	return res, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.history(w, r); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	res, ok := s.history(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+xlsxFilename(res)+`"`)
	if err := history.WriteXLSX(w, res); err != nil {
		s.logger.Error("failed to write history workbook", zap.Error(err))
	}
}
