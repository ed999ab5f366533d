package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/history"
	"github.com/sweeney/greenhouse-controller/internal/logic"
)

const (
	maxBodyBytes    = 4 << 10
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// controlRequest is the body of POST /api/control.
type controlRequest struct {
	Command string `json:"command"`
}

// statusResponse is the generic ok/error envelope.
type statusResponse struct {
	Status  string `json:"status"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

// triggersResponse is the body of GET /api/triggers.
type triggersResponse struct {
	Triggers []logic.TriggerState `json:"triggers"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps caller errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, logic.ErrInvalidCommand) || errors.Is(err, history.ErrRange) {
		code = http.StatusBadRequest
	} else {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, statusResponse{Status: "error", Error: err.Error()})
}

func xlsxFilename(res history.Result) string {
	return fmt.Sprintf("greenhouse-%s-%s.xlsx",
		res.Start.UTC().Format("20060102T1504"),
		res.End.UTC().Format("20060102T1504"))
}
