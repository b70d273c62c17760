package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/shop-users/internal/errs"
)

// Envelope is the uniform response body.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

const msgInternal = "internal server error"

var nowFunc = time.Now

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = nowFunc().UnixMilli()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, msg string, data any) {
	if msg == "" {
		msg = "success"
	}
	writeJSON(w, http.StatusOK, Envelope{Code: http.StatusOK, Message: msg, Data: data})
}

// writeError maps err to an envelope. Tagged errors below 500 keep their code
// and message; everything else becomes a fixed 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	e, ok := errs.As(err)
	if !ok || e.Code >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Envelope{Code: http.StatusInternalServerError, Message: msgInternal})
		return
	}
	writeJSON(w, e.Code, Envelope{Code: e.Code, Message: e.Message})
}
