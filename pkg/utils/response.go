package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorBody 是所有 JSON 错误响应的结构
type ErrorBody struct {
	Error string `json:"error"`
	// UpstreamStatus echoes the assistant service status for upstream failures.
	UpstreamStatus int `json:"upstreamStatus,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondUpstreamError reports a failed assistant call as 502 Bad Gateway.
func RespondUpstreamError(w http.ResponseWriter, upstreamStatus int, message string) {
	RespondJSON(w, http.StatusBadGateway, ErrorBody{Error: message, UpstreamStatus: upstreamStatus})
}
