// Package gateway exposes the script features over HTTP.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"readyscriptpro/internal/domain"
)

// writeJSON emits a success response: the payload's fields flattened next
// to `success` and an RFC3339 UTC `timestamp`.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			_ = json.Unmarshal(raw, &body)
		}
	}
	body["success"] = true
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError emits a failure response with a sanitized human-readable
// message and a machine-parseable code. The full error is logged, never
// sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := domain.ErrorCodeOf(err)
	status := statusOf(code)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "error", err)
	} else {
		logger.Warn("request rejected", "code", code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"error":     messageOf(err),
		"code":      string(code),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusOf maps a domain error code to an HTTP status.
func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodePlanRequired, domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeLimitReached, domain.CodeRateLimit:
		return http.StatusTooManyRequests
	case domain.CodeCreditsExhausted:
		return http.StatusPaymentRequired
	case domain.CodeAuthInvalid, domain.CodeUpstreamServer, domain.CodeNetwork, domain.CodeProtocol:
		// Upstream failures, including credential problems with the
		// upstream API, are gateway errors from the client's view.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageOf returns the client-safe message for an error. Detail text is
// passed through only for request-level errors the gateway itself raised;
// upstream provider errors always get the generic message for their class.
func messageOf(err error) string {
	code := domain.ErrorCodeOf(err)
	if detailAllowed[code] {
		var de *domain.DomainError
		if errors.As(err, &de) && de.Detail != "" {
			return de.Detail
		}
	}
	if msg, ok := clientMessages[code]; ok {
		return msg
	}
	return "The request could not be completed. Please try again."
}

var detailAllowed = map[domain.ErrorCode]bool{
	domain.CodeInvalidInput:     true,
	domain.CodePlanRequired:     true,
	domain.CodePermissionDenied: true,
	domain.CodeLimitReached:     true,
}

var clientMessages = map[domain.ErrorCode]string{
	domain.CodeInvalidInput:     "The request body is invalid.",
	domain.CodePlanRequired:     "This feature requires a Pro subscription.",
	domain.CodePermissionDenied: "You do not have access to this feature.",
	domain.CodeLimitReached:     "Daily generation limit reached. Try again tomorrow.",
	domain.CodeRateLimit:        "The service is receiving too many requests. Try again shortly.",
	domain.CodeCreditsExhausted: "The account is out of credits.",
	domain.CodeAuthInvalid:      "The script service could not authenticate with its provider.",
	domain.CodeUpstreamServer:   "The script service is temporarily unavailable. Try again shortly.",
	domain.CodeNetwork:          "The script service could not be reached. Try again shortly.",
	domain.CodeProtocol:         "The script service returned an unexpected response.",
	domain.CodeMissingAPIKey:    "The service is not configured with an API key.",
}
