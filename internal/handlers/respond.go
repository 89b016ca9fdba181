package handlers

import (
	"KnowBase/internal/service"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку сервиса в HTTP-ответ {"error": "..."}.
// Подробности уходят только в серверный лог.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw(op+" failed", "status", status, "error", err)
	} else {
		logger.Debugw(op+" rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func classify(err error) (int, string) {
	var (
		ve *service.ValidationError
		ae *service.AuthorizationError
		ne *service.NotFoundError
		ce *service.ConfigurationError
		le *service.UploadError
		ue *service.UpstreamError
	)
	switch {
	case errors.Is(err, service.ErrLoginTaken):
		return http.StatusConflict, "login already taken"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid login or password"
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.As(err, &ae):
		if ae.Anonymous {
			return http.StatusUnauthorized, "unauthorized"
		}
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &ne):
		return http.StatusNotFound, ne.Error()
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable, "service is not configured"
	case errors.As(err, &le):
		return http.StatusBadGateway, "file storage failed"
	case errors.As(err, &ue):
		return http.StatusBadGateway, "upstream service failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeJSON читает тело запроса. Ошибка разбора возвращается как ValidationError.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &service.ValidationError{Reason: "invalid request body"}
	}
	return nil
}
