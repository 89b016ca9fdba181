package handlers

import (
	"KnowBase/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// AssistantHandler — вопрос ассистенту по базе карточек.
type AssistantHandler struct {
	Assistant *service.AssistantService
	Logger    *zap.SugaredLogger
}

// NewAssistantHandler создаёт хендлер ассистента
func NewAssistantHandler(assistant *service.AssistantService, logger *zap.SugaredLogger) *AssistantHandler {
	return &AssistantHandler{Assistant: assistant, Logger: logger}
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Response string `json:"response"`
}

// Ask принимает {"message": "..."} и возвращает {"response": "..."}.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "assistant", err)
		return
	}
	answer, err := h.Assistant.Ask(r.Context(), req.Message)
	if err != nil {
		writeError(w, h.Logger, "assistant", err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Response: answer})
}
