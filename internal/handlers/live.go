package handlers

import (
	"KnowBase/internal/livesync"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait     = 10 * time.Second
	sseKeepAlive    = 25 * time.Second
	liveReadyKind   = "ready"
	liveEventHeader = "cards"
)

var upgrader = websocket.Upgrader{
	// список карточек публичен, origin не ограничиваем
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler раздаёт уведомления об изменениях карточек по WebSocket и SSE.
// Сообщение означает "перечитайте список", содержимое карточки не передаётся.
type LiveHandler struct {
	Broker livesync.Broker
	Logger *zap.SugaredLogger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewLiveHandler создаёт хендлер live-уведомлений
func NewLiveHandler(broker livesync.Broker, logger *zap.SugaredLogger) *LiveHandler {
	return &LiveHandler{Broker: broker, Logger: logger, closing: make(chan struct{})}
}

// Close завершает все текущие подписки и отказывает новым. Повторный вызов безопасен.
func (h *LiveHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// WebSocket обслуживает GET /api/cards/ws.
func (h *LiveHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Debugw("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// после Hijack сервер не следит за соединением: закрываем его сами
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-h.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-r.Context().Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	var mu sync.Mutex
	send := func(ev livesync.Event) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}

	sub, err := h.Broker.Subscribe(r.Context(), livesync.TopicCards, func(ev livesync.Event) {
		if err := send(ev); err != nil {
			h.Logger.Debugw("ws write failed", "error", err)
			_ = conn.Close()
		}
	})
	if err != nil {
		h.Logger.Errorw("ws subscribe failed", "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer sub.Unsubscribe()

	if err := send(livesync.Event{Topic: livesync.TopicCards, Kind: liveReadyKind, At: time.Now().UTC()}); err != nil {
		return
	}

	// клиент ничего не шлёт; чтение нужно, чтобы заметить закрытие соединения
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Events обслуживает GET /api/cards/events (Server-Sent Events).
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит Flusher под обёртками middleware через Unwrap
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	// ёмкость 1: пока прошлое уведомление не отправлено, новые объединяются
	pending := make(chan livesync.Event, 1)
	sub, err := h.Broker.Subscribe(r.Context(), livesync.TopicCards, func(ev livesync.Event) {
		select {
		case pending <- ev:
		default:
		}
	})
	if err != nil {
		h.Logger.Errorw("sse subscribe failed", "error", err)
		return
	}
	defer sub.Unsubscribe()

	ctx := r.Context()
	if err := writeSSE(w, rc, livesync.Event{Topic: livesync.TopicCards, Kind: liveReadyKind, At: time.Now().UTC()}); err != nil {
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case ev := <-pending:
			if err := writeSSE(w, rc, ev); err != nil {
				h.Logger.Debugw("sse write failed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, rc *http.ResponseController, ev livesync.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", liveEventHeader, data); err != nil {
		return err
	}
	return rc.Flush()
}
