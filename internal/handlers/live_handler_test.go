package handlers_test

import (
	"KnowBase/internal/livesync"
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLive_WebSocketNotifiesOnWrite(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, alice := env.register(t, "alice")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/cards/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var ev livesync.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, livesync.Kind("ready"), ev.Kind)

	rr := env.do(t, http.MethodPost, "/api/cards", alice, `{"title":"t","description":"d","category":"Orders"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeCard(t, rr).ID

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, livesync.TopicCards, ev.Topic)
	assert.Equal(t, livesync.KindCreated, ev.Kind)
	assert.Equal(t, id, ev.ID)
}

func TestLive_SSENotifiesOnWrite(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, alice := env.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/cards/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan livesync.Event, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var ev livesync.Event
				if json.Unmarshal([]byte(data), &ev) == nil {
					events <- ev
				}
			}
		}
	}()

	next := func() livesync.Event {
		select {
		case ev := <-events:
			return ev
		case <-ctx.Done():
			t.Fatal("no sse event")
			return livesync.Event{}
		}
	}
	assert.Equal(t, livesync.Kind("ready"), next().Kind)

	rr := env.do(t, http.MethodPost, "/api/cards", alice, `{"title":"t","description":"d","category":"Orders"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, livesync.KindCreated, next().Kind)
}

// При остановке сервера долгие соединения закрываются, не дожидаясь таймаута Shutdown.
func TestLive_CloseStreamsEndsOpenConnections(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/cards/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev livesync.Event
	require.NoError(t, conn.ReadJSON(&ev))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/cards/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())

	env.closeStreams()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "websocket still open after CloseStreams")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sc.Scan() {
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("sse stream still open after CloseStreams")
	}
}
