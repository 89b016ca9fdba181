package handlers_test

import (
	"KnowBase/internal/access"
	"KnowBase/internal/blobstore"
	"KnowBase/internal/config"
	"KnowBase/internal/handlers"
	"KnowBase/internal/livesync"
	"KnowBase/internal/llm"
	"KnowBase/internal/repo"
	"KnowBase/internal/service"
	"KnowBase/internal/session"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// testEnv — сервер со всеми зависимостями поверх in-memory SQLite.
type testEnv struct {
	router   http.Handler
	cfg      *config.Config
	sessions *session.Manager
	broker   *livesync.MemoryBroker

	// closeStreams — то, что cmd/server регистрирует в RegisterOnShutdown
	closeStreams func()
}

// newTestEnv собирает приложение так же, как cmd/server. llmURL пустой — ассистент не настроен.
func newTestEnv(t *testing.T, llmURL string) *testEnv {
	t.Helper()
	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		AuthSecret:     testSecret,
		BlobMaxSizeMB:  1,
		PublicURL:      "http://kb.test",
		BootstrapAdmin: "admin",
	}
	logger := zap.NewNop().Sugar()

	sessions := session.NewManager(cfg.AuthSecret, time.Hour)
	roleRepo := repo.NewRoleRepository(db)
	gate := access.NewGate(roleRepo, sessions, time.Minute, logger)
	t.Cleanup(gate.Close)
	broker := livesync.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	detach, err := sessions.AttachBroker(context.Background(), broker, logger)
	require.NoError(t, err)
	t.Cleanup(detach)
	blobs := blobstore.NewDBStore(repo.NewBlobRepository(db), cfg.PublicURL)

	users := service.NewUserService(repo.NewUserRepository(db), roleRepo, sessions, logger, service.UserServiceOptions{
		DefaultRole:    access.RoleUser,
		BootstrapAdmin: cfg.BootstrapAdmin,
	})
	cards := service.NewCardService(repo.NewCardRepository(db), gate, broker, users, logger)
	attachments := service.NewAttachmentService(blobs, gate, cfg.BlobMaxBytes(), logger)

	key := ""
	if llmURL != "" {
		key = "test-key"
	}
	assistant := service.NewAssistantService(cards, llm.NewClient(llm.Config{APIKey: key, BaseURL: llmURL}), logger)

	h := handlers.NewHandler(handlers.Services{
		Users:       users,
		Cards:       cards,
		Attachments: attachments,
		Assistant:   assistant,
		Sessions:    sessions,
		Roles:       gate,
		Broker:      broker,
		Blobs:       blobs,
	}, logger, cfg)
	return &testEnv{router: h.Router, closeStreams: h.CloseStreams, cfg: cfg, sessions: sessions, broker: broker}
}

// do выполняет запрос с JSON-телом и Bearer-токеном (если он задан).
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// register создаёт пользователя и возвращает его id и токен.
func (e *testEnv) register(t *testing.T, login string) (int64, string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"login": login, "password": "pw-" + login, "display_name": strings.ToUpper(login),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.ID, resp.Token
}

type cardJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Files       []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"files"`
	Videos []struct {
		Kind     string `json:"kind"`
		URL      string `json:"url"`
		EmbedURL string `json:"embed_url"`
	} `json:"videos"`
	Author    string    `json:"author"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func decodeCard(t *testing.T, rr *httptest.ResponseRecorder) cardJSON {
	t.Helper()
	var c cardJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c), rr.Body.String())
	return c
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Error
}
