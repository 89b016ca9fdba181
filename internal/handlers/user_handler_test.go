package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Register(t *testing.T) {
	env := newTestEnv(t, "")

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/user/register", strings.NewReader(`{"login":"john","password":"p"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		hasCookie := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				hasCookie = true
			}
		}
		assert.True(t, hasCookie, "Set-Cookie auth_token expected")
	})

	t.Run("conflict", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/register", "", `{"login":"john","password":"p"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/register", "", `{"login":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUser_Login(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "alice")

	t.Run("ok", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/login", "", `{"login":"alice","password":"pw-alice"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		hasCookie := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				hasCookie = true
			}
		}
		assert.True(t, hasCookie)
	})

	t.Run("unauthorized", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/login", "", `{"login":"alice","password":"bad"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUser_MeLogoutRefresh(t *testing.T) {
	env := newTestEnv(t, "")
	id, token := env.register(t, "bob")

	rr := env.do(t, http.MethodGet, "/api/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		ID          int64  `json:"id"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "BOB", me.DisplayName)
	assert.Equal(t, "user", me.Role)

	rr = env.do(t, http.MethodPut, "/api/user/profile", token, `{"display_name":"Bobby"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/user/refresh", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var refreshed struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &refreshed))
	assert.NotEqual(t, token, refreshed.Token)

	// старый токен отозван
	rr = env.do(t, http.MethodGet, "/api/user/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/user/logout", refreshed.Token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/user/me", refreshed.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdmin_SetRole(t *testing.T) {
	env := newTestEnv(t, "")
	_, adminToken := env.register(t, "admin")
	userID, userToken := env.register(t, "carol")

	body := map[string]any{"user_id": userID, "role": "admin", "grant": true}
	rr := env.do(t, http.MethodPut, "/api/admin/roles", userToken, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.do(t, http.MethodPut, "/api/admin/roles", "", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/admin/roles", adminToken, map[string]any{"user_id": userID, "role": "owner", "grant": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// понижаем carol до read: отзываем user, выдаём read
	rr = env.do(t, http.MethodPut, "/api/admin/roles", adminToken, map[string]any{"user_id": userID, "role": "user", "grant": false})
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodPut, "/api/admin/roles", adminToken, map[string]any{"user_id": userID, "role": "read", "grant": true})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/user/me", userToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"read"`)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "kb_http_requests_total")
}

func TestUser_ChangePassword(t *testing.T) {
	env := newTestEnv(t, "")
	_, token := env.register(t, "dora")
	// вторая сессия того же аккаунта, например с другого устройства
	rr := env.do(t, http.MethodPost, "/api/user/login", "", `{"login":"dora","password":"pw-dora"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var other struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &other))

	rr = env.do(t, http.MethodPut, "/api/user/password", "", `{"old_password":"pw-dora","new_password":"n3w"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/user/password", token, `{"old_password":"wrong","new_password":"n3w"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/user/password", token, `{"old_password":"pw-dora","new_password":"n3w"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var fresh struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fresh))
	hasCookie := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" && c.Value == fresh.Token {
			hasCookie = true
		}
	}
	assert.True(t, hasCookie)

	// обе прежние сессии отозваны, новая действует
	for _, old := range []string{token, other.Token} {
		rr = env.do(t, http.MethodGet, "/api/user/me", old, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/user/me", fresh.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/user/login", "", `{"login":"dora","password":"pw-dora"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/user/login", "", `{"login":"dora","password":"n3w"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}
