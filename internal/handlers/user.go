package handlers

import (
	"KnowBase/internal/config"
	"KnowBase/internal/middleware"
	"KnowBase/internal/model"
	"KnowBase/internal/service"
	"KnowBase/internal/session"
	"net/http"

	"go.uber.org/zap"
)

// UserHandler — регистрация, вход, выход, профиль и роли.
type UserHandler struct {
	UserService *service.UserService
	Sessions    *session.Manager
	Roles       service.RoleResolver
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewUserHandler создаёт хендлер пользователей
func NewUserHandler(userService *service.UserService, sessions *session.Manager, roles service.RoleResolver, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Sessions: sessions, Roles: roles, Logger: logger, Config: cfg}
}

type credentialsRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type authResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Token string `json:"token"`
}

type meResponse struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Register регистрирует пользователя и сразу выдаёт сессию.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "register", err)
		return
	}
	user, err := h.UserService.Register(r.Context(), req.Login, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, h.Logger, "register", err)
		return
	}
	h.startSession(w, user)
}

// Login проверяет учётные данные и выставляет cookie сессии.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "login", err)
		return
	}
	user, err := h.UserService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, h.Logger, "login", err)
		return
	}
	h.startSession(w, user)
}

func (h *UserHandler) startSession(w http.ResponseWriter, user *model.User) {
	token, _, err := h.Sessions.Issue(user.ID, user.Login)
	if err != nil {
		writeError(w, h.Logger, "issue session", err)
		return
	}
	middleware.SetLoginCookie(w, token, h.Sessions.TTL(), h.Config.EnableHTTPS)
	writeJSON(w, http.StatusOK, authResponse{ID: user.ID, Login: user.Login, Token: token})
}

// Logout отзывает токен и стирает cookie. Анонимный выход не считается ошибкой.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		h.Sessions.Revoke(s)
	}
	middleware.ClearLoginCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh меняет токен на новый с продлённым сроком.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	if s == nil {
		writeError(w, h.Logger, "refresh", &service.AuthorizationError{Action: "refresh session", Anonymous: true})
		return
	}
	token, ns, err := h.Sessions.Refresh(s)
	if err != nil {
		writeError(w, h.Logger, "refresh", err)
		return
	}
	middleware.SetLoginCookie(w, token, h.Sessions.TTL(), h.Config.EnableHTTPS)
	writeJSON(w, http.StatusOK, authResponse{ID: ns.AccountID, Login: ns.Login, Token: token})
}

// Me возвращает профиль и действующую роль.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	user, err := h.UserService.Me(r.Context(), s)
	if err != nil {
		writeError(w, h.Logger, "me", err)
		return
	}
	role, err := h.Roles.ResolveRole(r.Context(), s)
	if err != nil {
		writeError(w, h.Logger, "me", &service.UpstreamError{Op: "role lookup", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: user.ID, Login: user.Login, DisplayName: user.DisplayName, Role: string(role)})
}

// UpdateProfile меняет отображаемое имя.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "update profile", err)
		return
	}
	if err := h.UserService.UpdateDisplayName(r.Context(), middleware.SessionFromContext(r.Context()), req.DisplayName); err != nil {
		writeError(w, h.Logger, "update profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword меняет пароль и отзывает остальные сессии аккаунта.
// Вызывающий получает новый токен, старый перестаёт действовать.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "change password", err)
		return
	}
	s := middleware.SessionFromContext(r.Context())
	if err := h.UserService.ChangePassword(r.Context(), s, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.Logger, "change password", err)
		return
	}
	token, ns, err := h.Sessions.RevokeOthers(s)
	if err != nil {
		writeError(w, h.Logger, "change password", err)
		return
	}
	middleware.SetLoginCookie(w, token, h.Sessions.TTL(), h.Config.EnableHTTPS)
	writeJSON(w, http.StatusOK, authResponse{ID: ns.AccountID, Login: ns.Login, Token: token})
}

type roleRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Grant  bool   `json:"grant"`
}

// SetRole выдаёт или отзывает роль (только admin).
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "set role", err)
		return
	}
	caller, err := h.Roles.ResolveRole(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Logger, "set role", &service.UpstreamError{Op: "role lookup", Err: err})
		return
	}
	if err := h.UserService.SetRole(r.Context(), caller, req.UserID, req.Role, req.Grant); err != nil {
		writeError(w, h.Logger, "set role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
