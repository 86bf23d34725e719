package handlers

import (
	"net/http"

	"github.com/diewo77/facturacion/auth"
	"github.com/diewo77/facturacion/httpx"
	"github.com/diewo77/facturacion/internal/services"
)

type AuthHandler struct {
	svc      *services.AuthService
	sessions *auth.Sessions
}

func NewAuthHandler(svc *services.AuthService, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions}
}

type sessionResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	tok, err := h.sessions.CreateSession(w, u.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sessionResponse{ID: u.ID, Username: u.Username, Token: tok})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	u, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	tok, err := h.sessions.CreateSession(w, u.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{ID: u.ID, Username: u.Username, Token: tok})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
