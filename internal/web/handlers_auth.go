package web

import (
	"encoding/json"
	"net/http"

	"github.com/engagehub/submission/internal/auth"
	"github.com/engagehub/submission/internal/core"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: "Missing username or password", Code: "BAD_REQUEST"})
		return
	}

	res, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: "Missing refresh token", Code: "BAD_REQUEST"})
		return
	}

	access, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: "Invalid request body", Code: "BAD_REQUEST"})
		return
	}

	role, err := core.ParseRole(req.Role)
	if err != nil {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	user, err := s.auth.Register(r.Context(), ident, auth.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     role,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	user, err := s.auth.CurrentUser(r.Context(), ident)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		respondJSON(w, http.StatusBadRequest,
			ErrorResponse{Error: "Missing old or new password", Code: "BAD_REQUEST"})
		return
	}

	if err := s.auth.ChangePassword(r.Context(), ident, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
