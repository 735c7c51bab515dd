package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/service"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeFailure(w, r, http.StatusTooManyRequests, errors.New("محاولات تسجيل دخول كثيرة، حاول بعد دقيقة"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeFailure(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		a.writeFailure(w, r, http.StatusBadRequest, errors.New("اسم المستخدم وكلمة المرور مطلوبان"))
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		a.writeFailure(w, r, http.StatusUnauthorized, errors.New("اسم المستخدم أو كلمة المرور غير صحيحة"))
		return
	case errors.Is(err, service.ErrAccountInactive):
		a.writeFailure(w, r, http.StatusUnauthorized, errors.New("الحساب معطل، يرجى التواصل مع المدير"))
		return
	case err != nil:
		a.writeFailure(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	if err := a.auth.Logout(r.Context(), token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	user, err := a.service.GetUser(r.Context(), actor.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		a.writeFailure(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeFailure(w, r, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		a.writeFailure(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleUpdateUser accepts the id from the path or, on /api/users, from the body.
func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeFailure(w, r, http.StatusBadRequest, err)
		return
	}
	if id := r.PathValue("id"); id != "" {
		req.ID = id
	}

	user, err := a.service.UpdateUser(r.Context(), req)
	if err != nil {
		a.writeFailure(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}

	if err := a.service.DeactivateUser(r.Context(), id); err != nil {
		a.writeFailure(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "تم تعطيل المستخدم",
	})
}
