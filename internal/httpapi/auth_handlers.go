package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"passgate.org/internal/auth"
	"passgate.org/internal/obs"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitation_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type validateResponse struct {
	Valid     bool    `json:"valid"`
	Email     *string `json:"email,omitempty"`
	TokenType *string `json:"token_type,omitempty"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateEmail(req.Email); !ok {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	if len(req.Password) < 6 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if strings.TrimSpace(req.InvitationCode) == "" {
		writeError(w, r, http.StatusBadRequest, "invitation_code is required")
		return
	}

	pair, err := a.svc.Register(r.Context(), req.Email, req.Password, req.InvitationCode)
	if err != nil {
		obs.RecordAuthOp("register", "denied")
		handleAuthError(w, r, err)
		return
	}
	obs.RecordAuthOp("register", "ok")
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateEmail(req.Email); !ok {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}

	pair, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.RecordAuthOp("login", "denied")
		handleAuthError(w, r, err)
		return
	}
	obs.RecordAuthOp("login", "ok")
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := a.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		obs.RecordAuthOp("refresh", "denied")
		handleAuthError(w, r, err)
		return
	}
	obs.RecordAuthOp("refresh", "ok")
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	result := a.svc.Validate(r.Context(), r.Header.Get("Authorization"))
	if !result.Valid {
		obs.RecordAuthOp("validate", "denied")
		writeJSON(w, http.StatusUnauthorized, validateResponse{Valid: false})
		return
	}
	obs.RecordAuthOp("validate", "ok")
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:     true,
		Email:     &result.Email,
		TokenType: &result.TokenType,
	})
}

func validateEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required", false
	}
	if !strings.Contains(email, "@") || len(email) > 254 {
		return "email is not valid", false
	}
	return "", true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrInvitationUsed),
		errors.Is(err, auth.ErrRefreshRevoked):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvitationNotFound),
		errors.Is(err, auth.ErrAccountNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvitationExpired):
		writeError(w, r, http.StatusGone, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidRefreshToken):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvitationEmailMismatch),
		errors.Is(err, auth.ErrWrongTokenType):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrStoreUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
