package handlers

import (
	"issuehub/apperr"
	"issuehub/middleware"
	"issuehub/services"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	accounts *services.Accounts
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(accounts *services.Accounts, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		validate: newValidator(),
		log:      log,
	}
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate(h.validate, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	if _, err := h.accounts.Signup(r.Context(), req.Name, req.Email, req.Password); err != nil {
		middleware.RecordAuthAttempt("signup", false)
		writeError(w, h.log, err)
		return
	}
	middleware.RecordAuthAttempt("signup", true)
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully"})
}

// Login accepts either a JSON body {email, password} or an OAuth2-style
// password form {username, password}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, h.log, apperr.Validation(apperr.FieldError{Field: "body", Message: "invalid form body"}))
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	var details []apperr.FieldError
	if strings.TrimSpace(identifier) == "" {
		details = append(details, apperr.FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		details = append(details, apperr.FieldError{Field: "password", Message: "password is required"})
	}
	if len(details) > 0 {
		writeError(w, h.log, apperr.Validation(details...))
		return
	}

	token, err := h.accounts.Login(r.Context(), identifier, req.Password)
	if err != nil {
		middleware.RecordAuthAttempt("login", false)
		writeError(w, h.log, err)
		return
	}
	middleware.RecordAuthAttempt("login", true)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	profile, err := h.accounts.Me(r.Context(), user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
