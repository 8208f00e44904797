package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"issuehub/auth"
	"issuehub/memstore"
	"issuehub/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	svc := services.New(memstore.New(), auth.NewHasher(bcrypt.MinCost), auth.NewTokenIssuer("test-secret", time.Hour), services.Options{})
	return &testAPI{t: t, router: NewRouter(RouterConfig{Services: svc, Log: zerolog.Nop()})}
}

// do sends a JSON request and returns the recorded response.
func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) expect(rec *httptest.ResponseRecorder, status int) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
}

// user signs up and logs in, returning the bearer token.
func (a *testAPI) user(name string) string {
	a.t.Helper()
	email := strings.ToLower(name) + "@test.com"
	a.expect(a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	}), http.StatusCreated)

	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password123"})
	a.expect(rec, http.StatusOK)
	var tok tokenResponse
	decode(a.t, rec, &tok)
	return tok.AccessToken
}

func (a *testAPI) project(token, key string) uint {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/projects", token, map[string]string{"name": "Project " + key, "key": key})
	a.expect(rec, http.StatusOK)
	var p projectResponse
	decode(a.t, rec, &p)
	return p.ID
}

func (a *testAPI) issue(token string, projectID uint, body map[string]interface{}) map[string]interface{} {
	a.t.Helper()
	rec := a.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/issues", projectID), token, body)
	a.expect(rec, http.StatusOK)
	var out map[string]interface{}
	decode(a.t, rec, &out)
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

type envelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	decode(t, rec, &env)
	return env
}
