package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindtv/internal/models"
	"mindtv/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func postJSON(t *testing.T, h http.Handler, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	return w, m
}

func TestAuthHandlers_SignUpAndSignIn(t *testing.T) {
	auth := &mockAuth{signUpID: 42, genTokenToken: "tok123", parseID: 1}
	r := newTestRouter(&service.Service{Authorization: auth})

	w, m := postJSON(t, r, "/auth/sign-up", `{"username":"operador","password":"p4ss"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}
	if id, _ := m["id"].(float64); int(id) != 42 {
		t.Fatalf("expected id=42, got %v", m["id"])
	}
	if auth.lastSignUpUsername != "operador" || auth.lastSignUpPassword != "p4ss" {
		t.Fatalf("sign-up credentials = %q/%q", auth.lastSignUpUsername, auth.lastSignUpPassword)
	}

	w, m = postJSON(t, r, "/auth/sign-in", `{"username":"operador","password":"p4ss"}`)
	if w.Code != http.StatusOK || m["token"] != "tok123" {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	if auth.lastGenUsername != "operador" || auth.lastGenPassword != "p4ss" {
		t.Fatalf("sign-in credentials = %q/%q", auth.lastGenUsername, auth.lastGenPassword)
	}
}

func TestAuthHandlers_Errors(t *testing.T) {
	tests := []struct {
		name   string
		auth   *mockAuth
		target string
		body   string
		want   int
	}{
		{"sign-in wrong type", &mockAuth{}, "/auth/sign-in", `{"username":1}`, http.StatusBadRequest},
		{"sign-up missing password", &mockAuth{}, "/auth/sign-up", `{"username":"u"}`, http.StatusBadRequest},
		{"sign-up duplicate", &mockAuth{signUpErr: errors.New("username taken")}, "/auth/sign-up", `{"username":"u","password":"p"}`, http.StatusBadRequest},
		{"sign-in unknown operator", &mockAuth{genTokenErr: service.ErrUserNotFound}, "/auth/sign-in", `{"username":"u","password":"p"}`, http.StatusUnauthorized},
		{"sign-in wrong password", &mockAuth{genTokenErr: service.ErrInvalidPassword}, "/auth/sign-in", `{"username":"u","password":"p"}`, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		r := newTestRouter(&service.Service{Authorization: tc.auth})
		w, m := postJSON(t, r, tc.target, tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s: status=%d, want %d, body=%s", tc.name, w.Code, tc.want, w.Body.String())
		}
		if _, ok := m["error"]; !ok {
			t.Fatalf("%s: no error in body %s", tc.name, w.Body.String())
		}
	}
}

// memOperators is an in-memory operator store for the real AuthService.
type memOperators struct {
	byName map[string]models.Operator
}

func (m *memOperators) Create(username, hash string) (int, error) {
	if _, ok := m.byName[username]; ok {
		return 0, errors.New("username taken")
	}
	id := len(m.byName) + 7
	m.byName[username] = models.Operator{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (m *memOperators) GetByUsername(username string) (*models.Operator, error) {
	op, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func TestAuthHandlers_IssuedTokenOpensOperatorRoutes(t *testing.T) {
	const (
		key = "operator-key"
		ttl = 30 * time.Minute
	)
	auth := service.NewAuthService(&memOperators{byName: map[string]models.Operator{}}, service.AuthSettings{SigningKey: key, TokenTTL: ttl})
	acq := &mockAcquisition{status: service.Status{State: "idle"}}
	r := newTestRouter(&service.Service{Authorization: auth, Acquisition: acq})

	w, m := postJSON(t, r, "/auth/sign-up", `{"username":"operador","password":"p4ss"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}
	id, _ := m["id"].(float64)

	if w, _ := postJSON(t, r, "/auth/sign-in", `{"username":"operador","password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status=%d", w.Code)
	}
	w, m = postJSON(t, r, "/auth/sign-in", `{"username":"operador","password":"p4ss"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	token, _ := m["token"].(string)

	claims := &service.Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte(key), nil }); err != nil {
		t.Fatalf("token does not verify with the configured key: %v", err)
	}
	if claims.OperatorID != int(id) {
		t.Fatalf("operator_id claim = %d; want %d", claims.OperatorID, int(id))
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != ttl {
		t.Fatalf("token lifetime = %s; want %s", got, ttl)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/acquisition/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status with issued token = %d, body=%s", w.Code, w.Body.String())
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &service.Claims{OperatorID: int(id)})
	forgedToken, err := forged.SignedString([]byte("other-key"))
	if err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/acquisition/status", nil)
	req.Header.Set("Authorization", "Bearer "+forgedToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status with foreign-key token = %d; want 401", w.Code)
	}
}
