package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegister(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "  ana ",
		"email":    " Ana@Campus.Test ",
		"password": "hunter22",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var out authPayload
	decodeInto(t, w, &out)
	if out.Status != "success" || out.Data.Token == "" {
		t.Errorf("payload = %+v", out)
	}
	if out.Data.User.Email != "ana@campus.test" {
		t.Errorf("email = %q, want %q", out.Data.User.Email, "ana@campus.test")
	}
	if out.Data.User.Username != "ana" {
		t.Errorf("username = %q, want %q", out.Data.User.Username, "ana")
	}
	if strings.Contains(w.Body.String(), "hunter22") || strings.Contains(w.Body.String(), "passwordHash") {
		t.Errorf("response leaks the password: %s", w.Body.String())
	}
}

func TestRegister_Validation(t *testing.T) {
	a := newTestAPI(t)
	a.register("ana")

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing password", map[string]string{"username": "bo", "email": "bo@x.io"}, "username, email and password are required"},
		{"blank username", map[string]string{"username": "   ", "email": "bo@x.io", "password": "pw"}, "username is required"},
		{"duplicate email", map[string]string{"username": "bo", "email": "ANA@campus.test", "password": "pw"}, "User already exists with this email"},
		{"duplicate username", map[string]string{"username": "ana", "email": "bo@x.io", "password": "pw"}, "Username already taken. Try another username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/api/auth/register", "", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := errorOf(t, w); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)
	_, uid := a.register("ana")

	w := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ANA@campus.test", "password": "hunter22"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var out authPayload
	decodeInto(t, w, &out)
	if out.Data.User.ID != uid || out.Data.Token == "" {
		t.Errorf("payload = %+v", out)
	}

	for _, body := range []map[string]string{
		{"email": "ana@campus.test", "password": "wrong"},
		{"email": "nobody@campus.test", "password": "hunter22"},
	} {
		w := a.do(http.MethodPost, "/api/auth/login", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("login %v status = %d, want 401", body, w.Code)
		}
		if got := errorOf(t, w); got != "Invalid email or password" {
			t.Errorf("error = %q", got)
		}
	}

	w = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@campus.test"})
	if got := errorOf(t, w); w.Code != http.StatusBadRequest || got != "email and password are required" {
		t.Errorf("missing password = %d %q", w.Code, got)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	a := newTestAPI(t)
	token, _ := a.register("ana")

	if w := a.do(http.MethodGet, "/api/profile", token, nil); w.Code != http.StatusOK {
		t.Fatalf("profile before logout = %d", w.Code)
	}
	w := a.do(http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d: %s", w.Code, w.Body.String())
	}
	var out map[string]string
	decodeInto(t, w, &out)
	if out["status"] != "success" || out["message"] != "Logged out successfully" {
		t.Errorf("logout body = %v", out)
	}

	w = a.do(http.MethodGet, "/api/profile", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("profile after logout = %d, want 401", w.Code)
	}
}

func TestProtectedRoute_NoToken(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/posts/posts", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
