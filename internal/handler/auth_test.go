package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mossrock/bramble/internal/database"
	"github.com/mossrock/bramble/internal/middleware"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
)

func setupAuthHandler(t *testing.T) (*AuthHandler, *store.PreferenceStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)
	prefs := store.NewPreferenceStore(db)
	return NewAuthHandler(users, sessions, prefs, slog.Default()), prefs
}

func TestRegisterCreatesSessionAndDefaults(t *testing.T) {
	h, prefs := setupAuthHandler(t)

	body := `{"email": "Frodo@Shire.test", "name": "Frodo", "password": "longenough"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var user model.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.Email != "frodo@shire.test" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	var gotCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Error("expected session cookie on register")
	}

	seeded, err := prefs.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list preferences: %v", err)
	}
	if len(seeded) != 2 {
		t.Errorf("expected 2 default preferences, got %d", len(seeded))
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h, _ := setupAuthHandler(t)

	body := `{"email": "frodo@shire.test", "name": "Frodo", "password": "short"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := setupAuthHandler(t)

	body := `{"email": "frodo@shire.test", "name": "Frodo", "password": "longenough"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	h.Register(httptest.NewRecorder(), req)

	req = httptest.NewRequest("POST", "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLogin(t *testing.T) {
	h, _ := setupAuthHandler(t)

	register := `{"email": "frodo@shire.test", "name": "Frodo", "password": "longenough"}`
	h.Register(httptest.NewRecorder(), httptest.NewRequest("POST", "/register", strings.NewReader(register)))

	login := `{"email": "frodo@shire.test", "password": "longenough"}`
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/login", strings.NewReader(login)))
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d, want %d", rec.Code, http.StatusOK)
	}

	bad := `{"email": "frodo@shire.test", "password": "wrongpassword"}`
	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/login", strings.NewReader(bad)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
