package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/config"
	"github.com/ehr/clinicconsole/internal/console"
	"github.com/ehr/clinicconsole/internal/domain/clinic"
	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/websocket"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:          "development",
		CORSOrigins:  []string{"http://localhost:3000"},
		SessionTTL:   30 * time.Minute,
		SessionSweep: time.Minute,
		ToastTTL:     10 * time.Minute,
		LogLevel:     "info",
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), devConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func serve(a *app, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func TestApp_Health(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestApp_SessionAndMetrics(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sessionID := rec.Header().Get(console.SessionHeader)
	if sessionID == "" {
		t.Fatal("expected a session header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}

	rec = serve(a, http.MethodGet, "/api/v1/panels/staff", http.Header{console.SessionHeader: {sessionID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected staff panel for the dev clinic admin, got %d", rec.Code)
	}

	rec = serve(a, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session_active 1") {
		t.Errorf("expected one active session in metrics")
	}
}

func TestApp_AppointmentsRequireStaffRole(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, http.MethodGet, "/api/v1/appointments", http.Header{"X-Dev-Role": {auth.RolePatient}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestClinicNameResolver(t *testing.T) {
	repo := clinic.NewMemoryRepo()
	rec := &clinic.Record{Name: "Lakeside Family Clinic", Email: "hello@lakeside.example"}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	resolve := clinicNameResolver(clinic.NewService(repo, zerolog.Nop()))

	if got := resolve(rec.ID); got != "Lakeside Family Clinic" {
		t.Errorf("expected clinic name, got %q", got)
	}
	if got := resolve("unknown"); got != "unknown" {
		t.Errorf("expected id fallback, got %q", got)
	}
}

func TestTokenCmd(t *testing.T) {
	key := strings.Repeat("s", 32)
	t.Setenv("AUTH_SIGNING_KEY", key)

	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--user", "u-42", "--role", "doctor", "--clinic", "clinic-a"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	claims := &auth.Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "u-42" || claims.ClinicID != "clinic-a" || len(claims.Roles) != 1 || claims.Roles[0] != "doctor" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DATABASE_URL", "")

	cmd := migrateCmd()
	cmd.SetArgs([]string{"status"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", got)
	}
	cfg.LogLevel = "nonsense"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %s", got)
	}
}

func TestApp_ToastStream(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.echo)
	defer server.Close()

	rec := serve(a, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	sessionID := rec.Header().Get(console.SessionHeader)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/notifications/ws?session=" + sessionID
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Advancing past a blank first step queues a warning toast.
	rec = serve(a, http.MethodPost, "/api/v1/registration/next", http.Header{console.SessionHeader: {sessionID}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msg.Notifications) == 0 || msg.Notifications[0].Message != "Clinic name is required" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestApp_WebSocketUnknownSession(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, http.MethodGet, "/api/v1/notifications/ws?session=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
