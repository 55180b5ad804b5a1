package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "password" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   "issued-token",
			"user":    map[string]any{"id": 1, "username": req["username"], "fullName": "Test Operator"},
		})
	})

	requireToken := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer issued-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "invalid token"})
			return false
		}
		return true
	}

	mux.HandleFunc("POST /api/events/start", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "eventId": 42})
	})
	mux.HandleFunc("GET /api/events/active", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"event":   map[string]any{"id": 42, "name": "Assembly", "is_active": true},
		})
	})
	mux.HandleFunc("POST /api/attendance", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["event_id"].(float64) != 42 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "wrong event"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "studentName": "Ivan Petrov"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionFlow(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	s := New(srv.URL)

	if err := s.Login(ctx, "test", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Token != "issued-token" || s.User == nil || s.User.FullName != "Test Operator" {
		t.Fatalf("session after login = %+v", s)
	}

	id, err := s.StartEvent(ctx, "Assembly", "Test Operator")
	if err != nil {
		t.Fatalf("start event: %v", err)
	}
	if id != 42 || s.Event == nil || s.Event.ID != 42 {
		t.Fatalf("event id = %d, session event = %+v", id, s.Event)
	}

	name, err := s.RecordAttendance(ctx, "A1B2C3D4")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if name != "Ivan Petrov" {
		t.Errorf("student = %q, want Ivan Petrov", name)
	}

	s.Reset()
	if s.Token != "" || s.User != nil || s.Event != nil {
		t.Errorf("session after reset = %+v, want empty", s)
	}
}

func TestSessionRehydratesActiveEvent(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	s := New(srv.URL)
	if err := s.Login(ctx, "test", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	evt, err := s.RefreshActiveEvent(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if evt == nil || evt.ID != 42 || s.Event == nil {
		t.Fatalf("active event = %+v", evt)
	}
}

func TestSessionErrors(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	s := New(srv.URL)

	err := s.Login(ctx, "test", "wrongpass")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Errorf("apiErr = %+v", apiErr)
	}

	// Recording without an event fails locally.
	if _, err := s.RecordAttendance(ctx, "A1B2C3D4"); err == nil {
		t.Error("record without event succeeded")
	}
	if err := s.StopEvent(ctx); err == nil {
		t.Error("stop without event succeeded")
	}
}
