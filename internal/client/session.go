package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rollcall/internal/attendance"
)

// APIError is a failure reported by the server's response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Session holds the transient client state: base URL, bearer token, the
// logged-in user and the current event. Reset discards everything; state is
// rehydrated via RefreshActiveEvent after a restart.
type Session struct {
	BaseURL string
	HTTP    *http.Client

	Token string
	User  *attendance.User
	Event *attendance.Event
}

// New creates a session against the given server.
func New(baseURL string) *Session {
	return &Session{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// envelope is the uniform response shape: success plus payload or error.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`

	User    *attendance.User    `json:"user"`
	Token   string              `json:"token"`
	EventID int64               `json:"eventId"`
	Event   *attendance.Event   `json:"event"`
	Records []attendance.Record `json:"records"`
	Cards   []attendance.Card   `json:"cards"`

	RecordID    int64     `json:"recordId"`
	StudentName string    `json:"studentName"`
	Timestamp   time.Time `json:"timestamp"`

	TotalEvents  int64 `json:"totalEvents"`
	TotalRecords int64 `json:"totalRecords"`
	TotalCards   int64 `json:"totalCards"`
}

func (s *Session) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

// Login authenticates and stores the issued token and user on the session.
func (s *Session) Login(ctx context.Context, username, password string) error {
	env, err := s.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	s.Token = env.Token
	s.User = env.User
	return nil
}

// StartEvent opens a new event and makes it the session's current event.
func (s *Session) StartEvent(ctx context.Context, name, organizer string) (int64, error) {
	env, err := s.do(ctx, http.MethodPost, "/api/events/start", map[string]string{
		"name":      name,
		"organizer": organizer,
	})
	if err != nil {
		return 0, err
	}
	s.Event = &attendance.Event{ID: env.EventID, Name: name, Organizer: organizer, IsActive: true}
	return env.EventID, nil
}

// StopEvent closes the session's current event.
func (s *Session) StopEvent(ctx context.Context) error {
	if s.Event == nil {
		return fmt.Errorf("no current event")
	}
	_, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/api/events/%d/stop", s.Event.ID), nil)
	if err != nil {
		return err
	}
	s.Event = nil
	return nil
}

// RefreshActiveEvent queries the server for the running event and adopts it
// as the session's current event (nil when none is active).
func (s *Session) RefreshActiveEvent(ctx context.Context) (*attendance.Event, error) {
	env, err := s.do(ctx, http.MethodGet, "/api/events/active", nil)
	if err != nil {
		return nil, err
	}
	s.Event = env.Event
	return env.Event, nil
}

// RecordAttendance submits one scan against the current event and returns
// the resolved student name.
func (s *Session) RecordAttendance(ctx context.Context, rfidUID string) (string, error) {
	if s.Event == nil {
		return "", fmt.Errorf("no active event")
	}
	env, err := s.do(ctx, http.MethodPost, "/api/attendance", map[string]any{
		"rfid_uid": rfidUID,
		"event_id": s.Event.ID,
	})
	if err != nil {
		return "", err
	}
	return env.StudentName, nil
}

// RegisterCard upserts a card in the registry.
func (s *Session) RegisterCard(ctx context.Context, rfidUID, studentName, studentClass string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/cards/register", map[string]string{
		"rfid_uid":      rfidUID,
		"student_name":  studentName,
		"student_class": studentClass,
	})
	return err
}

// Stats fetches the dashboard counters.
func (s *Session) Stats(ctx context.Context) (attendance.Stats, error) {
	env, err := s.do(ctx, http.MethodGet, "/api/stats", nil)
	if err != nil {
		return attendance.Stats{}, err
	}
	return attendance.Stats{
		TotalEvents:  env.TotalEvents,
		TotalRecords: env.TotalRecords,
		TotalCards:   env.TotalCards,
	}, nil
}

// Reset discards all session state: token, user and current event.
func (s *Session) Reset() {
	s.Token = ""
	s.User = nil
	s.Event = nil
}
