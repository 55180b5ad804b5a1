package validation

import (
	"strings"
	"testing"
)

func TestRFIDBoundaries(t *testing.T) {
	tests := []struct {
		name string
		uid  string
		ok   bool
	}{
		{"minimum length 4", "A1B2", true},
		{"maximum length 50", strings.Repeat("A", 50), true},
		{"too short 3", "A1B", false},
		{"too long 51", strings.Repeat("A", 51), false},
		{"hyphen rejected", "A1B2-C3D4", false},
		{"space rejected", "A1B2 C3D4", false},
		{"cyrillic rejected", "А1Б2В3Г4", false},
		{"empty rejected", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(AttendanceRequest{RFIDUID: tt.uid, EventID: 1})
			if tt.ok && err != nil {
				t.Errorf("uid %q rejected: %v", tt.uid, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("uid %q accepted, want rejection", tt.uid)
			}
		})
	}
}

func TestAttendanceEventID(t *testing.T) {
	if err := Struct(AttendanceRequest{RFIDUID: "A1B2C3D4", EventID: 0}); err == nil {
		t.Error("event id 0 accepted")
	}
	if err := Struct(AttendanceRequest{RFIDUID: "A1B2C3D4", EventID: -3}); err == nil {
		t.Error("negative event id accepted")
	}
}

func TestLoginRules(t *testing.T) {
	tests := []struct {
		name string
		req  LoginRequest
		ok   bool
	}{
		{"valid", LoginRequest{Username: "test", Password: "password"}, true},
		{"username too short", LoginRequest{Username: "ab", Password: "password"}, false},
		{"username too long", LoginRequest{Username: strings.Repeat("u", 51), Password: "password"}, false},
		{"password too short", LoginRequest{Username: "test", Password: "12345"}, false},
		{"missing both", LoginRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.ok != (err == nil) {
				t.Errorf("err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestEventRules(t *testing.T) {
	if err := Struct(StartEventRequest{Name: "ab", Organizer: "Someone"}); err == nil {
		t.Error("2-char event name accepted")
	}
	if err := Struct(StartEventRequest{Name: "Assembly", Organizer: "X"}); err == nil {
		t.Error("1-char organizer accepted")
	}
	if err := Struct(StartEventRequest{Name: "Assembly", Organizer: "Ms. Larina"}); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}
}

func TestCardRules(t *testing.T) {
	base := RegisterCardRequest{RFIDUID: "A1B2C3D4", StudentName: "Ivan Petrov"}
	if err := Struct(base); err != nil {
		t.Errorf("valid card rejected: %v", err)
	}
	long := base
	long.StudentClass = strings.Repeat("x", 21)
	if err := Struct(long); err == nil {
		t.Error("21-char class accepted")
	}
	short := base
	short.StudentName = "A"
	if err := Struct(short); err == nil {
		t.Error("1-char student name accepted")
	}
}

func TestSanitize(t *testing.T) {
	in := `<script>alert("hi")</script> O'Neil a/b`
	out := Sanitize(in)
	for _, forbidden := range []string{"<", ">", `"`, "'", "/"} {
		if strings.Contains(out, forbidden) {
			t.Errorf("sanitized output still contains %q: %s", forbidden, out)
		}
	}
	if Sanitize("plain text") != "plain text" {
		t.Error("plain text must pass through unchanged")
	}
}
