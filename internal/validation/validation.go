package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// rfidPattern bounds tag identifiers: alphanumeric, 4-50 characters.
var rfidPattern = regexp.MustCompile(`^[A-Za-z0-9]{4,50}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rfid", func(fl validator.FieldLevel) bool {
		return rfidPattern.MatchString(fl.Field().String())
	})
	return v
}

// LoginRequest carries credentials for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// StartEventRequest opens a new event.
type StartEventRequest struct {
	Name      string `json:"name" validate:"required,min=3,max=255"`
	Organizer string `json:"organizer" validate:"required,min=2,max=100"`
}

// RegisterCardRequest upserts a card in the registry.
type RegisterCardRequest struct {
	RFIDUID      string `json:"rfid_uid" validate:"required,rfid"`
	StudentName  string `json:"student_name" validate:"required,min=2,max=100"`
	StudentClass string `json:"student_class" validate:"omitempty,max=20"`
}

// AttendanceRequest records one scan against an event.
type AttendanceRequest struct {
	RFIDUID string `json:"rfid_uid" validate:"required,rfid"`
	EventID int64  `json:"event_id" validate:"required,gt=0"`
}

// Struct checks every rule on a bound request and returns the first
// violation as a caller-facing message. Validation never partially applies
// anything; a failure aborts the request before any store access.
func Struct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(message(verrs[0]))
	}
	return errors.New("invalid request")
}

func message(fe validator.FieldError) string {
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "rfid":
		return "card uid must be 4-50 alphanumeric characters"
	case "gt":
		return field + " must be a positive number"
	}
	return field + " is invalid"
}

func fieldName(s string) string {
	switch s {
	case "RFIDUID":
		return "card uid"
	case "StudentName":
		return "student name"
	case "StudentClass":
		return "student class"
	case "EventID":
		return "event id"
	}
	return strings.ToLower(s)
}

// sanitizer escapes HTML-significant characters. Persisted values may later
// be rendered in a browser or a CSV viewer, so this applies to every string
// field regardless of endpoint.
var sanitizer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes HTML-significant characters in a request string.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}
