package attendance

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// UnknownStudent is recorded when a scanned tag has no registry entry.
// An unregistered card never blocks attendance recording.
const UnknownStudent = "Unknown student"

// Service coordinates event lifecycle and scan recording.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Repo exposes the underlying repository for read-only callers.
func (s *Service) Repo() *Repository { return s.repo }

// StartEvent force-closes any running event and opens a new one.
func (s *Service) StartEvent(ctx context.Context, name, organizer string) (int64, error) {
	return s.repo.StartEvent(ctx, name, organizer)
}

// StopEvent closes the event by id; ErrNotFound when nothing was stopped.
func (s *Service) StopEvent(ctx context.Context, id int64) error {
	return s.repo.StopEvent(ctx, id)
}

// ActiveEvent returns the running event, or nil.
func (s *Service) ActiveEvent(ctx context.Context) (*Event, error) {
	return s.repo.ActiveEvent(ctx)
}

// RecordScan resolves the card to a student name and appends an attendance
// record. The name is a snapshot: later registry edits do not touch it.
func (s *Service) RecordScan(ctx context.Context, rfidUID string, eventID int64) (Record, error) {
	card, err := s.repo.CardByUID(ctx, rfidUID)
	if err != nil {
		return Record{}, fmt.Errorf("resolve card: %w", err)
	}
	name := UnknownStudent
	var class string
	if card != nil {
		name = card.StudentName
		class = card.StudentClass
	}
	rec, err := s.repo.InsertRecord(ctx, Record{
		RFIDUID:     rfidUID,
		StudentName: name,
		EventID:     eventID,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	rec.StudentClass = class
	return rec, nil
}

// RegisterCard upserts a card by uid.
func (s *Service) RegisterCard(ctx context.Context, rfidUID, studentName, studentClass string) error {
	return s.repo.UpsertCard(ctx, rfidUID, studentName, studentClass)
}

// Attendance returns the log for an event, newest first. An unknown event id
// yields an empty list, not an error.
func (s *Service) Attendance(ctx context.Context, eventID int64) ([]Record, error) {
	return s.repo.ListRecordsByEvent(ctx, eventID)
}

// Cards lists all registered cards sorted by student name.
func (s *Service) Cards(ctx context.Context) ([]Card, error) {
	return s.repo.ListCards(ctx)
}

// Stats returns dashboard counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.CountStats(ctx)
}

// csvHeader is the fixed export header row.
var csvHeader = []string{"Event", "RFID UID", "Student Name", "Class", "Timestamp"}

// ExportCSV streams the attendance log for one event as semicolon-delimited
// CSV. Every field is double-quoted so values containing commas or
// semicolons survive spreadsheet import.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, eventID int64) error {
	rows, err := s.repo.ExportRows(ctx, eventID)
	if err != nil {
		return err
	}
	if err := writeCSVLine(w, csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		line := []string{
			row.EventName,
			row.RFIDUID,
			row.StudentName,
			row.StudentClass,
			row.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := writeCSVLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVLine(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ";")+"\n")
	return err
}
