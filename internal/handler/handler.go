package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/metrics"
	"rollcall/internal/validation"
)

// Handler implements the REST API over the attendance service.
type Handler struct {
	svc    *attendance.Service
	tokens *auth.Tokens
	log    zerolog.Logger
}

// New creates the API handler.
func New(svc *attendance.Service, tokens *auth.Tokens, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, log: log}
}

// Register mounts all routes under /api. Everything except login requires a
// valid bearer token.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/login", h.Login)

	authed := api.Group("", auth.RequireAuth(h.tokens))
	authed.POST("/events/start", h.StartEvent)
	authed.POST("/events/:id/stop", h.StopEvent)
	authed.GET("/events/active", h.ActiveEvent)
	authed.GET("/events/:id/attendance", h.EventAttendance)
	authed.GET("/events/:id/export", h.ExportEvent)
	authed.POST("/attendance", h.RecordAttendance)
	authed.POST("/cards/register", h.RegisterCard)
	authed.GET("/cards", h.ListCards)
	authed.GET("/stats", h.GetStats)
}

// respond writes the success envelope with extra payload fields.
func respond(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail writes the error envelope. Messages are stable and never leak
// internal detail.
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// storeFail logs the real error and returns a generic 500 to the caller.
func (h *Handler) storeFail(c *gin.Context, op string, err error) {
	h.log.Error().Err(err).Str("op", op).Msg("store operation failed")
	fail(c, http.StatusInternalServerError, "internal server error")
}

// Login authenticates credentials and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	var req validation.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	req.Username = validation.Sanitize(req.Username)
	if err := validation.Struct(req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := auth.Authenticate(c.Request.Context(), h.svc.Repo(), req.Username, req.Password)
	if err != nil {
		h.storeFail(c, "login", err)
		return
	}
	if user == nil {
		// Unknown username and wrong password are indistinguishable here.
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.storeFail(c, "issue token", err)
		return
	}
	respond(c, gin.H{"user": user, "token": token})
}

// StartEvent force-closes any active event and opens a new one.
func (h *Handler) StartEvent(c *gin.Context) {
	var req validation.StartEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "event name and organizer are required")
		return
	}
	req.Name = validation.Sanitize(req.Name)
	req.Organizer = validation.Sanitize(req.Organizer)
	if err := validation.Struct(req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.svc.StartEvent(c.Request.Context(), req.Name, req.Organizer)
	if err != nil {
		h.storeFail(c, "start event", err)
		return
	}
	respond(c, gin.H{"eventId": id, "message": fmt.Sprintf("event %q started", req.Name)})
}

// StopEvent closes an event by id; 404 when there is nothing to stop.
func (h *Handler) StopEvent(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}
	err := h.svc.StopEvent(c.Request.Context(), id)
	if errors.Is(err, attendance.ErrNotFound) {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		h.storeFail(c, "stop event", err)
		return
	}
	respond(c, gin.H{"message": "event stopped"})
}

// ActiveEvent returns the currently active event, or null.
func (h *Handler) ActiveEvent(c *gin.Context) {
	evt, err := h.svc.ActiveEvent(c.Request.Context())
	if err != nil {
		h.storeFail(c, "active event", err)
		return
	}
	respond(c, gin.H{"event": evt})
}

// RecordAttendance resolves a card and appends an attendance record.
func (h *Handler) RecordAttendance(c *gin.Context) {
	var req validation.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "card uid and event id are required")
		return
	}
	req.RFIDUID = validation.Sanitize(req.RFIDUID)
	if err := validation.Struct(req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.RecordScan(c.Request.Context(), req.RFIDUID, req.EventID)
	if err != nil {
		h.storeFail(c, "record scan", err)
		return
	}
	metrics.ScansTotal.Inc()
	respond(c, gin.H{
		"recordId":    rec.ID,
		"studentName": rec.StudentName,
		"timestamp":   rec.Timestamp,
		"message":     fmt.Sprintf("recorded: %s", rec.StudentName),
	})
}

// RegisterCard upserts a registered card by uid.
func (h *Handler) RegisterCard(c *gin.Context) {
	var req validation.RegisterCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "card uid and student name are required")
		return
	}
	req.RFIDUID = validation.Sanitize(req.RFIDUID)
	req.StudentName = validation.Sanitize(req.StudentName)
	req.StudentClass = validation.Sanitize(req.StudentClass)
	if err := validation.Struct(req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.RegisterCard(c.Request.Context(), req.RFIDUID, req.StudentName, req.StudentClass); err != nil {
		h.storeFail(c, "register card", err)
		return
	}
	respond(c, gin.H{"message": fmt.Sprintf("card registered for: %s", req.StudentName)})
}

// EventAttendance lists the attendance log for an event, newest first.
// An unknown event yields an empty list.
func (h *Handler) EventAttendance(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}
	records, err := h.svc.Attendance(c.Request.Context(), id)
	if err != nil {
		h.storeFail(c, "list attendance", err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	respond(c, gin.H{"records": records})
}

// ExportEvent streams the attendance log as semicolon-delimited CSV.
func (h *Handler) ExportEvent(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=event_%d_attendance.csv", id))
	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer, id); err != nil {
		h.log.Error().Err(err).Int64("event_id", id).Msg("csv export failed")
	}
}

// ListCards lists all registered cards sorted by student name.
func (h *Handler) ListCards(c *gin.Context) {
	cards, err := h.svc.Cards(c.Request.Context())
	if err != nil {
		h.storeFail(c, "list cards", err)
		return
	}
	if cards == nil {
		cards = []attendance.Card{}
	}
	respond(c, gin.H{"cards": cards})
}

// GetStats returns whole-store counters.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.storeFail(c, "stats", err)
		return
	}
	respond(c, gin.H{
		"totalEvents":  stats.TotalEvents,
		"totalRecords": stats.TotalRecords,
		"totalCards":   stats.TotalCards,
	})
}

func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "event id must be a positive number")
		return 0, false
	}
	return id, true
}
