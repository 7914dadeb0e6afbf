package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"incident-reporter/aggregate"
	"incident-reporter/database"
	"incident-reporter/fanout"
	"incident-reporter/models"
	ws "incident-reporter/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	hub    *ws.Hub
	db     *database.Database
	engine *fanout.Engine
}

// NewHandlers creates a new handlers instance
func NewHandlers(hub *ws.Hub, db *database.Database, engine *fanout.Engine) *Handlers {
	return &Handlers{
		hub:    hub,
		db:     db,
		engine: engine,
	}
}

// Db exposes the underlying database handle for wiring
func (h *Handlers) Db() *database.Database {
	return h.db
}

// CreateReport handles POST /reports. The report write is the durable
// source of truth; fan-out runs after it commits and cannot fail the
// request.
func (h *Handlers) CreateReport(c *gin.Context) {
	var req models.CreateReportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	report, err := h.db.CreateReport(c.Request.Context(), &req)
	if err != nil {
		if ve, ok := models.AsValidationError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
			return
		}
		log.Errorf("Failed to create report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save the report"})
		return
	}

	// Fan-out is decoupled from the request context: the caller may
	// disconnect without affecting notification writes.
	h.engine.ReportCreated(context.Background(), report)

	c.JSON(http.StatusCreated, report)
}

// AdvanceStatus handles PATCH /reports/:id/status.
func (h *Handlers) AdvanceStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	report, previous, err := h.db.AdvanceStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if ve, ok := models.AsValidationError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
			return
		}
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Errorf("Failed to advance report status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update the report"})
		return
	}

	// No-op transitions are persisted but not fanned out.
	if previous != report.Status {
		h.engine.ReportUpdated(context.Background(), report)
	}

	c.JSON(http.StatusOK, report)
}

// ListReportsByUser handles GET /reports/user/:id.
func (h *Handlers) ListReportsByUser(c *gin.Context) {
	h.listReports(c, models.Identity{UserID: c.Param("id")})
}

// ListReportsByDevice handles GET /reports/device/:id, an anonymous
// reporter's own submissions.
func (h *Handlers) ListReportsByDevice(c *gin.Context) {
	h.listReports(c, models.Identity{DeviceID: c.Param("id")})
}

func (h *Handlers) listReports(c *gin.Context, identity models.Identity) {
	reports, err := h.db.ListByReporter(c.Request.Context(), identity)
	if err != nil {
		log.Errorf("Failed to list reports by reporter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListReportsByResponder handles GET /reports/responder/:id.
func (h *Handlers) ListReportsByResponder(c *gin.Context) {
	reports, err := h.db.ListByResponder(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Errorf("Failed to list reports by responder: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListAllReports handles GET /reports.
func (h *Handlers) ListAllReports(c *gin.Context) {
	reports, err := h.db.ListAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListGroupedReports handles GET /reports/grouped: the server-side
// rendering of the incident fold used by dashboards.
func (h *Handlers) ListGroupedReports(c *gin.Context) {
	reports, err := h.db.ListAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list reports for grouping: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	c.JSON(http.StatusOK, aggregate.Group(reports))
}

// ListNotifications handles GET /notifications.
func (h *Handlers) ListNotifications(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
		return
	}
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'skip' parameter. Must be a non-negative integer."})
		return
	}

	list, err := h.db.ListNotifications(c.Request.Context(), identity, limit, skip)
	if err != nil {
		log.Errorf("Failed to list notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handlers) UnreadCount(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		return
	}

	count, err := h.db.CountUnread(c.Request.Context(), identity)
	if err != nil {
		log.Errorf("Failed to count unread notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead handles PATCH /notifications/:id/read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		return
	}

	var req models.MarkReadRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	err := h.db.MarkRead(c.Request.Context(), c.Param("id"), identity, req.Read)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		log.Errorf("Failed to mark notification read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": req.Read})
}

// MarkAllNotificationsRead handles PATCH|POST /notifications/mark-all-read.
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		return
	}

	updated, err := h.db.MarkAllRead(c.Request.Context(), identity)
	if err != nil {
		log.Errorf("Failed to mark all notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification handles DELETE /notifications/:id.
func (h *Handlers) DeleteNotification(c *gin.Context) {
	identity, ok := identityFromQuery(c)
	if !ok {
		return
	}

	err := h.db.DeleteNotification(c.Request.Context(), c.Param("id"), identity)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		log.Errorf("Failed to delete notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListResponders handles GET /responders.
func (h *Handlers) ListResponders(c *gin.Context) {
	responders, err := h.db.ListResponders(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list responders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve responders"})
		return
	}
	c.JSON(http.StatusOK, responders)
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	connectedClients, eventsBroadcast := h.hub.GetStats()

	response := models.HealthResponse{
		Status:           "healthy",
		Service:          "incident-reporter",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: connectedClients,
		EventsBroadcast:  eventsBroadcast,
	}

	c.JSON(http.StatusOK, response)
}

// identityFromQuery resolves the userId/deviceId query params. Exactly
// one is required; otherwise it writes a 400 and returns ok=false.
func identityFromQuery(c *gin.Context) (models.Identity, bool) {
	identity := models.Identity{
		UserID:   c.Query("userId"),
		DeviceID: c.Query("deviceId"),
	}
	if !identity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Exactly one of 'userId' or 'deviceId' is required."})
		return models.Identity{}, false
	}
	return identity, true
}
