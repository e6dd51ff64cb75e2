package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/application/service"
	"github.com/medialert/reportflow/internal/domain/entity"
)

const healthCheckTimeout = 2 * time.Second

// Handlers contains all HTTP request handlers
type Handlers struct {
	reports       service.ReportService
	notifications service.NotificationService
	users         service.UserService
	healthChecks  map[string]HealthCheck
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, healthChecks map[string]HealthCheck, logger Logger) *Handlers {
	return &Handlers{
		reports:       services.Reports,
		notifications: services.Notifications,
		users:         services.Users,
		healthChecks:  healthChecks,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// ReportResponse is a report together with the actions its viewer may attempt
type ReportResponse struct {
	*entity.Report
	AllowedActions []string `json:"allowed_actions"`
}

// TransitionRequest is the body of POST /reports/:id/transitions
type TransitionRequest struct {
	Action  string                    `json:"action"`
	Payload service.TransitionPayload `json:"payload"`
}

// ProvisionUserRequest is the body of PUT /users/:id
type ProvisionUserRequest struct {
	Role          string `json:"role"`
	InstitutionID string `json:"institution_id"`
	DisplayName   string `json:"display_name"`
}

// ListReportsQuery holds the report listing filters
type ListReportsQuery struct {
	Severity      string `form:"severity"`
	MedicationID  string `form:"medication_id"`
	Status        string `form:"status"`
	Type          string `form:"type"`
	InstitutionID string `form:"institution_id"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
	Limit         int    `form:"limit"`
	Offset        int    `form:"offset"`
}

// ListAlertsQuery holds the alert listing parameters
type ListAlertsQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit"`
	Offset     int  `form:"offset"`
}

// Version is reported by GET /health
var Version = "dev"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	status := http.StatusOK
	if len(h.healthChecks) > 0 {
		response.Components = make(map[string]string, len(h.healthChecks))
	}
	for name, check := range h.healthChecks {
		if err := check(ctx); err != nil {
			h.logger.Error("Health check failed", "component", name, "error", err)
			response.Components[name] = "unhealthy"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Components[name] = "healthy"
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// CreateReport handles POST /api/v1/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var in service.CreateReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	report, err := h.reports.CreateReport(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		h.fail(c, "Failed to create report", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: report})
}

// ListReports handles GET /api/v1/reports
func (h *Handlers) ListReports(c *gin.Context) {
	var q ListReportsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	filter := port.ReportFilter{
		Severity:      q.Severity,
		MedicationID:  q.MedicationID,
		Status:        q.Status,
		Type:          q.Type,
		InstitutionID: q.InstitutionID,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}

	var err error
	if filter.DateFrom, err = parseDate(q.DateFrom, false); err != nil {
		badRequest(c, "invalid date_from")
		return
	}
	if filter.DateTo, err = parseDate(q.DateTo, true); err != nil {
		badRequest(c, "invalid date_to")
		return
	}

	reports, err := h.reports.ListVisible(c.Request.Context(), callerFrom(c), filter)
	if err != nil {
		h.fail(c, "Failed to list reports", err)
		return
	}
	if reports == nil {
		reports = []*entity.Report{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: reports})
}

// GetReport handles GET /api/v1/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	caller := callerFrom(c)
	report, err := h.reports.GetReport(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, "Failed to get report", err)
		return
	}

	actions, err := h.reports.AllowedActions(caller, report)
	if err != nil {
		h.fail(c, "Failed to list allowed actions", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ReportResponse{Report: report, AllowedActions: actions}})
}

// GetHistory handles GET /api/v1/reports/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	history, err := h.reports.History(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.fail(c, "Failed to get report history", err)
		return
	}
	if history == nil {
		history = []*entity.ReportHistory{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// TransitionReport handles POST /api/v1/reports/:id/transitions
func (h *Handlers) TransitionReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	report, err := h.reports.Transition(c.Request.Context(), id, req.Action, callerFrom(c), req.Payload)
	if err != nil {
		h.fail(c, "Failed to transition report", err, "report_id", id, "action", req.Action)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// RetryAssignment handles POST /api/v1/reports/:id/assignment
func (h *Handlers) RetryAssignment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	report, err := h.reports.RetryAssignment(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.fail(c, "Failed to retry assignment", err, "report_id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// ListAlerts handles GET /api/v1/alerts
func (h *Handlers) ListAlerts(c *gin.Context) {
	var q ListAlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	alerts, err := h.notifications.ListAlerts(c.Request.Context(), callerFrom(c), q.UnreadOnly, q.Limit, q.Offset)
	if err != nil {
		h.fail(c, "Failed to list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*entity.AlertNotification{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alerts})
}

// MarkAlertRead handles POST /api/v1/alerts/:id/read
func (h *Handlers) MarkAlertRead(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkAlertRead(c.Request.Context(), callerFrom(c), id); err != nil {
		h.fail(c, "Failed to mark alert read", err, "alert_id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ProvisionUser handles PUT /api/v1/users/:id
func (h *Handlers) ProvisionUser(c *gin.Context) {
	var req ProvisionUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.users.ProvisionUser(c.Request.Context(), callerFrom(c), entity.User{
		ID:            c.Param("id"),
		Role:          entity.Role(req.Role),
		InstitutionID: req.InstitutionID,
		DisplayName:   req.DisplayName,
	})
	if err != nil {
		h.fail(c, "Failed to provision user", err, "user_id", c.Param("id"))
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// fail logs err and writes the mapped error response
func (h *Handlers) fail(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
	}
	c.JSON(status, Response{Success: false, Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

// idParam parses the :id path parameter, writing a 400 on failure
func idParam(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
