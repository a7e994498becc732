package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"snapfix/internal/classify"
	"snapfix/internal/domain"
	"snapfix/internal/lifecycle"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	maxImageBytes     = 10 << 20
	deptAdminIDHeader = "X-Dept-Admin-ID"
)

type Classifier interface {
	Classify(ctx context.Context, image []byte, text string) (classify.Outcome, error)
}

// Reports is the lifecycle surface the HTTP layer exposes.
type Reports interface {
	CreateReport(ctx context.Context, in lifecycle.NewReport) (domain.Report, error)
	TrackReport(ctx context.Context, trackingID string) (domain.TrackView, error)
	AssignReport(ctx context.Context, trackingID string, adminID int64) error
	UpdateDeptStatus(ctx context.Context, trackingID string, adminID int64, status, remarks string) error
	UpdateRemarks(ctx context.Context, trackingID, remarks string) error
	ListReports(ctx context.Context, f domain.ReportFilter) ([]domain.Report, error)
	ListOpenAssigned(ctx context.Context, adminID int64) ([]domain.Report, error)
	GetAssignedReport(ctx context.Context, trackingID string, adminID int64) (domain.Report, error)
	CreateDeptAdmin(ctx context.Context, username, department string) (domain.DeptAdmin, error)
	ListDeptAdmins(ctx context.Context) ([]domain.DeptAdmin, error)
}

// Handlers holds all HTTP handlers
type Handlers struct {
	classifier Classifier
	reports    Reports
}

func NewHandlers(classifier Classifier, reports Reports) *Handlers {
	return &Handlers{classifier: classifier, reports: reports}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func internalError(c *gin.Context, message string, err error) {
	log.Printf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Classify accepts multipart form data with an optional "file" image and an
// optional "description".
func (h *Handlers) Classify(c *gin.Context) {
	description := c.PostForm("description")

	var image []byte
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxImageBytes {
			fail(c, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			internalError(c, "Failed to read image", err)
			return
		}
		image, err = io.ReadAll(io.LimitReader(f, maxImageBytes))
		f.Close()
		if err != nil {
			internalError(c, "Failed to read image", err)
			return
		}
	}

	out, err := h.classifier.Classify(c.Request.Context(), image, description)
	if errors.Is(err, classify.ErrNoValidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No valid input", "message": "No valid input"})
		return
	}
	if err != nil {
		internalError(c, "Classification failed", err)
		return
	}

	c.JSON(http.StatusOK, ClassifyResponse{
		IssueType:      string(out.Label),
		RawLabel:       string(out.RawLabel),
		Probability:    displayProbability(out.Confidence),
		Priority:       string(out.Priority),
		DecisionSource: string(out.Provenance),
	})
}

func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	in := lifecycle.NewReport{
		IssueType:      req.IssueType,
		RawLabel:       req.RawLabel,
		Location:       req.Location,
		Description:    req.Description,
		Priority:       req.Priority,
		DecisionSource: domain.Provenance(req.DecisionSource),
		TelegramID:     req.TelegramID,
	}
	if req.Probability != nil {
		in.Probability = *req.Probability
	}

	r, err := h.reports.CreateReport(c.Request.Context(), in)
	if errors.Is(err, lifecycle.ErrInvalidInput) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(c, "Failed to create report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking_id": r.TrackingID})
}

func (h *Handlers) TrackReport(c *gin.Context) {
	trackingID := strings.TrimSpace(c.Query("id"))
	if trackingID == "" {
		fail(c, http.StatusBadRequest, "tracking_id required")
		return
	}
	view, err := h.reports.TrackReport(c.Request.Context(), trackingID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		fail(c, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to load report", err)
		return
	}
	c.JSON(http.StatusOK, toTrackResponse(view))
}

func (h *Handlers) ListReports(c *gin.Context) {
	reports, err := h.reports.ListReports(c.Request.Context(), domain.ReportFilter{
		Status:     c.Query("status"),
		Department: c.Query("dept"),
	})
	if err != nil {
		internalError(c, "Failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reports": toReportResponses(reports)})
}

func (h *Handlers) AssignReport(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBind(&req); err != nil || req.DeptAdminID <= 0 {
		fail(c, http.StatusBadRequest, "dept_admin_id must be a positive integer")
		return
	}
	trackingID := c.Param("trackingId")
	err := h.reports.AssignReport(c.Request.Context(), trackingID, req.DeptAdminID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		fail(c, http.StatusNotFound, "Report or department admin not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to assign report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tracking_id": trackingID, "dept_status": domain.DeptStatusAssigned})
}

func (h *Handlers) UpdateRemarks(c *gin.Context) {
	var req RemarksRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	err := h.reports.UpdateRemarks(c.Request.Context(), c.Param("trackingId"), req.Remarks)
	if errors.Is(err, lifecycle.ErrNotFound) {
		fail(c, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to update remarks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) ListDeptAdmins(c *gin.Context) {
	admins, err := h.reports.ListDeptAdmins(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to list department admins", err)
		return
	}
	out := make([]DeptAdminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, toDeptAdminResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dept_admins": out})
}

func (h *Handlers) CreateDeptAdmin(c *gin.Context) {
	var req CreateDeptAdminRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, err := h.reports.CreateDeptAdmin(c.Request.Context(), req.Username, req.Department)
	if errors.Is(err, lifecycle.ErrInvalidInput) {
		fail(c, http.StatusBadRequest, "username and department are required")
		return
	}
	if err != nil {
		internalError(c, "Failed to create department admin", err)
		return
	}
	c.JSON(http.StatusCreated, toDeptAdminResponse(a))
}

// deptAdminID reads the operator id set by the authenticating proxy.
func deptAdminID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(deptAdminIDHeader)), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusUnauthorized, "Department admin identity required")
		return 0, false
	}
	return id, true
}

func (h *Handlers) DeptDashboard(c *gin.Context) {
	adminID, ok := deptAdminID(c)
	if !ok {
		return
	}
	reports, err := h.reports.ListOpenAssigned(c.Request.Context(), adminID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		fail(c, http.StatusUnauthorized, "Unknown department admin")
		return
	}
	if err != nil {
		internalError(c, "Failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reports": toReportResponses(reports)})
}

func (h *Handlers) DeptReportDetail(c *gin.Context) {
	adminID, ok := deptAdminID(c)
	if !ok {
		return
	}
	r, err := h.reports.GetAssignedReport(c.Request.Context(), c.Param("trackingId"), adminID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		fail(c, http.StatusNotFound, "Report not found or not assigned to you")
		return
	}
	if err != nil {
		internalError(c, "Failed to load report", err)
		return
	}
	c.JSON(http.StatusOK, toReportResponse(r))
}

func (h *Handlers) UpdateDeptStatus(c *gin.Context) {
	adminID, ok := deptAdminID(c)
	if !ok {
		return
	}
	var req DeptStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	trackingID := c.Param("trackingId")
	err := h.reports.UpdateDeptStatus(c.Request.Context(), trackingID, adminID, req.DeptStatus, req.DeptRemarks)
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		fail(c, http.StatusNotFound, "Report not found or not assigned to you")
	case errors.Is(err, lifecycle.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "dept_status is required")
	case err != nil:
		internalError(c, "Failed to update status", err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "tracking_id": trackingID, "dept_status": strings.TrimSpace(req.DeptStatus)})
	}
}
