package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/business-trip/internal/application/service"
	"github.com/garyjia/business-trip/internal/domain/entity"
	domainwf "github.com/garyjia/business-trip/internal/domain/workflow"
	"github.com/garyjia/business-trip/pkg/utils"
)

// maxSubmissionBytes bounds a posted form submission, documents included
const maxSubmissionBytes = 32 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
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
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CommentRequest carries the free-text comment of a return action
type CommentRequest struct {
	Comment string `json:"comment"`
}

// ForceStateRequest is the administrator's status override
type ForceStateRequest struct {
	Status domainwf.State `json:"status" binding:"required"`
	Note   string         `json:"note"`
}

// SubmissionResponse reports whether a posted submission was applied
type SubmissionResponse struct {
	Processed bool `json:"processed"`
}

// tripAction is a trip operation that takes no request body
type tripAction func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateTrip handles POST /api/trips
func (h *Handlers) CreateTrip(c *gin.Context) {
	var in service.CreateTripInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, "invalid request body", err)
			return
		}
	}

	trip, err := h.services.Trips.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "create trip", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: trip})
}

// GetTrip handles GET /api/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	id, ok := h.tripID(c)
	if !ok {
		return
	}

	view, err := h.services.Trips.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, "get trip", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// Submit handles POST /api/trips/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.runAction(c, "submit", h.services.Trips.Submit)
}

// Cancel handles POST /api/trips/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	h.runAction(c, "cancel", h.services.Trips.Cancel)
}

// MarkOrganized handles POST /api/trips/:id/organized
func (h *Handlers) MarkOrganized(c *gin.Context) {
	h.runAction(c, "organized", h.services.Trips.MarkOrganized)
}

// ConfirmPlan handles POST /api/trips/:id/confirm-plan
func (h *Handlers) ConfirmPlan(c *gin.Context) {
	h.runAction(c, "confirm plan", h.services.Trips.ConfirmPlan)
}

// UndoPlanConfirmation handles POST /api/trips/:id/undo-plan
func (h *Handlers) UndoPlanConfirmation(c *gin.Context) {
	h.runAction(c, "undo plan", h.services.Trips.UndoPlanConfirmation)
}

// StartTrip handles POST /api/trips/:id/start
func (h *Handlers) StartTrip(c *gin.Context) {
	h.runAction(c, "start trip", h.services.Trips.StartTrip)
}

// EndTrip handles POST /api/trips/:id/end
func (h *Handlers) EndTrip(c *gin.Context) {
	h.runAction(c, "end trip", h.services.Trips.EndTrip)
}

// RecallExpenses handles POST /api/trips/:id/recall-expenses
func (h *Handlers) RecallExpenses(c *gin.Context) {
	h.runAction(c, "recall expenses", h.services.Trips.RecallExpenses)
}

// ApproveExpenses handles POST /api/trips/:id/approve-expenses
func (h *Handlers) ApproveExpenses(c *gin.Context) {
	h.runAction(c, "approve expenses", h.services.Trips.ApproveExpenses)
}

// UndoExpenseApproval handles POST /api/trips/:id/undo-expense-approval
func (h *Handlers) UndoExpenseApproval(c *gin.Context) {
	h.runAction(c, "undo expense approval", h.services.Trips.UndoExpenseApproval)
}

// ReturnToEmployee handles POST /api/trips/:id/return
func (h *Handlers) ReturnToEmployee(c *gin.Context) {
	var req CommentRequest
	if !h.bind(c, &req) {
		return
	}
	h.runAction(c, "return", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.ReturnToEmployee(ctx, actor, id, utils.SanitizeString(req.Comment))
	})
}

// ReturnExpenses handles POST /api/trips/:id/return-expenses
func (h *Handlers) ReturnExpenses(c *gin.Context) {
	var req CommentRequest
	if !h.bind(c, &req) {
		return
	}
	h.runAction(c, "return expenses", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.ReturnExpenses(ctx, actor, id, utils.SanitizeString(req.Comment))
	})
}

// AssignOrganizer handles POST /api/trips/:id/assign
func (h *Handlers) AssignOrganizer(c *gin.Context) {
	var in service.AssignInput
	if !h.bind(c, &in) {
		return
	}
	h.runAction(c, "assign organizer", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.AssignOrganizer(ctx, actor, id, in)
	})
}

// Reject handles POST /api/trips/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	var in service.RejectInput
	if !h.bind(c, &in) {
		return
	}
	h.runAction(c, "reject", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.Reject(ctx, actor, id, in)
	})
}

// SavePlan handles POST /api/trips/:id/plan
func (h *Handlers) SavePlan(c *gin.Context) {
	var in service.PlanInput
	if !h.bind(c, &in) {
		return
	}
	h.runAction(c, "save plan", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.SavePlan(ctx, actor, id, in)
	})
}

// SubmitExpenses handles POST /api/trips/:id/expenses
func (h *Handlers) SubmitExpenses(c *gin.Context) {
	var in service.ExpenseInput
	if !h.bind(c, &in) {
		return
	}
	h.runAction(c, "submit expenses", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.SubmitExpenses(ctx, actor, id, in)
	})
}

// ForceState handles POST /api/trips/:id/force-state
func (h *Handlers) ForceState(c *gin.Context) {
	var req ForceStateRequest
	if !h.bind(c, &req) {
		return
	}
	h.runAction(c, "force state", func(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
		return h.services.Trips.ForceState(ctx, actor, id, req.Status, utils.SanitizeString(req.Note))
	})
}

// SubmitForm handles POST /formio/form/:uuid/submit
func (h *Handlers) SubmitForm(c *gin.Context) {
	uuid := c.Param("uuid")
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSubmissionBytes))
	if err != nil {
		h.badRequest(c, "failed to read submission", err)
		return
	}

	processed, err := h.services.Submissions.Process(c.Request.Context(), uuid, raw)
	if err != nil {
		h.fail(c, "process submission", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: SubmissionResponse{Processed: processed}})
}

// DownloadDocument handles GET /content/:model/:id/:field/:filename
func (h *Handlers) DownloadDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.badRequest(c, "invalid record ID", err)
		return
	}

	att, content, err := h.services.Submissions.Document(c.Request.Context(), actorFrom(c), c.Param("model"), id, c.Param("field"))
	if err != nil {
		h.fail(c, "download document", err)
		return
	}
	if c.Param("filename") != att.FileName {
		c.JSON(http.StatusNotFound, Response{Error: "document not found"})
		return
	}

	if c.Query("download") == "true" {
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName})
		if disposition == "" {
			disposition = "attachment"
		}
		c.Header("Content-Disposition", disposition)
	}
	mimeType := att.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Data(http.StatusOK, mimeType, content)
}

// ExportLedger handles GET /api/ledger.xlsx
func (h *Handlers) ExportLedger(c *gin.Context) {
	out, err := h.services.Ledger.Export(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, "export ledger", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="trip-ledger.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out)
}

func (h *Handlers) runAction(c *gin.Context, name string, action tripAction) {
	id, ok := h.tripID(c)
	if !ok {
		return
	}

	trip, err := action(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, name, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: trip})
}

func (h *Handlers) tripID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid trip ID", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.badRequest(c, "invalid request body", err)
		return false
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error("Bad request", "path", c.FullPath(), "reason", msg, "error", err)
	c.JSON(http.StatusBadRequest, Response{Error: msg})
}

// fail maps domain errors onto status codes. Unexpected errors are logged
// and their text withheld from the caller.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err)
		c.JSON(status, Response{Error: op + " failed"})
		return
	}
	c.JSON(status, Response{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrValidation), errors.Is(err, domainwf.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func actorFrom(c *gin.Context) *entity.User {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}
