package host

import (
	"errors"
	"net/http"
	"sort"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/onboarding"
	"vendor-onboarding/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	sessions *SessionManager
	logger   logger.Logger
}

func NewHandler(sessions *SessionManager, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{sessions: sessions, logger: log.WithFields(map[string]interface{}{"component": "onboarding-handler"})}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetState)
	rg.PATCH("/fields", h.EditFields)
	rg.POST("/advance", h.Advance)
	rg.POST("/previous", h.Previous)
}

type editFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

type advanceResponse struct {
	Outcome  onboarding.Outcome `json:"outcome"`
	Snapshot snapshotView       `json:"snapshot"`
}

// GetState opens the vendor's session and returns its snapshot. Vendors
// already marked complete get {"completed": true} without a session.
func (h *Handler) GetState(c *gin.Context) {
	p := principalFrom(c)
	if h.sessions.AlreadyCompleted(c.Request.Context(), p.VendorID) {
		response.Success(c, http.StatusOK, gin.H{"completed": true})
		return
	}
	ctrl := h.sessions.Open(c.Request.Context(), p)
	response.Success(c, http.StatusOK, renderSnapshot(ctrl.Snapshot()))
}

// EditFields applies the edits in field-name order.
func (h *Handler) EditFields(c *gin.Context) {
	var req editFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Body must be {\"fields\": {name: value}}")
		return
	}
	for name := range req.Fields {
		if _, err := onboarding.ParseField(name); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "UNKNOWN_FIELD", "Unknown field", gin.H{"field": name})
			return
		}
	}

	ctrl, ok := h.open(c)
	if !ok {
		return
	}

	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctrl.EditByName(name, req.Fields[name]); err != nil {
			h.commandError(c, ctrl, err)
			return
		}
	}
	response.Success(c, http.StatusOK, renderSnapshot(ctrl.Snapshot()))
}

func (h *Handler) Advance(c *gin.Context) {
	ctrl, ok := h.open(c)
	if !ok {
		return
	}

	outcome, err := h.sessions.Advance(c.Request.Context(), ctrl)
	snap := renderSnapshot(ctrl.Snapshot())

	var verr *onboarding.ValidationError
	var perr *onboarding.PersistenceError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"Some fields need attention", advanceResponse{Outcome: outcome, Snapshot: snap})
	case errors.As(err, &perr):
		response.ErrorWithDetails(c, http.StatusBadGateway, string(perr.Cause.Code),
			perr.Cause.Message, advanceResponse{Outcome: outcome, Snapshot: snap})
	case err != nil:
		h.commandError(c, ctrl, err)
	default:
		response.Success(c, http.StatusOK, advanceResponse{Outcome: outcome, Snapshot: snap})
	}
}

func (h *Handler) Previous(c *gin.Context) {
	ctrl, ok := h.open(c)
	if !ok {
		return
	}
	if err := ctrl.GoToPrevious(); err != nil {
		h.commandError(c, ctrl, err)
		return
	}
	response.Success(c, http.StatusOK, renderSnapshot(ctrl.Snapshot()))
}

// open returns the vendor's controller for a mutating route. Finished
// vendors get 410 instead of a fresh session.
func (h *Handler) open(c *gin.Context) (*onboarding.Controller, bool) {
	p := principalFrom(c)
	if h.sessions.AlreadyCompleted(c.Request.Context(), p.VendorID) {
		response.Error(c, http.StatusGone, "ONBOARDING_COMPLETED", "Onboarding is already complete")
		return nil, false
	}
	return h.sessions.Open(c.Request.Context(), p), true
}

// commandError maps controller sentinel errors to HTTP answers.
func (h *Handler) commandError(c *gin.Context, ctrl *onboarding.Controller, err error) {
	switch {
	case errors.Is(err, onboarding.ErrNotReady):
		response.ErrorWithDetails(c, http.StatusConflict, "BOOTSTRAPPING",
			"Saved progress is still loading", renderSnapshot(ctrl.Snapshot()))
	case errors.Is(err, onboarding.ErrWorkflowCompleted):
		response.Error(c, http.StatusGone, "ONBOARDING_COMPLETED", "Onboarding is already complete")
	case errors.Is(err, onboarding.ErrClosed):
		response.Error(c, http.StatusGone, "SESSION_CLOSED", "The onboarding session has ended, reload to continue")
	case errors.Is(err, onboarding.ErrUnknownField):
		response.Error(c, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	default:
		h.logger.Error("unexpected controller error", map[string]interface{}{"error": err.Error()})
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
	}
}

func principalFrom(c *gin.Context) *auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return &auth.Principal{}
}
