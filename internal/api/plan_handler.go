package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pulsefit/plan-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- Request/Response Structs ---

type RenamePlanRequest struct {
	Name string `json:"name" binding:"required"`
}

type RegenerationResponse struct {
	CanRegenerate        bool    `json:"canRegenerate"`
	TimeRemainingSeconds float64 `json:"timeRemainingSeconds"`
}

// --- Handler Methods ---

// GeneratePlan runs the full base-plan pipeline and returns the new plan.
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plan, err := h.planService.GeneratePlan(c.Request.Context(), userID)
	if err != nil {
		var tooSoon *service.TooSoonError
		switch {
		case errors.As(err, &tooSoon):
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":                err.Error(),
				"timeRemainingSeconds": tooSoon.Remaining.Seconds(),
			})
		case errors.Is(err, service.ErrProfileNotFound):
			abortWithError(c, http.StatusPreconditionFailed, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Client went away or the request timed out mid-pipeline.
			abortWithError(c, http.StatusRequestTimeout, "Plan generation was interrupted")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate plan")
		}
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// ListPlans returns every plan the caller owns, newest first.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plans, err := h.planService.GetPlans(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load plans")
		return
	}

	c.JSON(http.StatusOK, plans)
}

// GetPlan returns one plan by ID.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), userID, c.Param("planId"))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load plan")
		}
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ActivatePlan makes the target plan the active one.
func (h *PlanHandler) ActivatePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plan, err := h.planService.Activate(c.Request.Context(), userID, c.Param("planId"))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to activate plan")
		}
		return
	}

	c.JSON(http.StatusOK, plan)
}

// RenamePlan updates the user-facing plan name.
func (h *PlanHandler) RenamePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	var req RenamePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err = h.planService.Rename(c.Request.Context(), userID, c.Param("planId"), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrEmptyPlanName):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPlanLocked):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to rename plan")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// DeletePlan removes an archived plan. The active plan and the last
// remaining plan cannot be deleted.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	err = h.planService.Delete(c.Request.Context(), userID, c.Param("planId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCannotDeleteActive), errors.Is(err, service.ErrCannotDeleteLast):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to delete plan")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRegeneration reports whether a new plan may be generated and how long
// until the cooldown expires otherwise.
func (h *PlanHandler) GetRegeneration(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	status, err := h.planService.Regeneration(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to check regeneration status")
		return
	}

	c.JSON(http.StatusOK, RegenerationResponse{
		CanRegenerate:        status.CanRegenerate,
		TimeRemainingSeconds: status.TimeRemaining.Seconds(),
	})
}

// AdjustToday titrates the active plan's current day from today's check-in.
func (h *PlanHandler) AdjustToday(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plan, err := h.planService.AdjustToday(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotFound):
			abortWithError(c, http.StatusPreconditionFailed, err.Error())
		case errors.Is(err, service.ErrNoActivePlan):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNoCheckInToday):
			abortWithError(c, http.StatusPreconditionFailed, err.Error())
		case errors.Is(err, service.ErrPlanLocked):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to adjust today's plan")
		}
		return
	}

	c.JSON(http.StatusOK, plan)
}

// GetPlanStats recomputes and returns statistics for one plan.
func (h *PlanHandler) GetPlanStats(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	stats, err := h.planService.PlanStats(c.Request.Context(), userID, c.Param("planId"))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to compute plan stats")
		}
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SyncPlans merges the local plan collection with the remote snapshot and
// returns the merged set.
func (h *PlanHandler) SyncPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	plans, err := h.planService.Sync(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to sync plans")
		return
	}

	c.JSON(http.StatusOK, plans)
}
