package api

import (
	"errors"
	"fmt"
	"net/http"

	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckInHandler holds the check-in service dependency.
type CheckInHandler struct {
	checkinService service.CheckInService
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(checkinService service.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkinService: checkinService}
}

// --- Request/Response Structs ---

type CheckInRequest struct {
	Energy     int                `json:"energy" binding:"required,min=1,max=10"`
	Stress     int                `json:"stress" binding:"required,min=1,max=10"`
	SleepHrs   float64            `json:"sleepHrs" binding:"min=0,max=24"`
	WokeAs     domain.WokeFeeling `json:"wokeAs"`
	Soreness   []string           `json:"soreness"`
	Mood       string             `json:"mood"`
	Motivation int                `json:"motivation" binding:"required,min=1,max=10"`
	Traveling  bool               `json:"traveling"`
	WeightKg   *float64           `json:"weightKg"`
}

// --- Handler Methods ---

// RecordCheckIn stores today's wellness check-in. The server clock decides
// the date; the request carries no date field.
func (h *CheckInHandler) RecordCheckIn(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	checkin := &domain.CheckIn{
		Energy:     req.Energy,
		Stress:     req.Stress,
		SleepHrs:   req.SleepHrs,
		WokeAs:     req.WokeAs,
		Soreness:   req.Soreness,
		Mood:       req.Mood,
		Motivation: req.Motivation,
		Traveling:  req.Traveling,
		WeightKg:   req.WeightKg,
	}

	saved, err := h.checkinService.Record(c.Request.Context(), userID, checkin)
	if err != nil {
		if errors.Is(err, service.ErrCheckInExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else if errors.Is(err, service.ErrInvalidCheckIn) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to record check-in")
		}
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// GetTodayCheckIn returns the check-in for the current date, if any.
func (h *CheckInHandler) GetTodayCheckIn(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	checkin, err := h.checkinService.Today(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoCheckInToday) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load check-in")
		}
		return
	}

	c.JSON(http.StatusOK, checkin)
}

// ListCheckIns returns the caller's full check-in history, oldest first.
func (h *CheckInHandler) ListCheckIns(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	checkins, err := h.checkinService.List(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load check-ins")
		return
	}

	c.JSON(http.StatusOK, checkins)
}
