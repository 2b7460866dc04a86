package api

import (
	"errors"
	"fmt"
	"net/http"

	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler holds the profile service dependency.
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// --- Request/Response Structs ---

type ProfileRequest struct {
	Goal               domain.Goal                `json:"goal" binding:"required"`
	Equipment          []domain.Equipment         `json:"equipment"`
	Diet               domain.DietPreference      `json:"diet" binding:"required"`
	TrainingDays       int                        `json:"trainingDays" binding:"required,min=1,max=7"`
	Age                int                        `json:"age"`
	Sex                domain.Sex                 `json:"sex"`
	HeightCm           float64                    `json:"heightCm"`
	WeightKg           float64                    `json:"weightKg"`
	ActivityLevel      domain.ActivityLevel       `json:"activityLevel"`
	DailyCalorieTarget int                        `json:"dailyCalorieTarget"`
	AvoidExercises     []string                   `json:"avoidExercises"`
	PreferredExercises []string                   `json:"preferredExercises"`
	SessionMinutes     int                        `json:"sessionMinutes"`
	FastingWindow      string                     `json:"fastingWindow"`
	MealsPerDay        int                        `json:"mealsPerDay"`
	SpecialRequest     string                     `json:"specialRequest"`
	Intensity          domain.IntensityPreference `json:"intensity"`
	TrainingLevel      domain.TrainingLevel       `json:"trainingLevel"`
}

// --- Handler Methods ---

// SaveProfile creates or replaces the caller's generation profile.
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile := &domain.UserProfile{
		Goal:               req.Goal,
		Equipment:          req.Equipment,
		Diet:               req.Diet,
		TrainingDays:       req.TrainingDays,
		Age:                req.Age,
		Sex:                req.Sex,
		HeightCm:           req.HeightCm,
		WeightKg:           req.WeightKg,
		ActivityLevel:      req.ActivityLevel,
		DailyCalorieTarget: req.DailyCalorieTarget,
		AvoidExercises:     req.AvoidExercises,
		PreferredExercises: req.PreferredExercises,
		SessionMinutes:     req.SessionMinutes,
		FastingWindow:      req.FastingWindow,
		MealsPerDay:        req.MealsPerDay,
		SpecialRequest:     req.SpecialRequest,
		Intensity:          req.Intensity,
		TrainingLevel:      req.TrainingLevel,
	}

	saved, err := h.profileService.Save(c.Request.Context(), userID, profile)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProfile) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to save profile")
		}
		return
	}

	c.JSON(http.StatusOK, saved)
}

// GetProfile returns the caller's generation profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	profile, err := h.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load profile")
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}
