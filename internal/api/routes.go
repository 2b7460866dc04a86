package api

import (
	"net/http"

	"pulsefit/plan-engine/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	profileService service.ProfileService,
	checkinService service.CheckInService,
	planService service.PlanService,
) {
	authHandler := NewAuthHandler(authService)
	profileHandler := NewProfileHandler(profileService)
	checkinHandler := NewCheckInHandler(checkinService)
	planHandler := NewPlanHandler(planService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Profile Routes ---
		profileGroup := protected.Group("/profile")
		{
			profileGroup.PUT("", profileHandler.SaveProfile)
			profileGroup.GET("", profileHandler.GetProfile)
		}

		// --- Check-in Routes ---
		checkinGroup := protected.Group("/checkins")
		{
			checkinGroup.POST("", checkinHandler.RecordCheckIn)
			checkinGroup.GET("", checkinHandler.ListCheckIns)
			checkinGroup.GET("/today", checkinHandler.GetTodayCheckIn)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			planGroup.POST("/generate", planHandler.GeneratePlan)
			planGroup.GET("", planHandler.ListPlans)
			planGroup.GET("/regeneration", planHandler.GetRegeneration)
			planGroup.POST("/adjust-today", planHandler.AdjustToday)
			planGroup.POST("/sync", planHandler.SyncPlans)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.POST("/:planId/activate", planHandler.ActivatePlan)
			planGroup.PATCH("/:planId/name", planHandler.RenamePlan)
			planGroup.DELETE("/:planId", planHandler.DeletePlan)
			planGroup.GET("/:planId/stats", planHandler.GetPlanStats)
		}
	}
}
