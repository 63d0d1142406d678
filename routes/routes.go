package routes

import (
	"rqc-adapter-api/controllers"
	"rqc-adapter-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "RQC Adapter API is running",
			})
		})

		// Journal-scoped endpoints
		journals := v1.Group("/journals/:journal_id")
		{
			// Explicit grading call, started by an editor from the article page
			journals.POST("/articles/:article_id/rqc-grading", controllers.SubmitArticleForGrading)

			// RQC credentials management
			journals.GET("/rqc-settings", controllers.GetRQCSettings)
			journals.POST("/rqc-settings", controllers.UpdateRQCSettings)
		}

		// Reviewer opting form; reachable with a one-time access code or an
		// authenticated reviewer id
		assignments := v1.Group("/review-assignments/:assignment_id")
		assignments.Use(middleware.ReviewerAccessRequired())
		{
			assignments.GET("/opting", controllers.GetReviewerOptingState)
			assignments.POST("/opting", controllers.SetReviewerOptingStatus)
		}

		// Workflow events pushed by the platform (implicit calls)
		v1.POST("/events/:event", controllers.HandleWorkflowEvent)
	}
}
