package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/models"
)

func submitIntakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewEventIntake
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		intake, err := models.CreateEventIntake(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": intake.ID, "status": "received"})
	}
}
