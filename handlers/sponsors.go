package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/models"
)

func listSponsorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sponsors, err := models.ListSponsors(c.Request.Context())
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, sponsors)
	}
}
