package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/middlewares"
	"github.com/validtech/valid_backend/models"
)

func areaParam(c *gin.Context) (models.AccessArea, bool) {
	area := models.AccessArea(c.Param("area"))
	if !area.IsValid() {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown access area"})
		return "", false
	}
	return area, true
}

// accessCheckHandler never fails; the SPA renders the prompt from reason.
func accessCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		area, ok := areaParam(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, middlewares.CheckAccess(c, area))
	}
}

func requestAccessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		area, ok := areaParam(c)
		if !ok {
			return
		}
		var input models.NewAccessRequest
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
		req, err := models.RequestAccess(c.Request.Context(), middlewares.CurrentProfile(c), area, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, req)
	}
}

// gatedContentHandler serves the page body behind an access gate.
func gatedContentHandler(area models.AccessArea) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"area":    area,
			"content": gatedContent[area],
		})
	}
}

var gatedContent = map[models.AccessArea][]gin.H{
	models.AccessAreaInvestor: {
		{"title": "Investor deck", "document": "valid-investor-deck.pdf"},
		{"title": "Financial model", "document": "valid-financial-model.xlsx"},
		{"title": "Cap table summary", "document": "valid-cap-table.pdf"},
	},
	models.AccessAreaPartner: {
		{"title": "Integration guide", "document": "valid-partner-integration.pdf"},
		{"title": "Ghost Pass venue kit", "document": "ghost-pass-venue-kit.pdf"},
		{"title": "Co-marketing assets", "document": "valid-brand-assets.zip"},
	},
}
