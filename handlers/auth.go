package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/middlewares"
	"github.com/validtech/valid_backend/models"
)

func signUpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		profile, err := models.SignUp(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, profile)
	}
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		info, err := models.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logged_out": ok})
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, middlewares.CurrentProfile(c))
	}
}
