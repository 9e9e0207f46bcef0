package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/gate"
	"github.com/validtech/valid_backend/models"
)

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := gate.Auth(CurrentProfile(c) != nil); !d.Allowed {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required", "reason": d.Reason})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentProfile(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		if !p.IsAdministrator() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator only"})
			return
		}
		c.Next()
	}
}

// RequireAccess re-reads the profile so a revoked approval takes effect on
// the next request.
func RequireAccess(area models.AccessArea) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := CheckAccess(c, area)
		switch {
		case d.Allowed:
			c.Next()
		case d.Reason == gate.ReasonNoSession:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required", "reason": d.Reason})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access not approved", "reason": d.Reason})
		}
	}
}

// CheckAccess evaluates the gate for area against the current session.
func CheckAccess(c *gin.Context, area models.AccessArea) gate.Decision {
	p := CurrentProfile(c)
	if d := gate.Auth(p != nil); !d.Allowed {
		return d
	}
	fresh, err := models.GetProfile(c.Request.Context(), p.ID)
	return gate.Access(fresh, err, area)
}
