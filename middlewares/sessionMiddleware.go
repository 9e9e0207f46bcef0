package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
)

const profileKey = "profile"

// SessionToken reads the "token" header, falling back to a bearer token.
func SessionToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Request.Header.Get("token")); token != "" {
		return token
	}
	auth := c.Request.Header.Get("Authorization")
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

// SessionMiddleware resolves the session token to a profile. Requests
// without a token pass through anonymous; a bad token is rejected.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		email, exists, err := models.SessionEmail(token)
		if err != nil {
			config.LogError(config.GetLogger(), "SessionMiddleware", "SessionEmail", "lookup token", nil, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		profile, err := models.GetProfileByEmail(c.Request.Context(), email)
		if err != nil || !profile.Active() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetEmailInContext(ctx, email)
		ctx = utils.SetProfileIdInContext(ctx, profile.ID)
		ctx = utils.SetProfileNameInContext(ctx, profile.DisplayName())
		ctx = utils.SetIsAdminInContext(ctx, profile.IsAdministrator())
		// partner members only ever see their own account's rows
		if !profile.IsAdministrator() && profile.PortalAccountId != nil &&
			profile.PartnerAccessApproved != nil && *profile.PartnerAccessApproved {
			ctx = utils.SetAccountIdInContext(ctx, *profile.PortalAccountId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(profileKey, profile)
		c.Next()
	}
}

// CurrentProfile is the profile SessionMiddleware resolved, or nil.
func CurrentProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}
