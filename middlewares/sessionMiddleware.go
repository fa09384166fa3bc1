package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the redis-backed session token into the request
// context: token, username, user id, organization id and admin flag. The
// organization id is what the tenant-guard plugin scopes every query by.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)

		var user models.User
		if found, err := config.GetRedisObject("User:"+username, &user); err == nil && found {
			ctx = utils.SetUserIdInContext(ctx, user.ID)
			ctx = utils.SetOrganizationIdInContext(ctx, user.OrganizationId)
			ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests that carry no resolved organization.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if utils.GetOrganizationIdFromContext(c.Request.Context()) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
