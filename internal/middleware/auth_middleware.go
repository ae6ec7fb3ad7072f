package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/pkg/jwt"
)

// PrincipalContextKey is the key used to store the caller in Gin context
const PrincipalContextKey = "principal"

// AuthMiddleware creates a middleware that validates JWT tokens and places
// the caller's Principal into the Gin context.
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if jwtService.IsTokenExpired(tokenString) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Access token has expired",
					"code":    "TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid_token",
					"message": "Invalid access token",
					"code":    "INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		role := models.Role(claims.Role)
		if !role.IsValid() {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token carries an unknown role",
				"code":    "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(PrincipalContextKey, models.Principal{ID: claims.UserID, Role: role})
		c.Next()
	}
}

// RequireRole creates a middleware that checks if the caller has one of the
// required roles. Apply after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := GetPrincipal(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Principal not found. Auth middleware may not be applied.",
				"code":    "MISSING_PRINCIPAL",
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
		c.Abort()
	}
}

// GetPrincipal retrieves the caller from Gin context.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(PrincipalContextKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	if !ok {
		return models.Principal{}, false
	}
	return principal, true
}
