package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

const userIDKey = "user_id"

// AuthMiddleware verifies an HS256 bearer token and stores its subject as
// the caller's user id. Browsers opening a websocket cannot set headers, so
// the access_token query parameter is accepted too.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
					Status:  false,
					Message: "Authorization header format must be Bearer {token}",
				})
				return
			}
			token = parts[1]
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "Authorization header is required",
			})
			return
		}

		claims, err := utils.ParseUserToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "Invalid token",
			})
			return
		}
		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// UserID returns the id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
