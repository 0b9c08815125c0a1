package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// JWTMiddleware gates the admin routes.
type JWTMiddleware struct {
	issuer *utils.JWTIssuer
}

func NewJWTMiddleware(issuer *utils.JWTIssuer) *JWTMiddleware {
	return &JWTMiddleware{issuer: issuer}
}

// Handle accepts "Authorization: Bearer <token>" and stores the admin id and
// email on the context.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			utils.Error(c, 401, utils.CodeUnauthorized, "Missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := m.issuer.ValidateJWT(token)
		if err != nil {
			utils.Error(c, 401, utils.CodeInvalidToken, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(utils.ContextAdminID, claims.UserID)
		c.Set(utils.ContextAdminEmail, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
