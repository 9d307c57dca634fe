package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxClaimsKey = "auth_claims"

	// CookieName matches what the handler issues; the middleware accepts
	// either a bearer header or this cookie so the scheme stays swappable.
	CookieName = "auth-token"
)

func tokenFromRequest(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" && strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

func validate(c *gin.Context, tokens TokenService, repo *Repo, raw string) *Claims {
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil
	}
	if repo != nil {
		currentVersion, err := repo.GetTokenVersion(c.Request.Context(), claims.AdminID)
		if err != nil || currentVersion != claims.TokenVersion {
			return nil
		}
	}
	return claims
}

// Middleware rejects requests that do not carry a valid admin token.
func Middleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims := validate(c, tokens, repo, raw)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalMiddleware attaches claims when a valid token is present but
// never aborts. The submission gateway uses it to classify callers;
// anonymous submissions are allowed by design.
func OptionalMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := tokenFromRequest(c); raw != "" {
			if claims := validate(c, tokens, repo, raw); claims != nil {
				c.Set(CtxClaimsKey, claims)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil || claims.Role != RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
