package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/platform/apperr"
)

const ctxPrincipalKey = "principal"

// RequireAuth validates "Authorization: Bearer <token>" and stores the principal in
// the gin context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			apperr.Respond(c, apperr.Unauthenticated("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperr.Respond(c, apperr.Unauthenticated("invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			apperr.Respond(c, apperr.Unauthenticated("empty token"))
			return
		}

		p, err := ParseToken(secret, tokenStr)
		if err != nil {
			apperr.Respond(c, apperr.Unauthenticated("invalid token"))
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}

// RequireRole only lets principals holding one of roles through.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthenticated("not signed in"))
			return
		}
		if _, allowed := roleSet[p.Role]; !allowed {
			apperr.Respond(c, apperr.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(ctxPrincipalKey, p)
}

// PrincipalFrom reports false when the request carries no authenticated principal.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	if !ok || p.IsZero() {
		return Principal{}, false
	}
	return p, true
}
