package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
)

// RequireRole checks that the JWT carries the given role.
func RequireRole(role model.Role) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole checks that the JWT carries at least one of the roles.
// Admins pass every role check.
func RequireAnyRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, have := range claims.Roles {
			if have == model.RoleAdmin {
				c.Next()
				return
			}
			for _, want := range roles {
				if have == want {
					c.Next()
					return
				}
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}
