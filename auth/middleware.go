package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Middleware rejects requests without a valid bearer token and stores the
// identity on both the gin and the request context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Missing or malformed authorization header",
			})

			return
		}

		identity, err := v.Parse(strings.TrimSpace(token))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})

			return
		}

		c.Set(string(ctxKeyIdentity), identity)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// IdentityFrom returns the identity placed by Middleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(string(ctxKeyIdentity))
	if !ok {
		return FromContext(c.Request.Context())
	}
	identity, ok := value.(Identity)

	return identity, ok
}
