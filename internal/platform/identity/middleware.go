package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/louisbranch/formrpc/internal/platform/requestctx"
)

// Middleware resolves the request identity and stores it in the request
// context. Invalid credentials are logged and treated as anonymous.
func Middleware(provider Provider, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provider == nil {
			c.Next()
			return
		}
		id, err := provider.Authenticate(c.Request)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("anonymous request")
			id = Identity{}
		}
		ctx := WithIdentity(c.Request.Context(), id)
		if id.User != nil {
			ctx = requestctx.WithUserID(ctx, id.User.ID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
