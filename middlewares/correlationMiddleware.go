package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/closing_backend/utils"
)

// CorrelationMiddleware generates (or forwards) one correlation id per
// request and attaches it to the request context and response headers.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Header("x-correlation-id", cid)
		c.Next()
	}
}

// ActorMiddleware copies the caller identity headers into the request
// context. There is no authentication; the headers are trusted as-is.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if user := c.GetHeader("x-username"); user != "" {
			ctx = utils.SetUsernameInContext(ctx, user)
		}
		if role := c.GetHeader("x-actor-role"); role != "" {
			ctx = utils.SetActorRoleInContext(ctx, role)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
