package server

import (
	"github.com/gin-gonic/gin"
	"github.com/wattshare/wattshare/internal/auditcontext"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/authorization"
)

const contextActorKey = "actor"

// AuthRequired resolves the session cookie into an Actor and stores it on the
// gin context and the request context for the audit trail.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := s.authsvc.CurrentUser(c.Request.Context(), sess.UserID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := authdomain.ActorForUser(user)
		c.Set(contextActorKey, actor)

		ctx := auditcontext.WithActor(c.Request.Context(), "user", actor.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route on the actor's role.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, authorization.ErrForbidden)
	}
}

// authorize gates a route on the policy engine.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authdomain.Actor, bool) {
	raw, ok := c.Get(contextActorKey)
	if !ok {
		return authdomain.Actor{}, false
	}
	actor, ok := raw.(authdomain.Actor)
	return actor, ok
}
