package mw

import (
	"strings"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/model"
)

// Headers carrying the caller identity. Authentication happens in front of
// this service; these are trusted as given.
const (
	HeaderActorID         = "X-Actor-ID"
	HeaderActorName       = "X-Actor-Name"
	HeaderActorRole       = "X-Actor-Role"
	HeaderActorDepartment = "X-Actor-Department"
)

const actorKey = "actor"

// Actor reads the caller identity from the request headers into the context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorKey, model.Actor{
			ID:         strings.TrimSpace(c.GetHeader(HeaderActorID)),
			Name:       strings.TrimSpace(c.GetHeader(HeaderActorName)),
			Department: strings.TrimSpace(c.GetHeader(HeaderActorDepartment)),
			Role:       model.ParseRole(c.GetHeader(HeaderActorRole)),
		})
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor, or the zero actor.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(model.Actor); ok {
			return a
		}
	}
	return model.Actor{}
}
