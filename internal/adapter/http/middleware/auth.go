package middleware

import (
	"strings"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Roles, least to most privileged.
const (
	RoleCustomer = "customer"
	RoleCSR      = "csr"
	RoleAdmin    = "admin"
)

// TokenAuth validates the bearer token and injects the verified identity
// claims into the request context.
func TokenAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(token)
		if err != nil {
			log.Debug().Err(err).Msg("token validation failed")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxUID, claims.UID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxPartyID, claims.PartyID)
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated role is not in the
// allowed set. Runs after TokenAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(CtxRole)]; !ok {
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}
		c.Next()
	}
}

// Actor builds the audit actor for the authenticated request.
func Actor(c *gin.Context) ports.Actor {
	actorType := domain.ActorUser
	switch c.GetString(CtxRole) {
	case RoleCSR:
		actorType = domain.ActorCSR
	case RoleAdmin:
		actorType = domain.ActorAdmin
	}
	return ports.Actor{
		ID:        c.GetString(CtxUID),
		Type:      actorType,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Source:    requestSource(c),
	}
}

// OwnsParty reports whether the request may read resources scoped to the
// given party: staff roles always, customers only their own party.
func OwnsParty(c *gin.Context, partyID string) bool {
	switch c.GetString(CtxRole) {
	case RoleCSR, RoleAdmin:
		return true
	}
	return c.GetString(CtxPartyID) == partyID
}

func requestSource(c *gin.Context) domain.AuditSource {
	switch c.GetHeader("X-Client-Source") {
	case "web":
		return domain.SourceWeb
	case "mobile":
		return domain.SourceMobile
	case "csr":
		return domain.SourceCSR
	case "admin":
		return domain.SourceAdmin
	}
	return domain.SourceAPI
}
