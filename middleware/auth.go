package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

const (
	// ContextActorKey stores the authenticated *services.Actor inside the Gin context.
	ContextActorKey = "actor"
	// ContextTokenKey stores the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token expiry time.
	ContextTokenExpiryKey = "token_exp"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*utils.Claims, error)
}

// AuthRequired rejects requests without a valid, unrevoked bearer token and stores
// the resulting actor in the context. Every failure answers with the same generic
// message.
func AuthRequired(tokens TokenParser, blacklist utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		code, ok := authenticate(ctx, tokens, blacklist)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, code, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches an actor when a valid token is present and lets anonymous
// requests through untouched.
func OptionalAuth(tokens TokenParser, blacklist utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			authenticate(ctx, tokens, blacklist)
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, tokens TokenParser, blacklist utils.TokenBlacklist) (int, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return 40110, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 40111, false
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return 40112, false
	}
	if blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
		return 40113, false
	}
	claims, err := tokens.Parse(tokenString)
	if err != nil {
		return 40114, false
	}

	ctx.Set(ContextActorKey, &services.Actor{ID: claims.UserID, Username: claims.Username, Role: claims.Role})
	ctx.Set(ContextTokenKey, tokenString)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	}
	return 0, true
}

// ActorFrom returns the authenticated actor, or nil for anonymous requests.
func ActorFrom(ctx *gin.Context) *services.Actor {
	v, ok := ctx.Get(ContextActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*services.Actor)
	return actor
}

// TokenFrom returns the bearer token and its expiry for an authenticated request.
func TokenFrom(ctx *gin.Context) (string, time.Time) {
	token := ctx.GetString(ContextTokenKey)
	exp, _ := ctx.Get(ContextTokenExpiryKey)
	t, _ := exp.(time.Time)
	return token, t
}
