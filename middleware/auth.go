package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/models"
	"modestblooming-backend/services"
)

const (
	claimsKey = "claims"
	tokenKey  = "token"
)

type TokenVerifier interface {
	Verify(token string) (services.Claims, error)
}

// Revocations knows logged-out tokens and users whose sessions were revoked.
type Revocations interface {
	IsRevoked(ctx context.Context, claims services.Claims) bool
}

// AuthRequired rejects requests without a valid, unrevoked bearer token.
func AuthRequired(tokens TokenVerifier, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed token"})
			return
		}
		token = strings.TrimSpace(token)

		claims, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if revoked != nil && revoked.IsRevoked(c.Request.Context(), claims) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// AdminOnly must run after AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func Claims(c *gin.Context) (services.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return services.Claims{}, false
	}
	claims, ok := v.(services.Claims)
	return claims, ok
}

// UserID is the authenticated caller, or NilObjectID.
func UserID(c *gin.Context) primitive.ObjectID {
	claims, ok := Claims(c)
	if !ok {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

func IsAdmin(c *gin.Context) bool {
	claims, ok := Claims(c)
	return ok && claims.Role == models.RoleAdmin
}
