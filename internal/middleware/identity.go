package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// ContextUserKey is the gin context key under which the portal identity is
// stored for handlers.
const ContextUserKey = "current_user"

// ErrMissingAuthHeader indicates the Authorization header was absent.
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// Identity returns a middleware that consumes the portal-issued JWT and
// places the resulting CurrentUser in the request context. The token
// carries user_id, role and display_name claims; this service never
// authenticates users itself, it only verifies the portal's signature.
func Identity(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Identity middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Warn("Identity middleware: Missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header is required"})
			} else {
				logrus.WithError(err).Warn("Identity middleware: Malformed token format")
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logrus.WithError(err).Warn("Identity middleware: Invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			c.Abort()
			return
		}

		user, err := userFromClaims(claims)
		if err != nil {
			logrus.WithError(err).Error("Identity middleware: Token claims incomplete")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token is missing identity claims"})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).
			Debug("Identity middleware: user resolved from portal token")
		c.Next()
	}
}

// extractToken pulls the Bearer token out of the Authorization header.
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}

// validateToken parses and verifies the HMAC-signed portal token.
func validateToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

// userFromClaims maps the portal claims onto a CurrentUser. JWT numbers
// arrive as float64 and need a checked conversion.
func userFromClaims(claims jwt.MapClaims) (domain.CurrentUser, error) {
	idFloat, ok := claims["user_id"].(float64)
	if !ok || idFloat <= 0 || idFloat != float64(uint(idFloat)) {
		return domain.CurrentUser{}, fmt.Errorf("claim user_id is not a valid positive integer: %v", claims["user_id"])
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return domain.CurrentUser{}, errors.New("claim role is missing or not a string")
	}
	role := domain.Role(roleStr)
	if !role.Valid() {
		return domain.CurrentUser{}, fmt.Errorf("claim role %q is not a known role", roleStr)
	}
	displayName, ok := claims["display_name"].(string)
	if !ok || displayName == "" {
		return domain.CurrentUser{}, errors.New("claim display_name is missing or empty")
	}
	return domain.CurrentUser{ID: uint(idFloat), Role: role, DisplayName: displayName}, nil
}
