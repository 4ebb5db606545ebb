// Package middleware provides authentication, logging and rate limiting
// middleware for the application.
package middleware

import (
	"strconv"
	"strings"

	"crewdesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var (
	cfg             *config.Config
	blacklistClient *redis.Client
)

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// SetBlacklistClient wires the Redis client used for revoked-token lookups.
// When nil, tokens are accepted without a blacklist check.
func SetBlacklistClient(rdb *redis.Client) {
	blacklistClient = rdb
}

// parseBearerToken validates a bearer token string and returns the user ID
// and token ID (jti) from its claims.
func parseBearerToken(tokenString string) (uint, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	// User ID lives in the "sub" claim (subject claim per RFC 7519)
	subStr, ok := claims["sub"].(string)
	if !ok {
		return 0, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token subject")
	}

	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return 0, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	jti, _ := claims["jti"].(string)
	return uint(userIDVal), jti, nil
}

// bearerFromHeader extracts the token from an "Authorization: Bearer <token>" header.
func bearerFromHeader(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, ok := bearerFromHeader(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	userID, jti, err := parseBearerToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Reject tokens revoked via logout
	if blacklistClient != nil && jti != "" {
		if exists, err := blacklistClient.Exists(c.UserContext(), "blacklist:"+jti).Result(); err == nil && exists > 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has been revoked",
			})
		}
	}

	c.Locals("userID", userID)
	c.Locals("tokenID", jti)

	return c.Next()
}

// OptionalAuth resolves the user ID from a bearer token when one is present
// but never rejects the request. Listing endpoints use it so anonymous and
// authenticated callers see different result sets from the same route.
func OptionalAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerFromHeader(c)
	if !ok {
		return c.Next()
	}

	userID, jti, err := parseBearerToken(tokenString)
	if err != nil {
		return c.Next()
	}

	if blacklistClient != nil && jti != "" {
		if exists, err := blacklistClient.Exists(c.UserContext(), "blacklist:"+jti).Result(); err == nil && exists > 0 {
			return c.Next()
		}
	}

	c.Locals("userID", userID)
	c.Locals("tokenID", jti)

	return c.Next()
}
