package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/records-timeline-go/pkg/response"
)

// SubjectKey is the gin context key holding the authenticated subject
const SubjectKey = "subject"

// Auth validates an HS256 bearer token. When userParam is set, the token
// subject must match that path parameter.
func Auth(secret []byte, userParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "Missing bearer token")
			return
		}

		subject, err := ParseSubject(raw, secret)
		if err != nil {
			c.Error(err)
			response.Unauthorized(c, "Invalid token")
			return
		}

		if userParam != "" && c.Param(userParam) != subject {
			response.Forbidden(c, "Token does not grant access to this user")
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// ErrNoSigningSecret rejects every token when the server has no secret configured
var ErrNoSigningSecret = errors.New("no token signing secret configured")

// ParseSubject verifies a token and returns its subject
func ParseSubject(raw string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSigningSecret
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("failed to read subject: %w", err)
	}
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}
