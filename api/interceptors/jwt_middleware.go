package interceptors

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenIssuer = "kasmail"

	// SubjectAddressKey holds the authenticated wallet address in the gin context
	SubjectAddressKey = "subjectAddress"
)

// GenerateToken issues an HS256 session token for a wallet address
func GenerateToken(secret []byte, address string, expiry time.Duration) (string, error) {
	if !types.IsKaspaAddress(address) {
		return "", types.ErrInvalidAddress
	}
	now := time.Now().UTC()
	token, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(address).
		IssuedAt(now).
		Expiration(now.Add(expiry)).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// JWTMiddleware accepts a bearer token whose subject is a kaspa wallet address
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	if len(secret) == 0 {
		panic("token secret cannot be empty")
	}
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		token, err := jwt.Parse([]byte(raw),
			jwt.WithKey(jwa.HS256, secret),
			jwt.WithValidate(true),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithAcceptableSkew(30*time.Second))
		if err != nil {
			level.Debug(global.Logger).Log("msg", "rejected token", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if !types.IsKaspaAddress(token.Subject()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token subject is not a wallet address"})
			return
		}
		c.Set(SubjectAddressKey, token.Subject())
		c.Next()
	}
}
