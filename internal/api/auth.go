package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/chrisdamba/foodatrack/internal/models"
)

const principalKey = "principal"

// Principal is the authenticated caller. Subject is the restaurant, driver
// or customer id the token was issued to.
type Principal struct {
	Subject string
	Actor   models.Actor
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// roleActors maps token roles onto tracking actors. Operators act as the
// system.
var roleActors = map[string]models.Actor{
	"system":     models.ActorSystem,
	"admin":      models.ActorSystem,
	"operator":   models.ActorSystem,
	"restaurant": models.ActorRestaurant,
	"driver":     models.ActorDriver,
	"customer":   models.ActorCustomer,
}

func parseToken(tokenStr, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	c := &claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, c, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	actor, ok := roleActors[strings.ToLower(c.Role)]
	if !ok || c.Subject == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{Subject: c.Subject, Actor: actor}, nil
}

// AuthMiddleware accepts a bearer token from the Authorization header or,
// for browser WebSocket clients, the token query parameter.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else if t := c.Query("token"); t != "" {
			tokenStr = t
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing or invalid token"})
			return
		}
		p, err := parseToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireActors rejects callers whose role maps to none of actors.
func RequireActors(actors ...models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		for _, a := range actors {
			if p != nil && p.Actor == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	}
}

func principal(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}
