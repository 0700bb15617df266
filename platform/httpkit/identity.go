// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated caller of an endpoint.
// Handlers read it without depending on how the token was validated.
type Identity interface {
	// Gateway returns the name of the messaging gateway that signed the token.
	Gateway() string
	// IsAuthenticated returns true if the caller presented a valid token.
	IsAuthenticated() bool
}

type identity struct {
	gateway string
}

func (i *identity) Gateway() string {
	return i.gateway
}

func (i *identity) IsAuthenticated() bool {
	return i.gateway != ""
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if the gateway is not present.
func GetIdentity(c *gin.Context) Identity {
	value, ok := c.Get(ContextGatewayKey)
	if !ok {
		return &identity{}
	}
	gateway, _ := value.(string)
	return &identity{gateway: gateway}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
