package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/apierror"
)

const (
	msgMissingConfig = "Missing Turbo Token configuration"
	msgMissingHeader = "Missing Authorization header"
	msgInvalidToken  = "Invalid authorization token"
)

var errMissingConfig = errors.New("no bearer tokens configured")

// BearerAuth creates a middleware that only lets requests through when their
// "Authorization: Bearer <token>" header carries one of tokens.
//
// With no tokens configured every request is rejected with 400.
func BearerAuth(tokens []string) gin.HandlerFunc {
	accepted := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			accepted[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(accepted) == 0 {
			c.Error(errMissingConfig)
			apierror.Abort(c, http.StatusBadRequest, msgMissingConfig)
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="Turbo Remote Cache"`)
			apierror.Abort(c, http.StatusUnauthorized, msgMissingHeader)
			return
		}

		// Plain map lookup, not constant time.
		if _, ok := accepted[token]; !ok {
			c.Header("WWW-Authenticate", `Bearer realm="Turbo Remote Cache", error="invalid_token"`)
			apierror.Abort(c, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value. The
// token is everything after "Bearer " and is matched byte for byte.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	return token, ok && token != ""
}
