package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/apierror"
)

// Token answers the login redirect issued by `turbo login --sso`.
// There is no real login flow; the redirect target is echoed back.
func Token(c *gin.Context) {
	redirectURI, ok := c.GetQuery("redirect_uri")
	if !ok {
		apierror.Abort(c, http.StatusBadRequest, "querystring should have required property 'redirect_uri'")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": fmt.Sprintf("redirect to %s, token", redirectURI)})
}
