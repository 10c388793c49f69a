package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoginHandler is the sample login endpoint sitting behind the pipeline and
// a per-address rate limit.
func LoginHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "msg": "login succeeded (demo)."})
}

// SensitiveHandler is the sample sensitive endpoint with a looser limit.
func SensitiveHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "msg": "sensitive data (demo)."})
}
