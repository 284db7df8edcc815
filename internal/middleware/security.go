package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	HSTSMaxAge     int
	FrameOptions   string
	ReferrerPolicy string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "no-referrer",
	}
}

// SecurityHeaders sets hardening headers. Every API response carries patient
// data, so none may be stored by caches.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge)
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", hsts)
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
