package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var staticHeaders = map[string]string{
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Allow-Headers":     "Authorization, Content-Type, X-Requested-With, X-Request-ID",
	"Access-Control-Allow-Methods":     "GET, POST, PUT, DELETE, OPTIONS",
	// Content-Disposition carries the export filename to the browser.
	"Access-Control-Expose-Headers": "X-Request-ID, Content-Disposition",
	"Access-Control-Max-Age":        "600",
}

type policy map[string]struct{}

// allows reports whether origin may read responses. An empty policy admits
// every origin.
func (p policy) allows(origin string) bool {
	if len(p) == 0 {
		return true
	}
	_, ok := p[strings.TrimRight(origin, "/")]
	return ok
}

// New returns a CORS middleware for the lab booking frontend. An empty origin
// list allows any origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	p := make(policy, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			p[strings.TrimRight(origin, "/")] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		switch origin := c.GetHeader("Origin"); {
		case origin != "" && p.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
		case origin == "" && len(p) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Vary", "Origin")
		for k, v := range staticHeaders {
			h.Set(k, v)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
