package httpmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file ceiling for form fields and boundaries.
const multipartOverhead = 1 << 20

// BodyLimit rejects requests whose declared size exceeds maxBytes plus form
// overhead before the body is read, and caps the reader for requests that do
// not declare a length.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	limit := maxBytes + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": "file too large",
				"code":    "file_too_large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
