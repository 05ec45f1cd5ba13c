package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin so every request opens a server span. When disabled
// it is a pass-through.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return otelgin.Middleware(serviceName)
}

// SpanAttributes enriches the active span once routing has resolved path
// parameters. It must run after Tracing so the server span exists.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if ref := paymentReference(c); ref != "" {
				span.SetAttributes(attribute.String("payment.reference", ref))
			}
		}
		c.Next()
	}
}

func paymentReference(c *gin.Context) string {
	if ref := c.Param("reference"); ref != "" {
		return ref
	}
	return c.Query("reference")
}
