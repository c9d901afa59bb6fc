package api

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/metrics"
)

const (
	headerAPIKey      = "X-API-Key"
	headerRequestID   = "X-Request-ID"
	headerProcessTime = "X-Process-Time"
)

// timingWriter stamps X-Process-Time before the first byte of the response
// goes out, since headers cannot change afterwards.
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timingWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	w.Header().Set(headerProcessTime, strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 6, 64))
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// requestLogger logs every request and response, assigns X-Request-ID and
// reports the processing time in X-Process-Time.
func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		tw := &timingWriter{ResponseWriter: c.Writer, start: start}
		c.Writer = tw

		log := s.log.With(zap.String("request_id", id))
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
			zap.String("client", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()))

		c.Next()

		if !tw.Written() {
			tw.stamp()
		}
		log.Info("response",
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// metrics records request counts and latency per route template.
func (s *server) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// recovery turns a panic into a 500 response.
func (s *server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		s.log.Error("panic while serving request",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"))
		abortWith(c, http.StatusInternalServerError, msgInternal, nil)
	})
}

// requireAPIKey rejects requests without a configured X-API-Key.
func (s *server) requireAPIKey() gin.HandlerFunc {
	keys := make([][]byte, 0, len(s.APIKeys))
	for _, k := range s.APIKeys {
		keys = append(keys, []byte(k))
	}

	return func(c *gin.Context) {
		got := c.GetHeader(headerAPIKey)
		if got == "" {
			s.log.Warn("API key is missing", zap.String("path", c.Request.URL.Path))
			abortWith(c, http.StatusUnauthorized, "API key is required", nil)
			return
		}
		if len(keys) == 0 {
			s.log.Error("no API keys configured")
			abortWith(c, http.StatusUnauthorized, "API keys not configured", nil)
			return
		}
		for _, k := range keys {
			if subtle.ConstantTimeCompare([]byte(got), k) == 1 {
				c.Next()
				return
			}
		}
		s.log.Warn("invalid API key", zap.String("path", c.Request.URL.Path))
		abortWith(c, http.StatusUnauthorized, "Invalid API key", nil)
	}
}

// rateLimit applies the read rule to GET requests and the write rule to the
// rest, per client IP.
func (s *server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Limiter == nil {
			c.Next()
			return
		}
		rule := s.WriteRule
		if c.Request.Method == http.MethodGet {
			rule = s.ReadRule
		}

		d := s.Limiter.Allow(c.Request.Context(), rule, c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			c.Next()
			return
		}

		retry := int(math.Ceil(d.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		s.log.Warn("rate limit exceeded",
			zap.String("client", c.ClientIP()),
			zap.String("rule", rule.Name),
			zap.String("backend", d.Backend))
		abortWith(c, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded: %d per %s", rule.Limit, windowText(rule.Window)), nil)
	}
}

func windowText(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return unit(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return unit(int(d/time.Minute), "minute")
	default:
		return unit(int(d/time.Second), "second")
	}
}

func unit(n int, name string) string {
	if n == 1 {
		return "1 " + name
	}
	return fmt.Sprintf("%d %ss", n, name)
}
