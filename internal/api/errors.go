package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/pool"
	"github.com/joao-brasil/collectflow/internal/service"
)

const (
	msgInternal    = "Errore interno del server"
	msgUnavailable = "Servizio temporaneamente non disponibile, riprovare"
	msgValidation  = "Validation error"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Path       string `json:"path"`
	Details    any    `json:"details,omitempty"`
}

func abortWith(c *gin.Context, status int, msg string, details any) {
	c.AbortWithStatusJSON(status, errorBody{
		Error:      msg,
		StatusCode: status,
		Path:       c.Request.URL.String(),
		Details:    details,
	})
}

// writeError maps err to a response. Business-rule rejections carry their
// message; infrastructure failures are logged and reported generically.
func (s *server) writeError(c *gin.Context, err error) {
	if de, ok := service.AsDomain(err); ok {
		status := http.StatusBadRequest
		if de.Kind == service.KindNotFound {
			status = http.StatusNotFound
		}
		s.log.Warn("request rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.String("reason", de.Message))
		abortWith(c, status, de.Message, nil)
		return
	}

	switch {
	case pool.IsExhausted(err):
		s.log.Warn("connection pool exhausted", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.Header("Retry-After", "1")
		abortWith(c, http.StatusServiceUnavailable, msgUnavailable, nil)
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful can be written
		s.log.Info("request cancelled", zap.String("path", c.Request.URL.Path))
		c.Abort()
	default:
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		abortWith(c, http.StatusInternalServerError, msgInternal, nil)
	}
}

// validationDetail is one entry of a 422 response.
type validationDetail struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func validationDetails(err error) []validationDetail {
	msgs := model.Messages(err)
	fields := make([]string, 0, len(msgs))
	for f := range msgs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []validationDetail
	for _, f := range fields {
		for _, m := range msgs[f] {
			out = append(out, validationDetail{Loc: []string{"body", f}, Msg: m})
		}
	}
	return out
}

func (s *server) writeValidation(c *gin.Context, details []validationDetail) {
	s.log.Warn("validation error", zap.String("path", c.Request.URL.Path), zap.Any("details", details))
	abortWith(c, http.StatusUnprocessableEntity, msgValidation, details)
}
