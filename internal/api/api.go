// Package api exposes the gateway over HTTP with gin: the public info and
// health routes, and the authenticated, rate-limited /api/v1 resources.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/health"
	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/ratelimit"
)

const serviceName = "CollectFlowAPI"

// PraticheService is implemented by *service.Pratiche.
type PraticheService interface {
	Get(ctx context.Context, contatore int64) (*model.Pratica, error)
	Create(ctx context.Context, in *model.PraticaCreate) (*model.Pratica, error)
	UpdateStatus(ctx context.Context, contatore int64, in *model.PraticaStatusUpdate) (*model.Pratica, error)
}

// ResourceService is a list-by-practice and create resource: movimenti,
// email and sms.
type ResourceService[T, C any] interface {
	List(ctx context.Context, contatore int64) ([]*T, error)
	Create(ctx context.Context, in *C) (*T, error)
}

// Checker produces the readiness report.
type Checker interface {
	Check(ctx context.Context) *health.Report
}

// Limiter counts requests per client.
type Limiter interface {
	Allow(ctx context.Context, rule ratelimit.Rule, key string) ratelimit.Decision
}

// Deps are the collaborators of the router.
type Deps struct {
	Pratiche  PraticheService
	Movimenti ResourceService[model.Movimento, model.MovimentoCreate]
	Email     ResourceService[model.EMail, model.EMailCreate]
	SMS       ResourceService[model.SMS, model.SMSCreate]

	Health  Checker
	Limiter Limiter
	Log     *zap.Logger

	APIKeys     []string
	ReadRule    ratelimit.Rule
	WriteRule   ratelimit.Rule
	CORSOrigins []string
	Version     string
}

type server struct {
	Deps
	log *zap.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) *gin.Engine {
	s := &server{Deps: d, log: d.Log}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.Version == "" {
		s.Version = "1.0.0"
	}

	r := gin.New()
	r.Use(
		s.recovery(),
		s.requestLogger(),
		s.metrics(),
		cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", headerAPIKey, headerRequestID},
			ExposeHeaders:    []string{headerProcessTime, headerRequestID, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)
	r.NoRoute(func(c *gin.Context) {
		abortWith(c, http.StatusNotFound, "Not Found", nil)
	})

	r.GET("/", s.root)
	r.GET("/health", s.healthStatic)
	r.GET("/health/live", s.live)
	r.GET("/health/ready", s.ready)
	r.GET("/api/versions", s.versions)

	v1 := r.Group("/api/v1", s.requireAPIKey(), s.rateLimit())

	v1.GET("/pratiche/:contatore", s.getPratica)
	v1.POST("/pratiche/", s.createPratica)
	v1.PATCH("/pratiche/:contatore/status", s.updatePraticaStatus)

	registerResource(v1, s, "/movimenti", d.Movimenti)
	registerResource(v1, s, "/email", d.Email)
	registerResource(v1, s, "/sms", d.SMS)

	return r
}

func (s *server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "CollectFlowAPI - API per la gestione di pratiche, movimenti, email e SMS",
		"version":      "v" + s.Version,
		"api_version":  "v1",
		"health":       "/health",
		"version_info": "/api/versions",
		"endpoints": gin.H{
			"pratiche":  "/api/v1/pratiche",
			"movimenti": "/api/v1/movimenti",
			"email":     "/api/v1/email",
			"sms":       "/api/v1/sms",
		},
	})
}

func (s *server) healthStatic(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format("2006-01-02T15:04:05.000000"),
		"service":   serviceName,
		"version":   s.Version,
	})
}

func (s *server) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *server) ready(c *gin.Context) {
	if s.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}
	report := s.Health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *server) versions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current_version":    "v1",
		"supported_versions": []string{"v1"},
		"versions": gin.H{
			"v1": gin.H{
				"prefix":      "/api/v1",
				"description": "CollectFlowAPI v1 - Initial release",
				"deprecated":  false,
				"end_of_life": nil,
				"features": gin.H{
					"pratiche":      true,
					"movimenti":     true,
					"email":         true,
					"sms":           true,
					"status_update": true,
				},
			},
		},
	})
}
