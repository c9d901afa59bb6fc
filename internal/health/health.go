// Package health fornece health checks dos componentes de infraestrutura:
// o banco de dados, verificado através de um empréstimo do pool, e o Redis,
// quando configurado.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joao-brasil/collectflow/internal/pool"
)

// Status representa o status de saúde de um componente.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Database é o pool verificado pelo checker.
type Database interface {
	Ping(ctx context.Context) error
	Stats() pool.Stats
}

// Redis é o backend opcional do rate limiter.
type Redis interface {
	Enabled() bool
	IsFallback() bool
	Ping(ctx context.Context) error
}

// ComponentHealth representa a saúde de um único componente.
type ComponentHealth struct {
	Name    string      `json:"name"`
	Status  Status      `json:"status"`
	Message string      `json:"message,omitempty"`
	Latency string      `json:"latency"`
	Pool    *pool.Stats `json:"pool,omitempty"`
}

// Report é o relatório geral de saúde.
type Report struct {
	Status     Status            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// Checker realiza health checks contra componentes de infraestrutura.
type Checker struct {
	db    Database
	redis Redis
}

// NewChecker cria um novo health checker. redis pode ser nil.
func NewChecker(db Database, redis Redis) *Checker {
	return &Checker{db: db, redis: redis}
}

// Check verifica todos os componentes em paralelo e retorna um relatório.
// Se qualquer componente estiver unhealthy, o relatório também está.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components []ComponentHealth
	)
	add := func(ch ComponentHealth) {
		mu.Lock()
		components = append(components, ch)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		add(c.checkDatabase(ctx))
	}()

	if c.redis != nil && c.redis.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			add(c.checkRedis(ctx))
		}()
	}

	wg.Wait()

	report.Components = components
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			report.Status = StatusUnhealthy
			break
		}
	}
	return report
}

// checkDatabase empresta uma conexão do pool e executa um ping. Pool
// esgotado conta como unhealthy.
func (c *Checker) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := c.db.Ping(ctx)
	stats := c.db.Stats()
	ch := ComponentHealth{
		Name:    "database",
		Status:  StatusHealthy,
		Message: "connected",
		Latency: time.Since(start).String(),
		Pool:    &stats,
	}
	if err != nil {
		ch.Status = StatusUnhealthy
		ch.Message = fmt.Sprintf("ping failed: %v", err)
	}
	return ch
}

// checkRedis verifica a conectividade com o Redis.
func (c *Checker) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.redis.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Name:    "redis",
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("PING failed: %v", err),
			Latency: latency.String(),
		}
	}

	msg := "PONG"
	if c.redis.IsFallback() {
		msg = "PONG (rate limiter on local counters)"
	}
	return ComponentHealth{
		Name:    "redis",
		Status:  StatusHealthy,
		Message: msg,
		Latency: latency.String(),
	}
}
