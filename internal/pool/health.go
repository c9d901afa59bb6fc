package pool

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HealthCheck executa um ping em cada conexão idle, descartando as que não
// respondem. As conexões são emprestadas durante o ping, então nenhuma
// Acquire concorrente recebe uma conexão em verificação e o limite do pool
// continua valendo.
func (p *Pool) HealthCheck() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	conns := p.idle
	p.idle = nil
	for _, c := range conns {
		c.markLeased()
	}
	p.issued += len(conns)
	p.updateMetrics()
	p.mu.Unlock()

	removed := 0
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.DB().PingContext(ctx)
		cancel()

		if err != nil {
			p.log.Warn("health check failed",
				zap.String("pool", p.name),
				zap.Uint64("conn", c.ID()),
				zap.Error(err))
			c.MarkBroken()
			removed++
		} else {
			c.mu.Lock()
			c.lastHealthCheck = time.Now()
			c.mu.Unlock()
		}
		p.Release(c)
	}

	if removed > 0 {
		p.log.Info("health check removed unhealthy connections",
			zap.String("pool", p.name),
			zap.Int("removed", removed))
	}
}
