// Package ratelimit implementa limites de requisição por janela fixa.
//
// Os contadores ficam no Redis e são atualizados por um script Lua atômico,
// de modo que várias instâncias do gateway compartilham o mesmo limite.
// Quando o Redis está indisponível o limitador entra em modo fallback e conta
// localmente, tentando voltar ao Redis periodicamente.
package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/metrics"
)

//go:embed lua/window.lua
var windowLuaScript string

const keyWindow = "collectflow:ratelimit:%s:%s" // regra, chave do cliente

const (
	BackendRedis = "redis"
	BackendLocal = "local"
)

// Rule limita a Limit requisições por Window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision é o resultado de Allow.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Backend    string
}

// Options configura o limitador. Addr vazio desliga o Redis.
type Options struct {
	Addr          string
	Password      string
	DB            int
	DialTimeout   time.Duration
	ProbeInterval time.Duration
}

// Limiter aplica regras por chave de cliente.
type Limiter struct {
	client *redis.Client
	script *redis.Script
	log    *zap.Logger
	now    func() time.Time

	// fallbackMode indica que o Redis está indisponível e os contadores são locais.
	fallbackMode atomic.Bool

	mu      sync.Mutex
	windows map[string]*window

	probeInterval time.Duration
	stopCh        chan struct{}
	closeOnce     sync.Once
	closeErr      error
	wg            sync.WaitGroup
}

type window struct {
	start  time.Time
	length time.Duration
	count  int
}

// New cria o limitador. Uma falha no ping inicial não é fatal: o limitador
// começa em modo fallback.
func New(ctx context.Context, opts Options, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Limiter{
		script:        redis.NewScript(windowLuaScript),
		log:           log,
		now:           time.Now,
		windows:       make(map[string]*window),
		probeInterval: opts.ProbeInterval,
		stopCh:        make(chan struct{}),
	}
	if l.probeInterval <= 0 {
		l.probeInterval = 10 * time.Second
	}

	if opts.Addr == "" {
		l.fallbackMode.Store(true)
		log.Info("rate limiter running on local counters")
		l.startJanitor()
		return l
	}

	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 2 * time.Second
	}
	l.client = redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dial,
		ReadTimeout:  dial,
		WriteTimeout: dial,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := l.client.Ping(pingCtx).Err(); err != nil {
		metrics.RedisOperations.WithLabelValues("ping", "error").Inc()
		log.Warn("redis unavailable, rate limiter starting in fallback mode",
			zap.String("addr", opts.Addr), zap.Error(err))
		l.fallbackMode.Store(true)
	} else {
		metrics.RedisOperations.WithLabelValues("ping", "ok").Inc()
		if err := l.script.Load(pingCtx, l.client).Err(); err != nil {
			log.Warn("loading rate limit script failed", zap.Error(err))
		}
		log.Info("rate limiter connected to redis", zap.String("addr", opts.Addr))
	}

	l.startJanitor()
	return l
}

// Allow conta uma requisição de key contra rule.
func (l *Limiter) Allow(ctx context.Context, rule Rule, key string) Decision {
	var d Decision
	if !l.fallbackMode.Load() {
		var err error
		d, err = l.allowRedis(ctx, rule, key)
		switch {
		case err != nil && ctx.Err() != nil:
			// a requisição foi cancelada pelo cliente; o Redis continua saudável
			metrics.RedisOperations.WithLabelValues("window", "cancelled").Inc()
			d = l.allowLocal(rule, key)
		case err != nil:
			metrics.RedisOperations.WithLabelValues("window", "error").Inc()
			l.enterFallback(err)
			d = l.allowLocal(rule, key)
		default:
			metrics.RedisOperations.WithLabelValues("window", "ok").Inc()
		}
	} else {
		d = l.allowLocal(rule, key)
	}

	outcome := "allowed"
	if !d.Allowed {
		outcome = "limited"
	}
	metrics.RateLimitDecisions.WithLabelValues(rule.Name, outcome, d.Backend).Inc()
	return d
}

func (l *Limiter) allowRedis(ctx context.Context, rule Rule, key string) (Decision, error) {
	redisKey := fmt.Sprintf(keyWindow, rule.Name, key)
	vals, err := l.script.Run(ctx, l.client, []string{redisKey}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis window: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("redis window: unexpected reply %v", vals)
	}
	return decide(rule, int(vals[0]), time.Duration(vals[1])*time.Millisecond, BackendRedis), nil
}

func (l *Limiter) allowLocal(rule Rule, key string) Decision {
	now := l.now()
	k := rule.Name + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[k]
	if !ok || now.Sub(w.start) >= rule.Window {
		w = &window{start: now, length: rule.Window}
		l.windows[k] = w
	}
	w.count++
	return decide(rule, w.count, rule.Window-now.Sub(w.start), BackendLocal)
}

func decide(rule Rule, count int, ttl time.Duration, backend string) Decision {
	d := Decision{Backend: backend, Remaining: rule.Limit - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if count <= rule.Limit {
		d.Allowed = true
		return d
	}
	d.RetryAfter = ttl
	if d.RetryAfter <= 0 {
		d.RetryAfter = time.Second
	}
	return d
}

// ── Modo Fallback ───────────────────────────────────────────────────────

func (l *Limiter) enterFallback(err error) {
	if l.fallbackMode.CompareAndSwap(false, true) {
		l.log.Warn("redis failed, rate limiter entering fallback mode", zap.Error(err))
	}
}

// exitFallback tenta voltar ao Redis. Os contadores locais são descartados.
func (l *Limiter) exitFallback(ctx context.Context) error {
	if l.client == nil {
		return errors.New("redis not configured")
	}
	if err := l.client.Ping(ctx).Err(); err != nil {
		metrics.RedisOperations.WithLabelValues("ping", "error").Inc()
		return err
	}
	metrics.RedisOperations.WithLabelValues("ping", "ok").Inc()
	if err := l.script.Load(ctx, l.client).Err(); err != nil {
		return err
	}

	l.fallbackMode.Store(false)
	l.mu.Lock()
	l.windows = make(map[string]*window)
	l.mu.Unlock()
	l.log.Info("rate limiter back on redis")
	return nil
}

// IsFallback retorna true se o limitador estiver contando localmente.
func (l *Limiter) IsFallback() bool {
	return l.fallbackMode.Load()
}

// Enabled reports whether a Redis backend is configured.
func (l *Limiter) Enabled() bool {
	return l.client != nil
}

// Ping checks the Redis backend.
func (l *Limiter) Ping(ctx context.Context) error {
	if l.client == nil {
		return errors.New("redis not configured")
	}
	if err := l.client.Ping(ctx).Err(); err != nil {
		metrics.RedisOperations.WithLabelValues("ping", "error").Inc()
		return err
	}
	metrics.RedisOperations.WithLabelValues("ping", "ok").Inc()
	return nil
}

// ── Ciclo de Vida ───────────────────────────────────────────────────────

// startJanitor remove janelas locais expiradas e, com Redis configurado,
// tenta sair do modo fallback.
func (l *Limiter) startJanitor() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.probeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stopCh:
				return
			case <-ticker.C:
				l.sweep()
				if l.client != nil && l.fallbackMode.Load() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					if err := l.exitFallback(ctx); err != nil {
						l.log.Debug("redis still unavailable", zap.Error(err))
					}
					cancel()
				}
			}
		}
	}()
}

// sweep drops expired local windows.
func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		if now.Sub(w.start) >= w.length {
			delete(l.windows, k)
		}
	}
}

// Close para o janitor e fecha o cliente Redis.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopCh)
		l.wg.Wait()
		if l.client != nil {
			l.closeErr = l.client.Close()
		}
	})
	return l.closeErr
}
