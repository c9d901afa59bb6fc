package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joao-brasil/collectflow/internal/metrics"
	"github.com/joao-brasil/collectflow/pkg/datasource"
	"go.uber.org/zap"
)

// Opener opens one physical session and verifies it is reachable.
type Opener func(ctx context.Context, driver, dsn string) (*sql.DB, error)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for cleanup failures and lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// WithOpener replaces the database/sql opener.
func WithOpener(o Opener) Option {
	return func(p *Pool) { p.open = o }
}

// grant hands a slot to a waiter. A nil conn means the slot is reserved and
// the waiter must open a new connection itself.
type grant struct {
	conn *Conn
}

// Pool is a bounded set of connections to one data source.
//
// Invariant: len(idle)+issued <= MaxConnections. A slot is counted in issued
// from the admission decision until Release, including while the connection
// is being opened outside the lock.
type Pool struct {
	mu sync.Mutex

	ds   *datasource.DataSource
	name string
	open Opener
	log  *zap.Logger

	// idle holds connections available for reuse, most recently used last.
	idle []*Conn

	// issued counts leased connections and reserved slots.
	issued int

	nextID atomic.Uint64
	closed bool

	// waiters is only used when AcquireTimeout > 0.
	waiters []chan grant

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a pool for ds. No connection is opened until the first
// Acquire; a missing DSN is reported there, not here.
func New(ds *datasource.DataSource, opts ...Option) *Pool {
	p := &Pool{
		ds:     ds,
		name:   ds.Name,
		open:   openDB,
		log:    zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	if p.name == "" {
		p.name = "default"
	}
	for _, o := range opts {
		o(p)
	}

	metrics.ConnectionsMax.WithLabelValues(p.name).Set(float64(ds.MaxConnections))
	p.updateMetrics()

	if ds.MaxIdleTime > 0 || ds.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.maintenanceLoop()
	}
	return p
}

// Name returns the pool label used in logs and metrics.
func (p *Pool) Name() string {
	return p.name
}

// Acquire lends a connection. An idle connection is reused when present;
// otherwise a new one is opened if a slot is free. When every slot is issued
// Acquire fails with a KindExhausted error at once, or, with AcquireTimeout
// set, after waiting that long for a Release.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if err := p.ds.Validate(); err != nil {
		metrics.AcquireTotal.WithLabelValues(p.name, "config_error").Inc()
		return nil, &Error{Pool: p.name, Kind: KindConfig, Err: err}
	}

	start := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &Error{Pool: p.name, Kind: KindClosed}
	}

	conn, stale := p.popIdle()
	if conn != nil {
		p.issued++
		conn.markLeased()
		p.updateMetrics()
		p.mu.Unlock()
		p.closeAll(stale, "stale")
		metrics.AcquireTotal.WithLabelValues(p.name, "reused").Inc()
		return conn, nil
	}

	if p.issued < p.ds.MaxConnections {
		p.issued++
		p.updateMetrics()
		p.mu.Unlock()
		p.closeAll(stale, "stale")
		return p.openReserved(ctx)
	}

	issued := p.issued
	if p.ds.AcquireTimeout <= 0 {
		p.mu.Unlock()
		p.closeAll(stale, "stale")
		metrics.AcquireTotal.WithLabelValues(p.name, "exhausted").Inc()
		return nil, &Error{Pool: p.name, Kind: KindExhausted, Issued: issued, Max: p.ds.MaxConnections}
	}

	w := make(chan grant, 1)
	p.waiters = append(p.waiters, w)
	p.updateMetrics()
	p.mu.Unlock()
	p.closeAll(stale, "stale")

	return p.wait(ctx, w, start)
}

// Release returns a leased connection. A live connection goes back to the
// idle set when there is room, or to a waiter; a dead one is discarded and
// its slot freed. Close failures are logged, never returned. Releasing the
// same lease twice is ignored.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	alive := c.Alive()

	p.mu.Lock()
	if !c.takeLease() {
		p.mu.Unlock()
		p.log.Warn("release of a connection that is not leased", zap.Uint64("conn", c.ID()))
		return
	}

	if p.closed {
		p.issued--
		p.updateMetrics()
		p.mu.Unlock()
		p.closeConn(c, "pool_closed")
		return
	}

	if alive {
		if w := p.popWaiter(); w != nil {
			c.markLeased()
			p.updateMetrics()
			p.mu.Unlock()
			w <- grant{conn: c}
			metrics.AcquireTotal.WithLabelValues(p.name, "handoff").Inc()
			return
		}
		if len(p.idle) < p.ds.MaxConnections {
			p.issued--
			c.markIdle()
			p.idle = append(p.idle, c)
			p.updateMetrics()
			p.mu.Unlock()
			return
		}
		p.issued--
		p.updateMetrics()
		p.mu.Unlock()
		p.closeConn(c, "excess")
		return
	}

	// Dead connection: its slot goes to a waiter, or back to the pool.
	if w := p.popWaiter(); w != nil {
		p.updateMetrics()
		p.mu.Unlock()
		w <- grant{}
	} else {
		p.issued--
		p.updateMetrics()
		p.mu.Unlock()
	}
	metrics.ConnectionErrors.WithLabelValues(p.name, "discarded").Inc()
	p.closeConn(c, "dead")
}

// Ping leases a connection, pings it and releases it.
func (p *Pool) Ping(ctx context.Context) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(c)

	if err := c.DB().PingContext(ctx); err != nil {
		c.MarkBroken()
		return fmt.Errorf("ping conn %d: %w", c.ID(), err)
	}
	return nil
}

// Close shuts the pool down. Idle connections are closed, waiters are
// woken with KindClosed, and connections still leased are closed when they
// are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stopCh)

	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil

	idle := p.idle
	p.idle = nil
	p.updateMetrics()
	p.mu.Unlock()

	p.wg.Wait()

	var errs []error
	for _, c := range idle {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing conn %d: %w", c.ID(), err))
		}
	}

	p.log.Info("pool closed", zap.String("pool", p.name), zap.Int("idle_closed", len(idle)))
	return errors.Join(errs...)
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pool:    p.name,
		Idle:    len(p.idle),
		Issued:  p.issued,
		Max:     p.ds.MaxConnections,
		Waiting: len(p.waiters),
	}
}

// Stats holds pool statistics.
type Stats struct {
	Pool    string `json:"pool"`
	Idle    int    `json:"idle"`
	Issued  int    `json:"issued"`
	Max     int    `json:"max"`
	Waiting int    `json:"waiting"`
}

// ── Internal helpers ─────────────────────────────────────────────────────

// openDB opens a database/sql handle limited to one physical connection so
// each Conn maps 1:1 to a session.
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// openReserved opens a connection for a slot already counted in issued.
// On failure the slot is given back.
func (p *Pool) openReserved(ctx context.Context) (*Conn, error) {
	if p.ds.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ds.ConnectionTimeout)
		defer cancel()
	}

	db, err := p.open(ctx, p.ds.DriverName(), p.ds.ConnString())
	if err != nil {
		p.releaseSlot()
		metrics.ConnectionErrors.WithLabelValues(p.name, "open_failed").Inc()
		metrics.AcquireTotal.WithLabelValues(p.name, "connect_error").Inc()
		p.log.Error("opening connection failed", zap.String("pool", p.name), zap.Error(err))
		return nil, &Error{Pool: p.name, Kind: KindConnect, Err: err}
	}

	c := newConn(p.nextID.Add(1), p.name, db)
	c.markLeased()
	metrics.AcquireTotal.WithLabelValues(p.name, "opened").Inc()
	p.log.Debug("connection opened", zap.String("pool", p.name), zap.Uint64("conn", c.ID()))
	return c, nil
}

// releaseSlot frees a reserved slot that never got a connection.
func (p *Pool) releaseSlot() {
	p.mu.Lock()
	if w := p.popWaiter(); w != nil {
		p.updateMetrics()
		p.mu.Unlock()
		w <- grant{}
		return
	}
	p.issued--
	p.updateMetrics()
	p.mu.Unlock()
}

// wait blocks for a grant until AcquireTimeout or ctx expires.
func (p *Pool) wait(ctx context.Context, w chan grant, start time.Time) (*Conn, error) {
	timer := time.NewTimer(p.ds.AcquireTimeout)
	defer timer.Stop()

	select {
	case g, ok := <-w:
		metrics.AcquireWaitDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		if !ok {
			return nil, &Error{Pool: p.name, Kind: KindClosed}
		}
		if g.conn != nil {
			return g.conn, nil
		}
		return p.openReserved(ctx)

	case <-timer.C:
		p.abandon(w)
		waited := time.Since(start)
		metrics.AcquireWaitDuration.WithLabelValues(p.name).Observe(waited.Seconds())
		metrics.AcquireTotal.WithLabelValues(p.name, "exhausted").Inc()
		stats := p.Stats()
		return nil, &Error{Pool: p.name, Kind: KindExhausted, Issued: stats.Issued, Max: stats.Max, Waited: waited}

	case <-ctx.Done():
		p.abandon(w)
		metrics.AcquireTotal.WithLabelValues(p.name, "cancelled").Inc()
		return nil, ctx.Err()
	}
}

// abandon removes w from the wait queue. If a grant was already handed to
// w it is returned to the pool so the slot is not lost.
func (p *Pool) abandon(w chan grant) {
	p.mu.Lock()
	for i, x := range p.waiters {
		if x == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.updateMetrics()
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	g, ok := <-w
	if !ok {
		return
	}
	if g.conn != nil {
		p.Release(g.conn)
		return
	}
	p.releaseSlot()
}

// popWaiter removes the oldest waiter. Caller holds p.mu.
func (p *Pool) popWaiter() chan grant {
	if len(p.waiters) == 0 {
		return nil
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	return w
}

// popIdle removes and returns the most recently used idle connection. Dead
// or stale connections found on the way are returned for closing outside
// the lock. Caller holds p.mu.
func (p *Pool) popIdle() (*Conn, []*Conn) {
	var stale []*Conn
	for len(p.idle) > 0 {
		n := len(p.idle) - 1
		c := p.idle[n]
		p.idle = p.idle[:n]

		if !c.Alive() || (p.ds.MaxIdleTime > 0 && c.idleDuration() > p.ds.MaxIdleTime) {
			stale = append(stale, c)
			continue
		}
		return c, stale
	}
	return nil, stale
}

func (p *Pool) closeAll(conns []*Conn, reason string) {
	for _, c := range conns {
		p.closeConn(c, reason)
	}
}

// closeConn closes c, logging instead of returning any failure.
func (p *Pool) closeConn(c *Conn, reason string) {
	if err := c.Close(); err != nil {
		metrics.ConnectionErrors.WithLabelValues(p.name, "close_failed").Inc()
		p.log.Warn("closing connection failed",
			zap.String("pool", p.name),
			zap.Uint64("conn", c.ID()),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	p.log.Debug("connection closed",
		zap.String("pool", p.name),
		zap.Uint64("conn", c.ID()),
		zap.String("reason", reason))
}

// updateMetrics refreshes Prometheus gauges for this pool. Caller holds p.mu.
func (p *Pool) updateMetrics() {
	metrics.ConnectionsIssued.WithLabelValues(p.name).Set(float64(p.issued))
	metrics.ConnectionsIdle.WithLabelValues(p.name).Set(float64(len(p.idle)))
	metrics.AcquireWaiting.WithLabelValues(p.name).Set(float64(len(p.waiters)))
}

// maintenanceLoop runs periodic eviction and health checks.
func (p *Pool) maintenanceLoop() {
	defer p.wg.Done()

	interval := p.ds.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.evictStale()
			if p.ds.HealthCheckInterval > 0 {
				p.HealthCheck()
			}
		}
	}
}

// evictStale closes idle connections that exceeded MaxIdleTime.
func (p *Pool) evictStale() {
	if p.ds.MaxIdleTime <= 0 {
		return
	}

	p.mu.Lock()
	remaining := make([]*Conn, 0, len(p.idle))
	var evicted []*Conn
	for _, c := range p.idle {
		if c.idleDuration() > p.ds.MaxIdleTime {
			evicted = append(evicted, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	p.idle = remaining
	if len(evicted) > 0 {
		p.updateMetrics()
	}
	p.mu.Unlock()

	if len(evicted) > 0 {
		p.closeAll(evicted, "idle_timeout")
		p.log.Info("evicted stale connections", zap.String("pool", p.name), zap.Int("count", len(evicted)))
	}
}
