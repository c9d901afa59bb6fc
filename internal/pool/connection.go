// Package pool fornece o connection pool limitado compartilhado pelos
// handlers de requisição. Cada Conn é um *sql.DB com uma única conexão física,
// emprestada com exclusividade a uma unit of work por vez.
package pool

import (
	"database/sql"
	"sync"
	"time"
)

// ConnState representa o estado do ciclo de vida de uma conexão no pool.
type ConnState int

const (
	ConnStateIdle   ConnState = iota // Disponível no pool
	ConnStateLeased                  // Emprestada a uma unit of work
	ConnStateClosed                  // Fechada, nunca volta ao pool
)

// Conn encapsula uma conexão *sql.DB com metadados para gerenciamento de pool.
type Conn struct {
	mu sync.Mutex

	// db é a sessão subjacente (MaxOpenConns=1).
	db *sql.DB

	// id é um identificador único para esta conexão dentro do pool.
	id uint64

	// pool identifica o pool de origem.
	pool string

	state ConnState

	// leased é verdadeiro entre Acquire e o primeiro Release.
	leased bool

	// broken marca uma sessão perdida durante o uso.
	broken bool

	createdAt       time.Time
	lastUsedAt      time.Time
	lastHealthCheck time.Time
	useCount        uint64
}

func newConn(id uint64, pool string, db *sql.DB) *Conn {
	now := time.Now()
	return &Conn{
		db:              db,
		id:              id,
		pool:            pool,
		state:           ConnStateIdle,
		createdAt:       now,
		lastUsedAt:      now,
		lastHealthCheck: now,
	}
}

// DB retorna o *sql.DB subjacente.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// ID retorna o identificador único da conexão.
func (c *Conn) ID() uint64 {
	return c.id
}

// State retorna o estado atual da conexão.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UseCount retorna quantas vezes a conexão foi emprestada.
func (c *Conn) UseCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.useCount
}

// Alive retorna true se a conexão não foi fechada nem marcada como quebrada.
func (c *Conn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != ConnStateClosed && !c.broken
}

// MarkBroken marca a sessão como perdida; o próximo Release a descarta.
func (c *Conn) MarkBroken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

// markLeased transiciona a conexão para o estado emprestado.
func (c *Conn) markLeased() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnStateClosed {
		c.state = ConnStateLeased
	}
	c.leased = true
	c.lastUsedAt = time.Now()
	c.useCount++
}

// takeLease encerra o empréstimo. Retorna false se não havia empréstimo.
func (c *Conn) takeLease() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.leased {
		return false
	}
	c.leased = false
	return true
}

// markIdle transiciona a conexão de volta para o estado idle.
func (c *Conn) markIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ConnStateIdle
	c.lastUsedAt = time.Now()
}

// idleDuration retorna há quanto tempo a conexão está idle.
func (c *Conn) idleDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastUsedAt)
}

// Close fecha a sessão subjacente. Chamadas repetidas retornam nil.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == ConnStateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = ConnStateClosed
	c.mu.Unlock()
	return c.db.Close()
}
