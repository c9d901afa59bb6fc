package pool

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies pool failures.
type ErrorKind int

const (
	// KindConfig means the data-source descriptor is missing or invalid.
	// It is fatal and not retried.
	KindConfig ErrorKind = iota
	// KindConnect means a new physical connection could not be opened.
	KindConnect
	// KindExhausted means every slot is issued. Without an acquire timeout it
	// is reported immediately.
	KindExhausted
	// KindClosed means the pool has been shut down.
	KindClosed
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindConnect:
		return "connection"
	case KindExhausted:
		return "exhausted"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error provides structured information about a failed acquire.
type Error struct {
	Pool   string
	Kind   ErrorKind
	Issued int           // issued connections at rejection (KindExhausted)
	Max    int           // configured bound (KindExhausted)
	Waited time.Duration // time spent waiting, zero when fail-fast (KindExhausted)
	Err    error         // underlying cause (KindConfig, KindConnect)
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfig:
		return fmt.Sprintf("pool %s: configuration error: %v", e.Pool, e.Err)
	case KindConnect:
		return fmt.Sprintf("pool %s: opening connection: %v", e.Pool, e.Err)
	case KindExhausted:
		if e.Waited > 0 {
			return fmt.Sprintf("pool %s exhausted (issued=%d, max=%d, waited=%v)",
				e.Pool, e.Issued, e.Max, e.Waited)
		}
		return fmt.Sprintf("pool %s exhausted (issued=%d, max=%d)", e.Pool, e.Issued, e.Max)
	case KindClosed:
		return fmt.Sprintf("pool %s closed", e.Pool)
	default:
		return fmt.Sprintf("pool %s error", e.Pool)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func isKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// IsConfig checks if the error is a data-source configuration error.
func IsConfig(err error) bool { return isKind(err, KindConfig) }

// IsConnect checks if the error is a failure to open a connection.
func IsConnect(err error) bool { return isKind(err, KindConnect) }

// IsExhausted checks if the error is a pool exhaustion rejection.
func IsExhausted(err error) bool { return isKind(err, KindExhausted) }

// IsClosed checks if the error was caused by a closed pool.
func IsClosed(err error) bool { return isKind(err, KindClosed) }
