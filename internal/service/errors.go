package service

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule rejection.
type Kind int

const (
	KindNotFound Kind = iota
	KindInvalid
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// DomainError is a business-rule rejection raised inside a unit of work. It
// rolls the transaction back like any other error but carries the message
// shown to the client.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func notFound(format string, args ...any) error {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &DomainError{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func duplicate(format string, args ...any) error {
	return &DomainError{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// AsDomain returns the DomainError in err's chain, if any.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsNotFound checks if the error is a missing-record rejection.
func IsNotFound(err error) bool {
	de, ok := AsDomain(err)
	return ok && de.Kind == KindNotFound
}
