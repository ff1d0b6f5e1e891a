package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when a caller may not see an entity.
	ErrAccessDenied = errors.New("access denied")

	// ErrInfrastructure matches every InfraError.
	ErrInfrastructure = errors.New("infrastructure failure")

	// ErrCyclicAncestry is returned when an item's parent chain loops.
	ErrCyclicAncestry = errors.New("cyclic item ancestry")

	// ErrMalformedRow is returned when a stored row cannot be decoded.
	ErrMalformedRow = errors.New("malformed row")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind string, key any) error {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

// InfraError wraps a storage failure with the operation that hit it.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInfrastructure) hold.
func (e *InfraError) Is(target error) bool {
	return target == ErrInfrastructure
}

// wrap turns a driver error into an InfraError, passing typed errors through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var infra *InfraError
	if errors.As(err, &infra) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCyclicAncestry) || errors.Is(err, ErrMalformedRow) {
		return err
	}
	return &InfraError{Op: op, Err: err}
}
